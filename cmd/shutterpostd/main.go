package main

import (
	"context"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"shutterpost/internal/config"
	"shutterpost/internal/daemon"
	"shutterpost/internal/history"
	"shutterpost/internal/logging"
	"shutterpost/internal/pipeline"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := history.Open(cfg)
	if err != nil {
		logger.Error("open history store", logging.Error(err))
		return
	}

	d, err := daemon.New(cfg, store, logger, pipeline.Deps{})
	if err != nil {
		store.Close()
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}
	logger.Info("shutterpostd running", slog.Int("categories", len(d.Status().Categories)))

	<-ctx.Done()
	logger.Info("shutterpostd shutting down")
}

package daemon_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"shutterpost/internal/config"
	"shutterpost/internal/daemon"
	"shutterpost/internal/logging"
	"shutterpost/internal/pipeline"
	"shutterpost/internal/services/blogger"
	"shutterpost/internal/testsupport"
)

type stubPublisher struct{}

func (s *stubPublisher) Publish(_ context.Context, req blogger.UploadRequest) (blogger.UploadResult, error) {
	return blogger.UploadResult{Success: true, Attempted: true, PostID: "42"}, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"meta":{"status":200,"msg":"OK"}}`))
	}))
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithCategories("art"))
	cfg.Blog.BaseURL = server.URL
	return cfg
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	done := make(chan pipeline.Outcome, 1)
	d, err := daemon.New(cfg, store, logging.NewNop(), pipeline.Deps{
		Publisher: &stubPublisher{},
		Listener: func(o pipeline.Outcome) {
			select {
			case done <- o:
			default:
			}
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer d.Stop()

	status := d.Status()
	if !status.Running {
		t.Fatal("expected running status")
	}
	if len(status.Categories) != 1 || status.Categories[0] != "art" {
		t.Fatalf("unexpected categories %v", status.Categories)
	}

	path := testsupport.WriteWatchedFile(t, cfg, "art", "sunrise.jpg", []byte("jpeg"))
	select {
	case outcome := <-done:
		if !outcome.Success {
			t.Fatalf("expected success outcome, got %+v", outcome)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for upload")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected file deleted after upload")
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected stopped status")
	}
}

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	first, err := daemon.New(cfg, store, logging.NewNop(), pipeline.Deps{Publisher: &stubPublisher{}})
	if err != nil {
		t.Fatal(err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer first.Stop()

	second, err := daemon.New(cfg, store, logging.NewNop(), pipeline.Deps{Publisher: &stubPublisher{}})
	if err != nil {
		t.Fatal(err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected second instance to fail the lock")
	}
}

func TestTestNotificationUnconfigured(t *testing.T) {
	cfg := testConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	d, err := daemon.New(cfg, store, logging.NewNop(), pipeline.Deps{Publisher: &stubPublisher{}})
	if err != nil {
		t.Fatal(err)
	}
	sent, detail, err := d.TestNotification(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sent {
		t.Fatal("expected no notification without a topic")
	}
	if detail == "" {
		t.Fatal("expected a detail message")
	}
}

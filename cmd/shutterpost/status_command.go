package main

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"shutterpost/internal/config"
	"shutterpost/internal/daemon"
	"shutterpost/internal/filer"
	"shutterpost/internal/history"
	"shutterpost/internal/logging"
)

type statusReport struct {
	DaemonRunning  bool           `json:"daemon_running"`
	LockFile       string         `json:"lock_file"`
	Categories     []string       `json:"categories"`
	Published      int            `json:"published_total"`
	Failed         int            `json:"failed_total"`
	BurstUsed      int            `json:"burst_window_used"`
	BurstLimit     int            `json:"burst_window_limit"`
	HourUsed       int            `json:"hour_used"`
	HourLimit      int            `json:"hour_limit"`
	DayUsed        int            `json:"day_used"`
	DayLimit       int            `json:"day_limit"`
	FailedFiles    int            `json:"failed_files"`
	FailedBytes    int64          `json:"failed_bytes"`
	FailedTree     map[string]int `json:"failed_by_category,omitempty"`
	CategoryCounts map[string]int `json:"published_by_category,omitempty"`
	HistoryDB      string         `json:"history_db"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon state, upload budgets, and ledger totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *history.Store) error {
				report, err := buildStatusReport(cmd, cfg, store)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, report)
				}
				renderStatusReport(cmd, cfg, report)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}

func buildStatusReport(cmd *cobra.Command, cfg *config.Config, store *history.Store) (*statusReport, error) {
	cmdCtx := cmd.Context()
	now := time.Now()

	report := &statusReport{
		LockFile:   daemon.LockPath(cfg),
		Categories: cfg.ResolveCategories(),
		BurstLimit: cfg.RateLimit.BurstLimit,
		HourLimit:  cfg.RateLimit.MaxPerHour,
		DayLimit:   cfg.RateLimit.MaxPerDay,
		HistoryDB:  store.Path(),
	}
	report.DaemonRunning = daemonHoldsLock(report.LockFile)

	summary, err := store.Summary(cmdCtx)
	if err != nil {
		return nil, err
	}
	report.Published = summary.Published
	report.Failed = summary.Failed

	counts, err := store.CategoryCounts(cmdCtx)
	if err != nil {
		return nil, err
	}
	report.CategoryCounts = counts

	// The limiter's hourly and daily windows follow the local calendar, so
	// the budget view counts from the top of the hour and midnight.
	burstStart := now.Add(-time.Duration(cfg.RateLimit.BurstWindowSecs) * time.Second)
	hourStart := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, now.Location())
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if report.BurstUsed, err = store.PublishedSince(cmdCtx, burstStart); err != nil {
		return nil, err
	}
	if report.HourUsed, err = store.PublishedSince(cmdCtx, hourStart); err != nil {
		return nil, err
	}
	if report.DayUsed, err = store.PublishedSince(cmdCtx, dayStart); err != nil {
		return nil, err
	}

	stats, err := filer.New(cfg, logging.NewNop()).Stats()
	if err != nil {
		return nil, err
	}
	report.FailedFiles = stats.TotalFiles
	report.FailedBytes = stats.TotalBytes
	if len(stats.Categories) > 0 {
		report.FailedTree = make(map[string]int, len(stats.Categories))
		for category, cs := range stats.Categories {
			report.FailedTree[category] = cs.Files
		}
	}

	return report, nil
}

// daemonHoldsLock probes the daemon's flock without disturbing a running
// instance. A successful trial acquisition is released immediately.
func daemonHoldsLock(path string) bool {
	probe := flock.New(path)
	locked, err := probe.TryLock()
	if err != nil {
		return false
	}
	if locked {
		probe.Unlock() //nolint:errcheck
		return false
	}
	return true
}

func renderStatusReport(cmd *cobra.Command, cfg *config.Config, report *statusReport) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	fmt.Fprintln(out, renderSectionHeader("Daemon", colorize))
	runningKind := statusWarn
	if report.DaemonRunning {
		runningKind = statusOK
	}
	fmt.Fprintln(out, renderStatusLine("Running", runningKind, yesNo(report.DaemonRunning), colorize))
	fmt.Fprintln(out, renderStatusLine("Watch root", statusInfo, cfg.Paths.WatchDir, colorize))
	fmt.Fprintln(out, renderStatusLine("Categories", statusInfo, strconv.Itoa(len(report.Categories)), colorize))
	fmt.Fprintln(out, renderStatusLine("History DB", statusInfo, report.HistoryDB, colorize))
	fmt.Fprintln(out)

	fmt.Fprintln(out, renderSectionHeader("Upload budget", colorize))
	fmt.Fprintln(out, renderStatusLine("Burst window", budgetKind(report.BurstUsed, report.BurstLimit),
		fmt.Sprintf("%d of %d", report.BurstUsed, report.BurstLimit), colorize))
	fmt.Fprintln(out, renderStatusLine("This hour", budgetKind(report.HourUsed, report.HourLimit),
		fmt.Sprintf("%d of %d", report.HourUsed, report.HourLimit), colorize))
	fmt.Fprintln(out, renderStatusLine("Today", budgetKind(report.DayUsed, report.DayLimit),
		fmt.Sprintf("%d of %d", report.DayUsed, report.DayLimit), colorize))
	fmt.Fprintln(out)

	fmt.Fprintln(out, renderSectionHeader("Uploads", colorize))
	fmt.Fprintln(out, renderStatusLine("Published", statusOK, strconv.Itoa(report.Published), colorize))
	failedKind := statusInfo
	if report.Failed > 0 {
		failedKind = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("Failed", failedKind, strconv.Itoa(report.Failed), colorize))

	if len(report.CategoryCounts) > 0 {
		rows := make([][]string, 0, len(report.CategoryCounts))
		for _, category := range sortedKeys(report.CategoryCounts) {
			rows = append(rows, []string{
				categoryLabel(category),
				strconv.Itoa(report.CategoryCounts[category]),
			})
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderTable(
			[]string{"Category", "Published"},
			rows,
			[]columnAlignment{alignLeft, alignRight},
		))
	}

	if report.FailedFiles > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderSectionHeader("Failed files", colorize))
		fmt.Fprintln(out, renderStatusLine("Quarantined", statusWarn,
			fmt.Sprintf("%d (%s)", report.FailedFiles, formatBytes(report.FailedBytes)), colorize))
		for _, category := range sortedKeys(report.FailedTree) {
			fmt.Fprintln(out, renderStatusLine(categoryLabel(category), statusInfo,
				strconv.Itoa(report.FailedTree[category]), colorize))
		}
	}
}

func budgetKind(used, limit int) statusKind {
	if limit > 0 && used >= limit {
		return statusWarn
	}
	return statusOK
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

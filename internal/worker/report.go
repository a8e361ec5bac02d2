package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/mtlprog/divtracker/internal/tracker"
)

// ReportGenerator runs a sweep and stores it as the report for date.
type ReportGenerator interface {
	Generate(ctx context.Context, date time.Time) (tracker.SweepResult, error)
}

// AfterReportHook is called after each successful report generation.
type AfterReportHook interface {
	Export(ctx context.Context, sweep tracker.SweepResult) error
}

// ReportWorker periodically generates dividend reports.
type ReportWorker struct {
	generator ReportGenerator
	interval  time.Duration
	hook      AfterReportHook // optional
	now       func() time.Time
}

// NewReportWorker creates a new ReportWorker with an optional post-generation hook.
func NewReportWorker(generator ReportGenerator, interval time.Duration, hook AfterReportHook) *ReportWorker {
	return &ReportWorker{
		generator: generator,
		interval:  interval,
		hook:      hook,
		now:       time.Now,
	}
}

// runHook calls the post-generation hook if one is configured.
func (w *ReportWorker) runHook(ctx context.Context, sweep tracker.SweepResult) {
	if w.hook == nil {
		return
	}
	if err := w.hook.Export(ctx, sweep); err != nil {
		slog.Error("ReportWorker: export hook failed", "error", err)
	} else {
		slog.Info("ReportWorker: export hook completed")
	}
}

// UTCDate truncates t to midnight UTC.
func UTCDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (w *ReportWorker) generate(ctx context.Context) {
	sweep, err := w.generator.Generate(ctx, UTCDate(w.now()))
	if err != nil {
		slog.Error("ReportWorker: generation failed", "error", err)
		return
	}
	slog.Info("ReportWorker: generation completed", "wallets", sweep.Wallets)
	w.runHook(ctx, sweep)
}

// Run starts the report worker loop. It blocks until the context is cancelled.
func (w *ReportWorker) Run(ctx context.Context) {
	slog.Info("ReportWorker: starting")

	w.generate(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("ReportWorker: shutting down")
			return
		case <-ticker.C:
			w.generate(ctx)
		}
	}
}

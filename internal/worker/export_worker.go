package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"konto/internal/amqp"
	"konto/internal/export"
	"konto/internal/persist"
)

// ExportWorker rebuilds the monthly budget report whenever the store
// changes and pushes it to the configured destination. It reads the shared
// snapshot instead of holding live store state, so it can run as its own
// process.
type ExportWorker struct {
	gateway   persist.Gateway
	writer    export.ReportWriter
	maxMonths int
	now       func() time.Time
}

func NewExportWorker(gateway persist.Gateway, writer export.ReportWriter, maxMonths int) *ExportWorker {
	return &ExportWorker{
		gateway:   gateway,
		writer:    writer,
		maxMonths: maxMonths,
		now:       time.Now,
	}
}

// WithClock overrides the report timestamp source, for tests.
func (w *ExportWorker) WithClock(now func() time.Time) *ExportWorker {
	w.now = now
	return w
}

// HandleChangeMessage processes a single store change message from AMQP
func (w *ExportWorker) HandleChangeMessage(ctx context.Context, msg *amqp.StoreChangeMessage) error {
	slog.InfoContext(ctx, "Processing store change message",
		"kind", msg.Kind,
		"count", msg.Count)

	if err := w.Export(ctx); err != nil {
		return fmt.Errorf("export after %s change: %w", msg.Kind, err)
	}
	return nil
}

// Export loads the latest snapshot, rebuilds the report, and writes it out.
func (w *ExportWorker) Export(ctx context.Context) error {
	snap, err := w.gateway.Load(ctx)
	if err != nil {
		if errors.Is(err, persist.ErrNoSnapshot) {
			slog.InfoContext(ctx, "No snapshot saved yet, nothing to export")
			return nil
		}
		return fmt.Errorf("load snapshot: %w", err)
	}

	report := export.BuildReport(snap, w.maxMonths, w.now())
	if err := w.writer.WriteReport(ctx, report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	slog.InfoContext(ctx, "Exported budget report",
		"rows", len(report.Rows),
		"transactions", len(snap.Transactions))
	return nil
}

// StartupExport pushes the current state once at worker startup, recovering
// from change messages missed while the worker was down.
func (w *ExportWorker) StartupExport(ctx context.Context) error {
	slog.InfoContext(ctx, "Running startup export")
	if err := w.Export(ctx); err != nil {
		return fmt.Errorf("startup export: %w", err)
	}
	return nil
}

// RunPeriodic exports on an interval as a backup for lost change messages.
// Blocks until the context is cancelled.
func (w *ExportWorker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Export(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic export failed", "error", err)
			}
		}
	}
}

package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"konto/internal/amqp"
	"konto/internal/core"
	"konto/internal/export"
	"konto/internal/export/memory"
	"konto/internal/persist"
)

func workerFixture(t *testing.T) (*ExportWorker, *persist.MemoryGateway, *memory.Writer) {
	t.Helper()
	gw := persist.NewMemoryGateway()
	wr := memory.New()
	w := NewExportWorker(gw, wr, 12).
		WithClock(func() time.Time { return time.Date(2025, 11, 15, 12, 0, 0, 0, time.UTC) })
	return w, gw, wr
}

func savedSnapshot() core.Snapshot {
	return core.Snapshot{
		Transactions: []core.Transaction{
			{ID: "t1", Date: "2025-11-03", AmountCents: -4250, Description: "REWE", CategoryID: "groceries"},
			{ID: "t2", Date: "2025-11-25", AmountCents: 250000, Description: "GEHALT", CategoryID: "salary"},
		},
		MainCategories: []core.MainCategory{
			{ID: "groceries", Name: "Lebensmittel"},
			{ID: "salary", Name: "Einkommen", SortOrder: 1, IsIncome: true},
		},
	}
}

func TestExportWorkerHandleChangeMessage(t *testing.T) {
	w, gw, wr := workerFixture(t)
	ctx := context.Background()

	if err := gw.Save(ctx, savedSnapshot()); err != nil {
		t.Fatal(err)
	}

	msg := amqp.NewStoreChangeMessage("import", 2)
	if err := w.HandleChangeMessage(ctx, msg); err != nil {
		t.Fatalf("HandleChangeMessage: %v", err)
	}

	report, ok := wr.Last()
	if !ok {
		t.Fatal("no report written")
	}
	if report.GeneratedAt != "2025-11-15T12:00:00Z" {
		t.Errorf("GeneratedAt = %s", report.GeneratedAt)
	}
	if len(report.Rows) != 2 {
		t.Fatalf("rows = %+v, want groceries and salary", report.Rows)
	}
}

func TestExportWorkerNoSnapshot(t *testing.T) {
	w, _, wr := workerFixture(t)

	// nothing saved yet: the worker stays quiet instead of failing
	if err := w.Export(context.Background()); err != nil {
		t.Fatalf("Export without snapshot: %v", err)
	}
	if _, ok := wr.Last(); ok {
		t.Error("report written despite missing snapshot")
	}
}

func TestExportWorkerStartupExport(t *testing.T) {
	w, gw, wr := workerFixture(t)
	ctx := context.Background()

	if err := gw.Save(ctx, savedSnapshot()); err != nil {
		t.Fatal(err)
	}
	if err := w.StartupExport(ctx); err != nil {
		t.Fatalf("StartupExport: %v", err)
	}
	if _, ok := wr.Last(); !ok {
		t.Error("startup export wrote nothing")
	}
}

type failingWriter struct{}

func (failingWriter) WriteReport(context.Context, export.Report) error {
	return errors.New("sheet unavailable")
}

func TestExportWorkerWriterFailure(t *testing.T) {
	gw := persist.NewMemoryGateway()
	w := NewExportWorker(gw, failingWriter{}, 12)
	ctx := context.Background()

	if err := gw.Save(ctx, savedSnapshot()); err != nil {
		t.Fatal(err)
	}
	err := w.HandleChangeMessage(ctx, amqp.NewStoreChangeMessage("import", 1))
	if err == nil {
		t.Fatal("HandleChangeMessage should surface writer failures so the message is requeued")
	}
}

package memory

import (
	"context"
	"sync"

	"konto/internal/export"
)

// Writer keeps written reports in memory. Used in tests and as the export
// destination when no spreadsheet is configured.
type Writer struct {
	mu      sync.Mutex
	reports []export.Report
}

func New() *Writer {
	return &Writer{}
}

var _ export.ReportWriter = (*Writer)(nil)

func (w *Writer) WriteReport(_ context.Context, report export.Report) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reports = append(w.reports, report)
	return nil
}

// Reports returns a copy of everything written so far.
func (w *Writer) Reports() []export.Report {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]export.Report, len(w.reports))
	copy(out, w.reports)
	return out
}

// Last returns the most recent report, or false when nothing was written.
func (w *Writer) Last() (export.Report, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.reports) == 0 {
		return export.Report{}, false
	}
	return w.reports[len(w.reports)-1], true
}

package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"konto/internal/core"
	"konto/internal/csvimport"
	"konto/internal/store"
)

// SaveScheduler is notified after every successful mutation so a debounced
// save can be scheduled.
type SaveScheduler interface {
	Notify()
}

// ChangePublisher broadcasts store changes to interested consumers. A nil
// publisher disables broadcasting; a failing one never fails the mutation.
type ChangePublisher interface {
	PublishStoreChange(ctx context.Context, kind string, count int) error
}

// ImportService runs the import pipeline: parse the export, merge it into
// the store, re-apply rules to the newcomers, then schedule a save.
type ImportService struct {
	Store     *store.Store
	Saver     SaveScheduler
	Publisher ChangePublisher
}

// ImportSummary is what the user sees after an import: how many rows were
// parsed, rejected, dropped as duplicates, and how many actually landed.
type ImportSummary struct {
	Parsed            int      `json:"parsed"`
	Rejected          int      `json:"rejected"`
	RejectedReasons   []string `json:"rejectedReasons,omitempty"`
	DuplicatesInFile  int      `json:"duplicatesInFile"`
	AlreadyStored     int      `json:"alreadyStored"`
	Added             int      `json:"added"`
	RuleCategorized   int      `json:"ruleCategorized"`
	TotalTransactions int      `json:"totalTransactions"`
}

// ImportCSV imports one statement export.
func (s *ImportService) ImportCSV(ctx context.Context, r io.Reader) (ImportSummary, error) {
	res, err := csvimport.Parse(r)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("parse csv: %w", err)
	}

	report := s.Store.ImportTransactions(res.Transactions)
	applied := s.Store.ApplyRulesToAll()

	summary := ImportSummary{
		Parsed:            res.OriginalCount,
		Rejected:          len(res.RowErrors),
		DuplicatesInFile:  len(res.Duplicates),
		AlreadyStored:     len(report.Duplicates),
		Added:             report.Added,
		RuleCategorized:   applied,
		TotalTransactions: s.Store.Stats().Total,
	}
	for _, rowErr := range res.RowErrors {
		summary.RejectedReasons = append(summary.RejectedReasons, rowErr.Error())
	}

	slog.InfoContext(ctx, "Import finished",
		"parsed", summary.Parsed,
		"rejected", summary.Rejected,
		"duplicates_in_file", summary.DuplicatesInFile,
		"already_stored", summary.AlreadyStored,
		"added", summary.Added,
		"rule_categorized", summary.RuleCategorized)

	// rules can recategorize existing rows even when nothing new landed
	if summary.Added > 0 || summary.RuleCategorized > 0 {
		s.notifyChange(ctx, "import", summary.Added)
	}
	return summary, nil
}

// ImportBatch merges already-parsed transactions, the path used when rows
// come from somewhere other than a CSV file.
func (s *ImportService) ImportBatch(ctx context.Context, batch []core.Transaction) ImportSummary {
	report := s.Store.ImportTransactions(batch)
	applied := s.Store.ApplyRulesToAll()
	summary := ImportSummary{
		Parsed:            report.Incoming,
		AlreadyStored:     len(report.Duplicates),
		Added:             report.Added,
		RuleCategorized:   applied,
		TotalTransactions: s.Store.Stats().Total,
	}
	if summary.Added > 0 || summary.RuleCategorized > 0 {
		s.notifyChange(ctx, "import", summary.Added)
	}
	return summary
}

func (s *ImportService) notifyChange(ctx context.Context, kind string, count int) {
	if s.Saver != nil {
		s.Saver.Notify()
	}
	if s.Publisher == nil {
		return
	}
	if err := s.Publisher.PublishStoreChange(ctx, kind, count); err != nil {
		// the store mutation already succeeded; losing one broadcast is
		// tolerable, losing the import is not
		slog.ErrorContext(ctx, "Failed to publish store change", "kind", kind, "error", err)
	}
}

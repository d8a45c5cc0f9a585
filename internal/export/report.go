package export

import (
	"sort"
	"time"

	"konto/internal/core"
	"konto/internal/services"
)

// BuildReport aggregates a snapshot into per-category monthly rows. Months
// are most-recent-first; maxMonths caps how far back the report reaches,
// zero meaning no cap. Categories with no activity in a month are skipped.
func BuildReport(snap core.Snapshot, maxMonths int, now time.Time) Report {
	months := distinctMonths(snap.Transactions, maxMonths)
	tree := services.BudgetTree(snap.MainCategories, snap.SubCategories)
	editable := services.EditableCategoryIDs(tree)
	idx := services.NewCategoryIndex(snap.MainCategories, snap.SubCategories)

	spending := services.MonthlySpending(snap.Transactions, months, editable, idx)

	report := Report{GeneratedAt: now.UTC().Format(time.RFC3339)}
	for _, month := range months {
		for _, row := range tree {
			if !row.Editable {
				continue
			}
			cents, ok := spending[services.SpendingKey(row.CategoryID, month)]
			if !ok || cents == 0 {
				continue
			}
			report.Rows = append(report.Rows, Row{
				Month:        month,
				CategoryID:   row.CategoryID,
				CategoryName: row.Name,
				AmountCents:  cents,
				IsIncome:     row.IsIncome,
			})
		}
	}
	return report
}

func distinctMonths(txs []core.Transaction, max int) []string {
	seen := make(map[string]struct{})
	for _, tx := range txs {
		month := core.MonthKey(tx.Date)
		if month == "" {
			continue
		}
		seen[month] = struct{}{}
	}

	months := make([]string, 0, len(seen))
	for month := range seen {
		months = append(months, month)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(months)))
	if max > 0 && len(months) > max {
		months = months[:max]
	}
	return months
}

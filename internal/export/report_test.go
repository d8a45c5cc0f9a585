package export

import (
	"testing"
	"time"

	"konto/internal/core"
)

func reportSnapshot() core.Snapshot {
	return core.Snapshot{
		Transactions: []core.Transaction{
			{ID: "t1", Date: "2025-11-03", AmountCents: -4250, Description: "REWE", CategoryID: "groceries"},
			{ID: "t2", Date: "2025-11-20", AmountCents: -1800, Description: "REWE", CategoryID: "groceries"},
			{ID: "t3", Date: "2025-11-25", AmountCents: 250000, Description: "GEHALT", CategoryID: "salary"},
			{ID: "t4", Date: "2025-10-05", AmountCents: -9999, Description: "Amazon"},
			{ID: "t5", Date: "2025-11-08", AmountCents: -50000, Description: "Umbuchung", CategoryID: core.TransferCategoryID},
		},
		MainCategories: []core.MainCategory{
			{ID: "groceries", Name: "Lebensmittel", SortOrder: 0},
			{ID: "salary", Name: "Einkommen", SortOrder: 1, IsIncome: true},
		},
	}
}

func TestBuildReport(t *testing.T) {
	now := time.Date(2025, 11, 30, 9, 0, 0, 0, time.UTC)
	report := BuildReport(reportSnapshot(), 0, now)

	if report.GeneratedAt != "2025-11-30T09:00:00Z" {
		t.Errorf("GeneratedAt = %s", report.GeneratedAt)
	}

	byKey := make(map[string]Row)
	for _, row := range report.Rows {
		byKey[row.Month+"|"+row.CategoryID] = row
	}

	groceries, ok := byKey["2025-11|groceries"]
	if !ok {
		t.Fatal("missing groceries row for 2025-11")
	}
	if groceries.AmountCents != 6050 {
		t.Errorf("groceries = %d cents, want 6050", groceries.AmountCents)
	}
	if groceries.CategoryName != "Lebensmittel" {
		t.Errorf("groceries name = %s", groceries.CategoryName)
	}

	salary, ok := byKey["2025-11|salary"]
	if !ok {
		t.Fatal("missing salary row for 2025-11")
	}
	if salary.AmountCents != 250000 || !salary.IsIncome {
		t.Errorf("salary row = %+v", salary)
	}

	uncat, ok := byKey["2025-10|"+core.UncategorizedID]
	if !ok {
		t.Fatal("missing uncategorized row for 2025-10")
	}
	if uncat.AmountCents != 9999 {
		t.Errorf("uncategorized = %d cents, want 9999", uncat.AmountCents)
	}

	for key := range byKey {
		if key == "2025-11|"+core.TransferCategoryID {
			t.Error("transfer category leaked into the report")
		}
	}

	// months are most-recent-first
	if len(report.Rows) == 0 || report.Rows[0].Month != "2025-11" {
		t.Errorf("first row month = %v, want 2025-11", report.Rows)
	}
}

func TestBuildReportMonthCap(t *testing.T) {
	now := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	report := BuildReport(reportSnapshot(), 1, now)

	for _, row := range report.Rows {
		if row.Month != "2025-11" {
			t.Errorf("row beyond month cap: %+v", row)
		}
	}
	if len(report.Rows) == 0 {
		t.Fatal("capped report is empty")
	}
}

func TestBuildReportEmptySnapshot(t *testing.T) {
	report := BuildReport(core.Snapshot{}, 0, time.Now())
	if len(report.Rows) != 0 {
		t.Errorf("rows = %+v, want none", report.Rows)
	}
}

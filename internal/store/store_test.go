package store

import (
	"testing"
	"time"

	"konto/internal/core"
)

func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2025, 11, 15, 12, 0, 0, 0, time.UTC) }
}

func testBatch() []core.Transaction {
	return []core.Transaction{
		{Date: "2025-11-03", AmountCents: -4250, Description: "REWE SAGT DANKE", SourceAccount: "DE02", DestinationAccount: "DE99"},
		{Date: "2025-11-04", AmountCents: 250000, Description: "GEHALT NOVEMBER", SourceAccount: "DE02", DestinationAccount: "DE11"},
		{Date: "2025-11-05", AmountCents: -1299, Description: "NETFLIX.COM", SourceAccount: "DE02", DestinationAccount: "DE77"},
	}
}

func TestImportAssignsFingerprints(t *testing.T) {
	s := New().WithClock(fixedClock())
	report := s.ImportTransactions(testBatch())
	if report.Added != 3 || report.Incoming != 3 {
		t.Fatalf("report = %+v, want 3 added of 3", report)
	}
	for _, tx := range s.Transactions() {
		if tx.ID == "" {
			t.Fatal("imported transaction without id")
		}
		if tx.ID != core.TransactionFingerprint(tx) {
			t.Fatal("id is not the fingerprint")
		}
	}
}

func TestImportIsIdempotent(t *testing.T) {
	s := New().WithClock(fixedClock())
	first := s.ImportTransactions(testBatch())
	if first.Added != 3 {
		t.Fatalf("first import added %d, want 3", first.Added)
	}
	ids := idSet(s.Transactions())

	second := s.ImportTransactions(testBatch())
	if second.Added != 0 {
		t.Errorf("second import added %d, want 0", second.Added)
	}
	if len(second.Duplicates) != 3 {
		t.Errorf("second import reported %d duplicates, want 3", len(second.Duplicates))
	}
	if got := s.Stats().Total; got != 3 {
		t.Errorf("stored count after double import = %d, want 3", got)
	}
	for id := range idSet(s.Transactions()) {
		if _, ok := ids[id]; !ok {
			t.Errorf("double import changed the id set: new id %s", id)
		}
	}
}

func TestStatsRecomputedOnMutation(t *testing.T) {
	s := New().WithClock(fixedClock())
	s.ImportTransactions(testBatch())

	st := s.Stats()
	if st.Total != 3 || st.Uncategorized != 3 || st.Categorized != 0 {
		t.Fatalf("unexpected initial stats: %+v", st)
	}
	if st.DistinctPatterns != 3 || st.PatternsWithRule != 0 {
		t.Fatalf("unexpected pattern stats: %+v", st)
	}

	mc, err := s.CreateMainCategory("Lebensmittel", false, false)
	if err != nil {
		t.Fatal(err)
	}
	id := s.Transactions()[0].ID
	if err := s.Categorize(id, mc.ID, true); err != nil {
		t.Fatal(err)
	}

	st = s.Stats()
	if st.Categorized != 1 || st.Uncategorized != 2 {
		t.Errorf("stats after categorize: %+v", st)
	}
	if st.PatternsWithRule != 1 {
		t.Errorf("PatternsWithRule = %d, want 1", st.PatternsWithRule)
	}

	if err := s.Lock(id, mc.ID, "confirmed"); err != nil {
		t.Fatal(err)
	}
	if got := s.Stats().Locked; got != 1 {
		t.Errorf("Locked = %d, want 1", got)
	}
}

func TestResetVariants(t *testing.T) {
	s := New().WithClock(fixedClock())
	s.ImportTransactions(testBatch())
	mc, _ := s.CreateMainCategory("Lebensmittel", false, false)
	_ = s.UpsertRule("rewe sagt danke", mc.ID)

	s.ResetTransactions()
	if got := s.Stats().Total; got != 0 {
		t.Errorf("transactions after ResetTransactions = %d, want 0", got)
	}
	if len(s.Rules()) != 1 || len(s.MainCategories()) != 1 {
		t.Error("ResetTransactions must keep rules and categories")
	}

	s.Reset()
	if len(s.Rules()) != 0 || len(s.MainCategories()) != 0 {
		t.Error("Reset must clear rules and categories too")
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	s := New().WithClock(fixedClock())
	s.ImportTransactions(testBatch())
	mc, _ := s.CreateMainCategory("Lebensmittel", false, false)
	sub, _ := s.CreateSubCategory("Supermarkt", mc.ID)
	txID := s.Transactions()[0].ID
	if err := s.Categorize(txID, sub.ID, true); err != nil {
		t.Fatal(err)
	}
	if err := s.Lock(txID, sub.ID, "checked"); err != nil {
		t.Fatal(err)
	}

	snap := s.Snapshot()
	if snap.Meta.TransactionCount != 3 || snap.Meta.RuleCount != 1 {
		t.Fatalf("snapshot meta = %+v", snap.Meta)
	}
	if snap.Meta.SavedAt != "2025-11-15T12:00:00Z" {
		t.Errorf("SavedAt = %q", snap.Meta.SavedAt)
	}

	restored := New().WithClock(fixedClock())
	restored.Restore(snap)

	if restored.Stats() != s.Stats() {
		t.Errorf("stats diverge after restore: %+v vs %+v", restored.Stats(), s.Stats())
	}
	tx, ok := restored.Transaction(txID)
	if !ok || tx.CategoryID != sub.ID || !tx.Locked {
		t.Errorf("restored transaction lost categorization or lock: %+v", tx)
	}
	if len(restored.Rules()) != 1 {
		t.Errorf("restored %d rules, want 1", len(restored.Rules()))
	}
	node, ok := restored.CategoryTreeLookup(mc.ID)
	if !ok || len(node.Children) != 1 {
		t.Errorf("restored category tree incomplete: %+v", node)
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := New().WithClock(fixedClock())
	s.ImportTransactions(testBatch())
	mc, _ := s.CreateMainCategory("Lebensmittel", false, false)

	snap := s.Snapshot()
	snap.Transactions[0].Description = "tampered"
	snap.MainCategories[0].SubcategoryIDs = append(snap.MainCategories[0].SubcategoryIDs, "bogus")

	if s.Transactions()[0].Description == "tampered" {
		t.Error("snapshot shares transaction memory with the store")
	}
	if len(s.MainCategories()[0].SubcategoryIDs) != 0 {
		t.Error("snapshot shares subcategory list with the store")
	}
	_ = mc
}

func TestRestoreRulesAndCategoriesWipesTransactions(t *testing.T) {
	s := New().WithClock(fixedClock())
	s.ImportTransactions(testBatch())
	mc, _ := s.CreateMainCategory("Lebensmittel", false, false)
	_ = s.UpsertRule("netflix.com", mc.ID)
	snap := s.Snapshot()

	fresh := New().WithClock(fixedClock())
	fresh.ImportTransactions(testBatch())
	fresh.RestoreRulesAndCategories(snap)

	if got := fresh.Stats().Total; got != 0 {
		t.Errorf("transactions after rules-only restore = %d, want 0", got)
	}
	if len(fresh.Rules()) != 1 || len(fresh.MainCategories()) != 1 {
		t.Error("rules-only restore must load rules and categories")
	}
}

func TestDeleteTransaction(t *testing.T) {
	s := New().WithClock(fixedClock())
	s.ImportTransactions(testBatch())
	id := s.Transactions()[1].ID

	if err := s.DeleteTransaction(id); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Transaction(id); ok {
		t.Error("transaction still present after delete")
	}
	if got := s.Stats().Total; got != 2 {
		t.Errorf("Total = %d, want 2", got)
	}
	if err := s.DeleteTransaction("missing"); err == nil {
		t.Error("expected NotFoundError for unknown id")
	}
}

func idSet(txs []core.Transaction) map[string]struct{} {
	out := make(map[string]struct{}, len(txs))
	for _, tx := range txs {
		out[tx.ID] = struct{}{}
	}
	return out
}

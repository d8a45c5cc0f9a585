package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"konto/internal/core"
	"konto/internal/store"
)

type fakeSaver struct {
	notified int
}

func (f *fakeSaver) Notify() { f.notified++ }

type fakePublisher struct {
	kinds  []string
	counts []int
	err    error
}

func (f *fakePublisher) PublishStoreChange(ctx context.Context, kind string, count int) error {
	f.kinds = append(f.kinds, kind)
	f.counts = append(f.counts, count)
	return f.err
}

const importExport = `Buchungstag;Betrag;Verwendungszweck;Auftragskonto;Empfaengerkonto
15.11.2025;-42,50;REWE SAGT DANKE;DE11;DE22
16.11.2025;-9,99;Spotify AB;DE11;DE33
15.11.2025;-42,50;REWE SAGT DANKE;DE11;DE22
17.11.2025;2.500,00;GEHALT NOVEMBER;DE44;DE11
`

func TestImportCSV(t *testing.T) {
	st := store.New()
	saver := &fakeSaver{}
	pub := &fakePublisher{}
	svc := &ImportService{Store: st, Saver: saver, Publisher: pub}

	sum, err := svc.ImportCSV(context.Background(), strings.NewReader(importExport))
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if sum.Parsed != 4 {
		t.Errorf("Parsed = %d, want 4", sum.Parsed)
	}
	if sum.DuplicatesInFile != 1 {
		t.Errorf("DuplicatesInFile = %d, want 1", sum.DuplicatesInFile)
	}
	if sum.Added != 3 {
		t.Errorf("Added = %d, want 3", sum.Added)
	}
	if sum.TotalTransactions != 3 {
		t.Errorf("TotalTransactions = %d, want 3", sum.TotalTransactions)
	}
	if saver.notified != 1 {
		t.Errorf("saver notified %d times, want 1", saver.notified)
	}
	if len(pub.kinds) != 1 || pub.kinds[0] != "import" || pub.counts[0] != 3 {
		t.Errorf("published %v %v, want one import event with count 3", pub.kinds, pub.counts)
	}
}

func TestImportCSVReimportIsIdempotent(t *testing.T) {
	st := store.New()
	saver := &fakeSaver{}
	svc := &ImportService{Store: st, Saver: saver}

	if _, err := svc.ImportCSV(context.Background(), strings.NewReader(importExport)); err != nil {
		t.Fatalf("first import: %v", err)
	}
	sum, err := svc.ImportCSV(context.Background(), strings.NewReader(importExport))
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if sum.Added != 0 {
		t.Errorf("Added = %d, want 0 on re-import", sum.Added)
	}
	if sum.AlreadyStored != 3 {
		t.Errorf("AlreadyStored = %d, want 3", sum.AlreadyStored)
	}
	if sum.TotalTransactions != 3 {
		t.Errorf("TotalTransactions = %d, want 3", sum.TotalTransactions)
	}
	if saver.notified != 1 {
		t.Errorf("saver notified %d times, want 1 (no changes on re-import)", saver.notified)
	}
}

func TestImportCSVAppliesRules(t *testing.T) {
	st := store.New()
	main, err := st.CreateMainCategory("Lebensmittel", false, false)
	if err != nil {
		t.Fatalf("CreateMainCategory: %v", err)
	}
	if err := st.UpsertRule("REWE SAGT DANKE", main.ID); err != nil {
		t.Fatalf("UpsertRule: %v", err)
	}

	svc := &ImportService{Store: st}
	sum, err := svc.ImportCSV(context.Background(), strings.NewReader(importExport))
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if sum.RuleCategorized != 1 {
		t.Errorf("RuleCategorized = %d, want 1", sum.RuleCategorized)
	}
}

func TestImportCSVRuleOnlyChangeSchedulesSave(t *testing.T) {
	st := store.New()
	saver := &fakeSaver{}
	pub := &fakePublisher{}
	svc := &ImportService{Store: st, Saver: saver, Publisher: pub}

	if _, err := svc.ImportCSV(context.Background(), strings.NewReader(importExport)); err != nil {
		t.Fatalf("first import: %v", err)
	}

	main, err := st.CreateMainCategory("Lebensmittel", false, false)
	if err != nil {
		t.Fatalf("CreateMainCategory: %v", err)
	}
	if err := st.UpsertRule("REWE SAGT DANKE", main.ID); err != nil {
		t.Fatalf("UpsertRule: %v", err)
	}

	// re-import adds nothing, but the new rule recategorizes a stored row
	sum, err := svc.ImportCSV(context.Background(), strings.NewReader(importExport))
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if sum.Added != 0 {
		t.Fatalf("Added = %d, want 0", sum.Added)
	}
	if sum.RuleCategorized != 1 {
		t.Fatalf("RuleCategorized = %d, want 1", sum.RuleCategorized)
	}
	if saver.notified != 2 {
		t.Errorf("saver notified %d times, want 2", saver.notified)
	}
	if len(pub.kinds) != 2 {
		t.Errorf("published %d events, want 2", len(pub.kinds))
	}
}

func TestImportCSVCollectsRowErrors(t *testing.T) {
	bad := "Buchungstag;Betrag;Verwendungszweck\n15.11.2025;kaputt;Etwas\n16.11.2025;-1,00;Gutes\n"
	svc := &ImportService{Store: store.New()}

	sum, err := svc.ImportCSV(context.Background(), strings.NewReader(bad))
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if sum.Rejected != 1 {
		t.Errorf("Rejected = %d, want 1", sum.Rejected)
	}
	if len(sum.RejectedReasons) != 1 {
		t.Fatalf("RejectedReasons = %v, want one entry", sum.RejectedReasons)
	}
	if sum.Added != 1 {
		t.Errorf("Added = %d, want 1", sum.Added)
	}
}

func TestImportCSVPublishFailureDoesNotFailImport(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := &ImportService{Store: store.New(), Publisher: pub}

	sum, err := svc.ImportCSV(context.Background(), strings.NewReader(importExport))
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if sum.Added != 3 {
		t.Errorf("Added = %d, want 3", sum.Added)
	}
}

func TestImportBatch(t *testing.T) {
	st := store.New()
	saver := &fakeSaver{}
	svc := &ImportService{Store: st, Saver: saver}

	batch := []core.Transaction{
		{Date: "2025-11-15", AmountCents: -4250, Description: "REWE SAGT DANKE"},
		{Date: "2025-11-16", AmountCents: -999, Description: "Spotify AB"},
	}
	sum := svc.ImportBatch(context.Background(), batch)
	if sum.Added != 2 {
		t.Errorf("Added = %d, want 2", sum.Added)
	}
	if saver.notified != 1 {
		t.Errorf("saver notified %d times, want 1", saver.notified)
	}
}

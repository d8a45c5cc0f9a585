package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"konto/internal/core"
	"konto/internal/persist"
	"konto/internal/services"
	"konto/internal/store"
)

const sampleCSV = `Buchungstag;Betrag;Verwendungszweck;Auftragskonto;Empfaengerkonto
01.11.25;-42,50;REWE Markt;DE11;DE99
02.11.25;2.500,00;Gehalt November;DE77;DE11
03.11.25;-18,00;REWE Markt;DE11;DE99
`

type serverFixture struct {
	srv *Server
	st  *store.Store
	gw  *persist.MemoryGateway
}

func newTestServer(t *testing.T) *serverFixture {
	t.Helper()
	st := store.New()
	gw := persist.NewMemoryGateway()
	saver := persist.NewSaver(gw, st, time.Hour)
	importer := &services.ImportService{Store: st, Saver: saver}
	srv := NewServer(":0", Deps{Store: st, Importer: importer, Gateway: gw, Saver: saver, ReportCap: 12})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &serverFixture{srv: srv, st: st, gw: gw}
}

func (f *serverFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	f.srv.Server.Handler.ServeHTTP(rr, req)
	return rr
}

func (f *serverFixture) importCSV(t *testing.T, csv string) services.ImportSummary {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader(csv))
	req.Header.Set("Content-Type", "text/csv")
	rr := httptest.NewRecorder()
	f.srv.Server.Handler.ServeHTTP(rr, req)
	if rr.Code != 200 {
		t.Fatalf("import status=%d body=%s", rr.Code, rr.Body.String())
	}
	var summary services.ImportSummary
	if err := json.Unmarshal(rr.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	return summary
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rr.Body.String())
	}
	return out
}

func TestHealthEndpoints(t *testing.T) {
	f := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := f.do(t, http.MethodGet, path, nil)
		if rr.Code != 200 {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestImportAndListTransactions(t *testing.T) {
	f := newTestServer(t)

	summary := f.importCSV(t, sampleCSV)
	if summary.Added != 3 || summary.Parsed != 3 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	rr := f.do(t, http.MethodGet, "/api/transactions", nil)
	txs := decodeBody[[]core.Transaction](t, rr)
	if len(txs) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(txs))
	}

	// same file again must be a no-op
	again := f.importCSV(t, sampleCSV)
	if again.Added != 0 || again.AlreadyStored != 3 {
		t.Fatalf("re-import should dedupe: %+v", again)
	}

	rr = f.do(t, http.MethodGet, "/api/transactions?month=2025-11", nil)
	if got := decodeBody[[]core.Transaction](t, rr); len(got) != 3 {
		t.Fatalf("month filter returned %d", len(got))
	}
	rr = f.do(t, http.MethodGet, "/api/transactions?month=2024-01", nil)
	if got := decodeBody[[]core.Transaction](t, rr); len(got) != 0 {
		t.Fatalf("empty month returned %d", len(got))
	}
	rr = f.do(t, http.MethodGet, "/api/transactions?uncategorized=true", nil)
	if got := decodeBody[[]core.Transaction](t, rr); len(got) != 3 {
		t.Fatalf("uncategorized filter returned %d", len(got))
	}
}

func TestGetTransactionNotFound(t *testing.T) {
	f := newTestServer(t)
	rr := f.do(t, http.MethodGet, "/api/transactions/nope", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestCategorizeAndLockFlow(t *testing.T) {
	f := newTestServer(t)
	f.importCSV(t, sampleCSV)

	rr := f.do(t, http.MethodPost, "/api/categories", createMainCategoryRequest{Name: "Groceries"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create category status=%d body=%s", rr.Code, rr.Body.String())
	}
	cat := decodeBody[core.MainCategory](t, rr)

	txs := decodeBody[[]core.Transaction](t, f.do(t, http.MethodGet, "/api/transactions", nil))
	var rewe core.Transaction
	for _, tx := range txs {
		if strings.Contains(tx.Description, "REWE") {
			rewe = tx
			break
		}
	}
	if rewe.ID == "" {
		t.Fatalf("seed transaction missing")
	}

	rr = f.do(t, http.MethodPost, "/api/transactions/"+rewe.ID+"/categorize", categorizeRequest{CategoryID: cat.ID, CreateRule: true})
	if rr.Code != 200 {
		t.Fatalf("categorize status=%d body=%s", rr.Code, rr.Body.String())
	}
	if got := decodeBody[core.Transaction](t, rr); got.CategoryID != cat.ID {
		t.Fatalf("categoryId=%q, want %q", got.CategoryID, cat.ID)
	}

	// the rule created above categorizes the second REWE row on apply
	rr = f.do(t, http.MethodPost, "/api/rules/apply", nil)
	applied := decodeBody[applyRulesResponse](t, rr)
	if applied.Categorized != 1 {
		t.Fatalf("apply categorized %d, want 1", applied.Categorized)
	}

	// lock, then categorizing again must conflict
	rr = f.do(t, http.MethodPost, "/api/transactions/"+rewe.ID+"/lock", lockRequest{CategoryID: cat.ID, Reason: "verified"})
	if rr.Code != 200 {
		t.Fatalf("lock status=%d body=%s", rr.Code, rr.Body.String())
	}
	rr = f.do(t, http.MethodPost, "/api/transactions/"+rewe.ID+"/categorize", categorizeRequest{CategoryID: cat.ID})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 on locked transaction, got %d", rr.Code)
	}

	rr = f.do(t, http.MethodPost, "/api/transactions/"+rewe.ID+"/unlock", nil)
	if rr.Code != 200 {
		t.Fatalf("unlock status=%d", rr.Code)
	}
	rr = f.do(t, http.MethodPost, "/api/transactions/"+rewe.ID+"/categorize", categorizeRequest{CategoryID: cat.ID})
	if rr.Code != 200 {
		t.Fatalf("categorize after unlock status=%d", rr.Code)
	}

	// unknown category is a 404, not a silent assignment
	rr = f.do(t, http.MethodPost, "/api/transactions/"+rewe.ID+"/categorize", categorizeRequest{CategoryID: "ghost"})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown category, got %d", rr.Code)
	}
}

func TestBulkCategorize(t *testing.T) {
	f := newTestServer(t)
	f.importCSV(t, sampleCSV)

	cat := decodeBody[core.MainCategory](t, f.do(t, http.MethodPost, "/api/categories", createMainCategoryRequest{Name: "Alles"}))
	txs := decodeBody[[]core.Transaction](t, f.do(t, http.MethodGet, "/api/transactions", nil))

	ids := []string{txs[0].ID, txs[1].ID, "missing"}
	rr := f.do(t, http.MethodPost, "/api/transactions/bulk-categorize", store.BulkCategorizeRequest{
		TransactionIDs: ids,
		CategoryID:     cat.ID,
	})
	if rr.Code != 200 {
		t.Fatalf("bulk status=%d body=%s", rr.Code, rr.Body.String())
	}
	report := decodeBody[store.BulkReport](t, rr)
	if len(report.Applied) != 2 || len(report.Failures) != 1 {
		t.Fatalf("unexpected bulk report: %+v", report)
	}

	rr = f.do(t, http.MethodPost, "/api/transactions/bulk-categorize", store.BulkCategorizeRequest{CategoryID: cat.ID})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("empty id list should be 400, got %d", rr.Code)
	}
}

func TestCategoryTreeEndpoints(t *testing.T) {
	f := newTestServer(t)

	main := decodeBody[core.MainCategory](t, f.do(t, http.MethodPost, "/api/categories", createMainCategoryRequest{Name: "Haushalt"}))
	sub := decodeBody[core.SubCategory](t, f.do(t, http.MethodPost, "/api/categories/"+main.ID+"/subcategories", createSubCategoryRequest{Name: "Putzmittel"}))
	if sub.MainCategoryID != main.ID {
		t.Fatalf("subcategory parent=%q, want %q", sub.MainCategoryID, main.ID)
	}
	other := decodeBody[core.MainCategory](t, f.do(t, http.MethodPost, "/api/categories", createMainCategoryRequest{Name: "Einkommen", IsIncome: true}))

	tree := decodeBody[[]categoryTreeEntry](t, f.do(t, http.MethodGet, "/api/categories", nil))
	if len(tree) != 2 {
		t.Fatalf("tree has %d mains, want 2", len(tree))
	}
	if len(tree[0].Subs) != 1 || tree[0].Subs[0].Name != "Putzmittel" {
		t.Fatalf("unexpected subs: %+v", tree[0].Subs)
	}

	// duplicate names are rejected case-insensitively
	rr := f.do(t, http.MethodPost, "/api/categories", createMainCategoryRequest{Name: "haushalt"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("duplicate name should be 400, got %d", rr.Code)
	}

	rr = f.do(t, http.MethodPost, "/api/categories/reorder", reorderRequest{IDs: []string{other.ID, main.ID}})
	if rr.Code != 200 {
		t.Fatalf("reorder status=%d body=%s", rr.Code, rr.Body.String())
	}
	reordered := decodeBody[[]core.MainCategory](t, rr)
	if reordered[0].ID != other.ID {
		t.Fatalf("reorder did not move %q first", other.Name)
	}

	rr = f.do(t, http.MethodPost, "/api/categories/reorder", reorderRequest{IDs: []string{main.ID}})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("partial reorder should be 400, got %d", rr.Code)
	}

	rr = f.do(t, http.MethodGet, "/api/categories/"+main.ID, nil)
	if rr.Code != 200 {
		t.Fatalf("lookup status=%d", rr.Code)
	}

	if rr = f.do(t, http.MethodDelete, "/api/subcategories/"+sub.ID, nil); rr.Code != http.StatusNoContent {
		t.Fatalf("delete sub status=%d", rr.Code)
	}
	if rr = f.do(t, http.MethodDelete, "/api/categories/"+main.ID, nil); rr.Code != http.StatusNoContent {
		t.Fatalf("delete main status=%d", rr.Code)
	}
	if rr = f.do(t, http.MethodDelete, "/api/categories/"+main.ID, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("second delete should be 404, got %d", rr.Code)
	}
}

func TestRuleEndpoints(t *testing.T) {
	f := newTestServer(t)
	cat := decodeBody[core.MainCategory](t, f.do(t, http.MethodPost, "/api/categories", createMainCategoryRequest{Name: "Lebensmittel"}))

	rr := f.do(t, http.MethodPost, "/api/rules", upsertRuleRequest{Text: "  REWE Markt ", CategoryID: cat.ID})
	if rr.Code != 200 {
		t.Fatalf("upsert status=%d body=%s", rr.Code, rr.Body.String())
	}
	rules := decodeBody[[]core.Rule](t, rr)
	if len(rules) != 1 || rules[0].Text != "rewe markt" {
		t.Fatalf("unexpected rules: %+v", rules)
	}

	rr = f.do(t, http.MethodPost, "/api/rules", upsertRuleRequest{Text: "x", CategoryID: "ghost"})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown category should be 404, got %d", rr.Code)
	}

	if rr = f.do(t, http.MethodDelete, "/api/rules/rewe%20markt", nil); rr.Code != http.StatusNoContent {
		t.Fatalf("delete rule status=%d", rr.Code)
	}
	if rules := decodeBody[[]core.Rule](t, f.do(t, http.MethodGet, "/api/rules", nil)); len(rules) != 0 {
		t.Fatalf("rules not empty after delete: %+v", rules)
	}
}

func TestBudgetEndpoint(t *testing.T) {
	f := newTestServer(t)
	f.importCSV(t, sampleCSV)
	cat := decodeBody[core.MainCategory](t, f.do(t, http.MethodPost, "/api/categories", createMainCategoryRequest{Name: "Lebensmittel"}))

	rr := f.do(t, http.MethodGet, "/api/budget", nil)
	if rr.Code != 200 {
		t.Fatalf("budget status=%d", rr.Code)
	}
	resp := decodeBody[budgetResponse](t, rr)
	if len(resp.Months) != 1 || resp.Months[0] != "2025-11" {
		t.Fatalf("months=%v", resp.Months)
	}
	uncat := resp.Spending[services.SpendingKey(core.UncategorizedID, "2025-11")]
	if uncat != 4250+1800-250000 {
		t.Fatalf("uncategorized spending=%d", uncat)
	}

	// categorizing must invalidate the cached view
	txs := decodeBody[[]core.Transaction](t, f.do(t, http.MethodGet, "/api/transactions", nil))
	for _, tx := range txs {
		if strings.Contains(tx.Description, "REWE") {
			f.do(t, http.MethodPost, "/api/transactions/"+tx.ID+"/categorize", categorizeRequest{CategoryID: cat.ID})
		}
	}
	resp = decodeBody[budgetResponse](t, f.do(t, http.MethodGet, "/api/budget", nil))
	if got := resp.Spending[services.SpendingKey(cat.ID, "2025-11")]; got != 6050 {
		t.Fatalf("groceries spending=%d, want 6050", got)
	}

	if rr := f.do(t, http.MethodGet, "/api/budget?months=abc", nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad months should be 400, got %d", rr.Code)
	}
}

func TestReimportAfterNewRuleRefreshesBudget(t *testing.T) {
	f := newTestServer(t)
	f.importCSV(t, sampleCSV)
	cat := decodeBody[core.MainCategory](t, f.do(t, http.MethodPost, "/api/categories", createMainCategoryRequest{Name: "Lebensmittel"}))
	f.do(t, http.MethodPost, "/api/rules", upsertRuleRequest{Text: "REWE Markt", CategoryID: cat.ID})

	// warm the cache while the REWE rows are still uncategorized
	resp := decodeBody[budgetResponse](t, f.do(t, http.MethodGet, "/api/budget", nil))
	if got := resp.Spending[services.SpendingKey(cat.ID, "2025-11")]; got != 0 {
		t.Fatalf("groceries spending=%d before reapply, want 0", got)
	}

	summary := f.importCSV(t, sampleCSV)
	if summary.Added != 0 {
		t.Fatalf("Added = %d, want 0", summary.Added)
	}
	if summary.RuleCategorized != 2 {
		t.Fatalf("RuleCategorized = %d, want 2", summary.RuleCategorized)
	}

	// the rule-only change must drop the cached view
	resp = decodeBody[budgetResponse](t, f.do(t, http.MethodGet, "/api/budget", nil))
	if got := resp.Spending[services.SpendingKey(cat.ID, "2025-11")]; got != 6050 {
		t.Fatalf("groceries spending=%d after reapply, want 6050", got)
	}
}

func TestNetChangeEndpoint(t *testing.T) {
	f := newTestServer(t)
	f.importCSV(t, sampleCSV)

	entries := decodeBody[[]netChangeEntry](t, f.do(t, http.MethodGet, "/api/net-change", nil))
	if len(entries) != 1 {
		t.Fatalf("entries=%+v", entries)
	}
	if entries[0].Month != "2025-11" || entries[0].AmountCents != 250000-4250-1800 {
		t.Fatalf("unexpected net change: %+v", entries[0])
	}
}

func TestRiskEndpoint(t *testing.T) {
	f := newTestServer(t)
	f.importCSV(t, sampleCSV)

	month := "2025-11"
	path := fmt.Sprintf("/api/risk?month=%s&plannedIncomeCents=250000&plannedSpendingCents=100000", month)
	rr := f.do(t, http.MethodGet, path, nil)
	if rr.Code != 200 {
		t.Fatalf("risk status=%d body=%s", rr.Code, rr.Body.String())
	}
	var out struct {
		Month               string            `json:"month"`
		Tier                services.RiskTier `json:"tier"`
		ActualIncomeCents   int64             `json:"actualIncomeCents"`
		ActualSpendingCents int64             `json:"actualSpendingCents"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode risk: %v", err)
	}
	if out.Month != month {
		t.Fatalf("month=%q", out.Month)
	}
	// no income category exists, so everything counts as uncategorized spending
	if out.ActualIncomeCents != 0 {
		t.Fatalf("actual income=%d", out.ActualIncomeCents)
	}

	if rr := f.do(t, http.MethodGet, "/api/risk?plannedIncomeCents=abc", nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad cents should be 400, got %d", rr.Code)
	}
	if rr := f.do(t, http.MethodGet, "/api/risk?month=november", nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad month should be 400, got %d", rr.Code)
	}
}

func TestExportReportEndpoint(t *testing.T) {
	f := newTestServer(t)
	f.importCSV(t, sampleCSV)

	rr := f.do(t, http.MethodGet, "/api/export/report", nil)
	if rr.Code != 200 {
		t.Fatalf("report status=%d", rr.Code)
	}
	var report struct {
		Rows []struct {
			Month       string `json:"month"`
			CategoryID  string `json:"categoryId"`
			AmountCents int64  `json:"amountCents"`
		} `json:"rows"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if len(report.Rows) != 1 || report.Rows[0].CategoryID != core.UncategorizedID {
		t.Fatalf("unexpected report rows: %+v", report.Rows)
	}
}

func TestSaveAndBackupEndpoints(t *testing.T) {
	f := newTestServer(t)
	f.importCSV(t, sampleCSV)

	if rr := f.do(t, http.MethodPost, "/api/save", nil); rr.Code != 200 {
		t.Fatalf("save status=%d body=%s", rr.Code, rr.Body.String())
	}
	snap, err := f.gw.Load(context.Background())
	if err != nil {
		t.Fatalf("load after forced save: %v", err)
	}
	if len(snap.Transactions) != 3 {
		t.Fatalf("saved %d transactions, want 3", len(snap.Transactions))
	}

	if rr := f.do(t, http.MethodPost, "/api/backup", nil); rr.Code != 200 {
		t.Fatalf("backup status=%d", rr.Code)
	}
}

func TestDeleteTransaction(t *testing.T) {
	f := newTestServer(t)
	f.importCSV(t, sampleCSV)

	txs := decodeBody[[]core.Transaction](t, f.do(t, http.MethodGet, "/api/transactions", nil))
	if rr := f.do(t, http.MethodDelete, "/api/transactions/"+txs[0].ID, nil); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	stats := decodeBody[core.Statistics](t, f.do(t, http.MethodGet, "/api/stats", nil))
	if stats.Total != 2 {
		t.Fatalf("stats.Total=%d after delete", stats.Total)
	}
}

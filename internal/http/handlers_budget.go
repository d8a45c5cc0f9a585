package http

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"konto/internal/core"
	"konto/internal/export"
	"konto/internal/services"
)

const (
	defaultBudgetMonths = 6
	maxBudgetMonths     = 36
)

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	limit, err := monthLimit(r, defaultBudgetMonths)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	cacheKey := "budget:" + strconv.Itoa(limit)
	if cached, ok := s.budgetCache.Get(cacheKey); ok {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	snap := s.store.Snapshot()
	months := recentMonths(snap.Transactions, limit)
	rows := services.BudgetTree(snap.MainCategories, snap.SubCategories)
	editable := services.EditableCategoryIDs(rows)
	idx := services.NewCategoryIndex(snap.MainCategories, snap.SubCategories)

	resp := budgetResponse{
		Months:   months,
		Rows:     rows,
		Spending: services.MonthlySpending(snap.Transactions, months, editable, idx),
	}
	s.budgetCache.Set(cacheKey, resp)
	respondJSON(w, http.StatusOK, resp)
}

type netChangeEntry struct {
	Month       string `json:"month"`
	AmountCents int64  `json:"amountCents"`
}

func (s *Server) handleNetChange(w http.ResponseWriter, r *http.Request) {
	byMonth := services.MonthlyNetChange(s.store.Transactions())

	out := make([]netChangeEntry, 0, len(byMonth))
	for month, cents := range byMonth {
		out = append(out, netChangeEntry{Month: month, AmountCents: cents})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month > out[j].Month })
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	plannedIncome, err := centsParam(q.Get("plannedIncomeCents"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "plannedIncomeCents: "+err.Error())
		return
	}
	plannedSpending, err := centsParam(q.Get("plannedSpendingCents"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "plannedSpendingCents: "+err.Error())
		return
	}

	now := time.Now()
	month := strings.TrimSpace(q.Get("month"))
	if month == "" {
		month = now.Format("2006-01")
	} else if _, err := time.Parse("2006-01", month); err != nil {
		respondError(w, http.StatusBadRequest, "month must be YYYY-MM")
		return
	}

	snap := s.store.Snapshot()
	rows := services.BudgetTree(snap.MainCategories, snap.SubCategories)
	editable := services.EditableCategoryIDs(rows)
	idx := services.NewCategoryIndex(snap.MainCategories, snap.SubCategories)
	spending := services.MonthlySpending(snap.Transactions, []string{month}, editable, idx)

	var actualIncome, actualSpending int64
	for _, row := range rows {
		if !row.Editable {
			continue
		}
		cents := spending[services.SpendingKey(row.CategoryID, month)]
		if row.IsIncome {
			actualIncome += cents
		} else {
			actualSpending += cents
		}
	}

	// Risk for a past or future month is judged at that month's boundary
	// rather than at the unrelated current calendar day.
	today := now
	if currentMonth := now.Format("2006-01"); month != currentMonth {
		first, _ := time.Parse("2006-01", month)
		if month < currentMonth {
			today = first.AddDate(0, 1, -1)
		} else {
			today = first
		}
	}

	result := services.EvaluateBudgetRisk(services.RiskInput{
		PlannedIncomeCents:   plannedIncome,
		ActualIncomeCents:    actualIncome,
		PlannedSpendingCents: plannedSpending,
		ActualSpendingCents:  actualSpending,
		Today:                today,
	})
	respondJSON(w, http.StatusOK, struct {
		Month string `json:"month"`
		services.RiskResult
		ActualIncomeCents   int64 `json:"actualIncomeCents"`
		ActualSpendingCents int64 `json:"actualSpendingCents"`
	}{Month: month, RiskResult: result, ActualIncomeCents: actualIncome, ActualSpendingCents: actualSpending})
}

func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request) {
	limit, err := monthLimit(r, s.reportCap)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, export.BuildReport(s.store.Snapshot(), limit, time.Now()))
}

func monthLimit(r *http.Request, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("months"))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxBudgetMonths {
		return 0, fmt.Errorf("months must be an integer between 1 and %d", maxBudgetMonths)
	}
	return n, nil
}

func centsParam(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("must be an integer amount in cents")
	}
	if n < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return n, nil
}

func recentMonths(txs []core.Transaction, limit int) []string {
	seen := make(map[string]struct{})
	for _, tx := range txs {
		if month := core.MonthKey(tx.Date); month != "" {
			seen[month] = struct{}{}
		}
	}
	months := make([]string, 0, len(seen))
	for month := range seen {
		months = append(months, month)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(months)))
	if limit > 0 && len(months) > limit {
		months = months[:limit]
	}
	return months
}

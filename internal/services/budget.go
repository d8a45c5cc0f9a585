// Package services holds the logic layered on top of the store: the budget
// aggregations, the risk evaluation and the import orchestration.
package services

import (
	"konto/internal/core"
)

// CategoryIndex answers income/expense questions during aggregation. A
// subcategory inherits the income flag from its parent main category.
type CategoryIndex struct {
	income map[string]bool
}

func NewCategoryIndex(mains []core.MainCategory, subs []core.SubCategory) CategoryIndex {
	idx := CategoryIndex{income: make(map[string]bool, len(mains)+len(subs))}
	byID := make(map[string]core.MainCategory, len(mains))
	for _, mc := range mains {
		byID[mc.ID] = mc
		idx.income[mc.ID] = mc.IsIncome
	}
	for _, sub := range subs {
		idx.income[sub.ID] = byID[sub.MainCategoryID].IsIncome
	}
	return idx
}

// IsIncome reports whether the category id belongs to the income side of the
// tree. Unknown ids (including the uncategorized sentinel) are expenses.
func (idx CategoryIndex) IsIncome(categoryID string) bool {
	return idx.income[categoryID]
}

// SpendingKey builds the aggregation key "<categoryId>|<YYYY-MM>".
func SpendingKey(categoryID, month string) string {
	return categoryID + "|" + month
}

// MonthlySpending aggregates cents per category per month.
//
// Income categories accumulate the signed amount, so a deduction within
// income nets against salary. Expense categories accumulate spending
// magnitude: outflows add, refunds subtract, leaving the net spent amount.
// Transactions outside the requested months, with an effective category id
// outside the editable set, or assigned to the transfer category are skipped.
func MonthlySpending(txs []core.Transaction, months []string, editableCategoryIDs []string, idx CategoryIndex) map[string]int64 {
	monthSet := make(map[string]struct{}, len(months))
	for _, m := range months {
		monthSet[m] = struct{}{}
	}
	editable := make(map[string]struct{}, len(editableCategoryIDs))
	for _, id := range editableCategoryIDs {
		editable[id] = struct{}{}
	}

	out := make(map[string]int64)
	for _, tx := range txs {
		month := core.MonthKey(tx.Date)
		if month == "" {
			continue
		}
		if _, ok := monthSet[month]; !ok {
			continue
		}
		catID := tx.EffectiveCategoryID()
		if catID == core.TransferCategoryID {
			continue
		}
		if _, ok := editable[catID]; !ok {
			continue
		}
		key := SpendingKey(catID, month)
		if idx.IsIncome(catID) {
			out[key] += tx.AmountCents
		} else {
			// outflows are negative; folding the sign turns them into
			// spending magnitude and lets refunds subtract
			out[key] -= tx.AmountCents
		}
	}
	return out
}

// MonthlyNetChange sums signed amounts per month across all transactions,
// regardless of category. A coarse cash-flow-delta view.
func MonthlyNetChange(txs []core.Transaction) map[string]int64 {
	out := make(map[string]int64)
	for _, tx := range txs {
		if month := core.MonthKey(tx.Date); month != "" {
			out[month] += tx.AmountCents
		}
	}
	return out
}

// BudgetRow is one line of the flattened budget tree.
type BudgetRow struct {
	CategoryID string `json:"categoryId"`
	Name       string `json:"name"`
	ParentID   string `json:"parentId,omitempty"`
	Editable   bool   `json:"editable"`
	IsIncome   bool   `json:"isIncome,omitempty"`
}

// UncategorizedRowName labels the synthetic row for unassigned transactions.
const UncategorizedRowName = "Uncategorized"

// BudgetTree flattens the category tree for budget display. Main categories
// with children become non-editable containers followed by their editable
// children; childless mains are editable leaves. The synthetic Uncategorized
// row appears exactly once, and the transfer category never appears.
func BudgetTree(mains []core.MainCategory, subs []core.SubCategory) []BudgetRow {
	subByID := make(map[string]core.SubCategory, len(subs))
	for _, sub := range subs {
		subByID[sub.ID] = sub
	}

	var rows []BudgetRow
	for _, mc := range mains {
		if mc.ID == core.TransferCategoryID {
			continue
		}
		if len(mc.SubcategoryIDs) == 0 {
			rows = append(rows, BudgetRow{CategoryID: mc.ID, Name: mc.Name, Editable: true, IsIncome: mc.IsIncome})
			continue
		}
		rows = append(rows, BudgetRow{CategoryID: mc.ID, Name: mc.Name, Editable: false, IsIncome: mc.IsIncome})
		for _, subID := range mc.SubcategoryIDs {
			sub, ok := subByID[subID]
			if !ok {
				continue
			}
			rows = append(rows, BudgetRow{
				CategoryID: sub.ID,
				Name:       sub.Name,
				ParentID:   mc.ID,
				Editable:   true,
				IsIncome:   mc.IsIncome,
			})
		}
	}
	rows = append(rows, BudgetRow{CategoryID: core.UncategorizedID, Name: UncategorizedRowName, Editable: true})
	return rows
}

// EditableCategoryIDs extracts the ids whose rows accept budget entries.
func EditableCategoryIDs(rows []BudgetRow) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.Editable {
			out = append(out, row.CategoryID)
		}
	}
	return out
}

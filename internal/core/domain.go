package core

import (
	"errors"
	"strings"
)

const (
	// UncategorizedID is the sentinel category id used when a transaction
	// has no category assigned.
	UncategorizedID = "__uncategorized"

	// TransferCategoryID is the designated category for transfers between
	// own accounts. It is excluded from every budget view.
	TransferCategoryID = "__transfers"
)

type (
	// Transaction is one imported bank-statement row. The identity, date,
	// amount and text fields are fixed at import time; only CategoryID and
	// Locked change afterwards.
	Transaction struct {
		ID                 string `json:"id"`
		Date               string `json:"date"` // ISO YYYY-MM-DD
		AmountCents        int64  `json:"amountCents"`
		Description        string `json:"description"`
		SourceAccount      string `json:"sourceAccount"`
		DestinationAccount string `json:"destinationAccount"`
		Type               string `json:"type"`
		CategoryID         string `json:"categoryId,omitempty"`
		Locked             bool   `json:"locked,omitempty"`
	}

	// MainCategory is a top-level budget bucket. A main category with
	// subcategories acts as a container; one without is directly editable.
	MainCategory struct {
		ID                   string   `json:"id"`
		Name                 string   `json:"name"`
		SortOrder            int      `json:"sortOrder"`
		IsIncome             bool     `json:"isIncome,omitempty"`
		HideFromCategoryPage bool     `json:"hideFromCategoryPage,omitempty"`
		SubcategoryIDs       []string `json:"subcategoryIds,omitempty"`
	}

	// SubCategory is a second-level bucket owned by exactly one main category.
	SubCategory struct {
		ID             string `json:"id"`
		Name           string `json:"name"`
		MainCategoryID string `json:"mainCategoryId"`
	}

	// Rule maps normalized transaction text to a category. At most one rule
	// exists per normalized text.
	Rule struct {
		Text       string `json:"text"` // normalized
		CategoryID string `json:"categoryId"`
	}

	// Lock freezes a transaction's category against rule reapplication.
	Lock struct {
		TransactionID string `json:"transactionId"`
		CategoryID    string `json:"categoryId"`
		Reason        string `json:"reason,omitempty"`
		LockedAt      string `json:"lockedAt,omitempty"` // RFC3339
	}

	// Statistics is derived from the store contents after every mutation.
	// It is never persisted as source of truth.
	Statistics struct {
		Total            int `json:"total"`
		Categorized      int `json:"categorized"`
		Uncategorized    int `json:"uncategorized"`
		Locked           int `json:"locked"`
		DistinctPatterns int `json:"distinctPatterns"`
		PatternsWithRule int `json:"patternsWithRule"`
	}
)

var (
	ErrEmptyDescription  = errors.New("empty description")
	ErrEmptyCategoryName = errors.New("empty category name")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidDate       = errors.New("invalid date")
)

// NormalizeRuleText folds a transaction description into the key space used
// by rules: trimmed and case-folded. Rule matching is exact on this form,
// never substring, so unrelated merchants cannot collide.
func NormalizeRuleText(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// IsCategorized reports whether the transaction has a category assigned.
func (t Transaction) IsCategorized() bool {
	return t.CategoryID != ""
}

// EffectiveCategoryID returns the category id used for aggregation,
// substituting the uncategorized sentinel when none is assigned.
func (t Transaction) EffectiveCategoryID() string {
	if t.CategoryID == "" {
		return UncategorizedID
	}
	return t.CategoryID
}

func (t Transaction) Validate() error {
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if _, err := NormalizeDate(t.Date); err != nil {
		return ErrInvalidDate
	}
	return nil
}

func (c MainCategory) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyCategoryName
	}
	return nil
}

func (s SubCategory) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyCategoryName
	}
	if s.MainCategoryID == "" {
		return errors.New("subcategory without parent")
	}
	return nil
}

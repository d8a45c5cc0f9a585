package core

import "testing"

func TestNormalizeRuleText(t *testing.T) {
	cases := []struct {
		in, out string
	}{
		{"  REWE SAGT DANKE ", "rewe sagt danke"},
		{"Amazon.de", "amazon.de"},
		{"", ""},
		{"  ", ""},
	}
	for _, tc := range cases {
		if got := NormalizeRuleText(tc.in); got != tc.out {
			t.Errorf("NormalizeRuleText(%q) = %q, want %q", tc.in, got, tc.out)
		}
	}
}

func TestEffectiveCategoryID(t *testing.T) {
	tx := Transaction{}
	if got := tx.EffectiveCategoryID(); got != UncategorizedID {
		t.Fatalf("expected uncategorized sentinel, got %q", got)
	}
	tx.CategoryID = "cat-1"
	if got := tx.EffectiveCategoryID(); got != "cat-1" {
		t.Fatalf("expected cat-1, got %q", got)
	}
}

func TestTransactionValidate(t *testing.T) {
	valid := Transaction{Date: "2025-11-03", AmountCents: -100, Description: "REWE"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid transaction rejected: %v", err)
	}
	if err := (Transaction{Date: "2025-11-03", Description: "  "}).Validate(); err != ErrEmptyDescription {
		t.Fatalf("expected ErrEmptyDescription, got %v", err)
	}
	if err := (Transaction{Date: "someday", Description: "REWE"}).Validate(); err != ErrInvalidDate {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestCategoryValidate(t *testing.T) {
	if err := (MainCategory{Name: " "}).Validate(); err != ErrEmptyCategoryName {
		t.Fatalf("expected ErrEmptyCategoryName, got %v", err)
	}
	if err := (SubCategory{Name: "Supermarkt"}).Validate(); err == nil {
		t.Fatal("subcategory without parent must not validate")
	}
	if err := (SubCategory{Name: "Supermarkt", MainCategoryID: "m1"}).Validate(); err != nil {
		t.Fatalf("valid subcategory rejected: %v", err)
	}
}

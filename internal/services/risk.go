package services

import (
	"math"
	"time"

	"konto/internal/core"
)

// RiskTier classifies how likely the month is to end over budget.
type RiskTier string

const (
	RiskLow      RiskTier = "low"
	RiskMedium   RiskTier = "medium"
	RiskHigh     RiskTier = "high"
	RiskVeryHigh RiskTier = "veryHigh"
)

// RiskInput is the planned-vs-actual picture for the month containing Today.
// DaysInMonth defaults to the calendar length of that month when zero.
type RiskInput struct {
	PlannedIncomeCents   int64
	ActualIncomeCents    int64
	PlannedSpendingCents int64
	ActualSpendingCents  int64
	Today                time.Time
	DaysInMonth          int
}

// RiskResult carries the tier plus the intermediate ratios for display.
type RiskResult struct {
	Tier                 RiskTier `json:"tier"`
	IncomeShortfallRatio float64  `json:"incomeShortfallRatio"`
	SpendingRatio        float64  `json:"spendingRatio"`
	MonthProgress        float64  `json:"monthProgress"`
}

// EvaluateBudgetRisk derives a coarse risk tier from planned vs. actual
// income and spending. An exhausted spending budget combined with missing
// income is the worst case; a small income shortfall keeps the month low
// risk regardless of pace; otherwise the tier follows how far the income
// shortfall and the spending pace run ahead of the month.
func EvaluateBudgetRisk(in RiskInput) RiskResult {
	days := in.DaysInMonth
	if days <= 0 {
		days = core.DaysInMonth(in.Today)
	}
	day := in.Today.Day()
	if day < 1 {
		day = 1
	}
	if day > days {
		day = days
	}

	shortfallCents := in.PlannedIncomeCents - in.ActualIncomeCents
	res := RiskResult{
		IncomeShortfallRatio: clampRatio(float64(shortfallCents) / float64(in.PlannedIncomeCents)),
		SpendingRatio:        clampRatio(float64(in.ActualSpendingCents) / float64(in.PlannedSpendingCents)),
		MonthProgress:        clampRatio(float64(day) / float64(days)),
	}

	remainingSpending := in.PlannedSpendingCents - in.ActualSpendingCents
	switch {
	case remainingSpending == 0 && in.PlannedSpendingCents > 0 && shortfallCents > 0:
		res.Tier = RiskVeryHigh
	case res.IncomeShortfallRatio <= 0.2:
		res.Tier = RiskLow
	case res.SpendingRatio-res.MonthProgress > 0.2:
		res.Tier = RiskHigh
	case res.IncomeShortfallRatio <= 0.5:
		if res.MonthProgress > 0.7 {
			res.Tier = RiskHigh
		} else {
			res.Tier = RiskMedium
		}
	default:
		switch {
		case res.MonthProgress <= 0.3:
			res.Tier = RiskMedium
		case res.MonthProgress <= 0.7:
			res.Tier = RiskHigh
		default:
			res.Tier = RiskVeryHigh
		}
	}
	return res
}

// clampRatio folds NaN and infinities (division by a zero plan) to 0.
func clampRatio(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

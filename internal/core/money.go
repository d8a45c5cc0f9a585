// Package core holds the household-finance domain: transactions, the
// two-level category tree, rules, locks and the value parsing shared by the
// import pipeline and the aggregators.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// Money is an amount in cents. Negative cents are outflows.
type Money struct {
	Cents int64
}

// ParseSignedCents converts a decimal string to signed cents with half-up
// rounding on the third decimal place.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators, an
// optional leading sign, and thousands separators as found in German bank
// exports ("1.234,56"). When both separators appear, the last one is the
// decimal separator.
//
// Examples:
//
//	ParseSignedCents("-12,34")   -> -1234, nil
//	ParseSignedCents("1.234,56") -> 123456, nil
//	ParseSignedCents("12.344")   -> 1234, nil (rounds down)
//	ParseSignedCents("+12.345")  -> 1235, nil (rounds up)
func ParseSignedCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	sign := int64(1)
	switch s[0] {
	case '+':
		s = s[1:]
	case '-':
		sign = -1
		s = s[1:]
	}
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s, ok := normalizeSeparators(s)
	if !ok {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	// Prevent overflow when multiplying by 100
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	// Take first two fractional digits; then half-up rounding on third
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	return sign * (iv*100 + fracCents), nil
}

// normalizeSeparators reduces "1.234,56" / "1,234.56" / "12,34" to a plain
// dot-decimal form. The last separator present is treated as the decimal
// point; earlier ones are thousands separators and must group by three.
func normalizeSeparators(s string) (string, bool) {
	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')
	switch {
	case lastComma < 0 && lastDot < 0:
		return s, true
	case lastComma > lastDot:
		if strings.Count(s, ",") > 1 {
			// "1,234,567" is thousands-grouped, no decimal part
			stripped, ok := stripThousands(s, ",")
			return stripped, ok && lastDot < 0
		}
		intSide, ok := stripThousands(s[:lastComma], ".")
		if !ok {
			return "", false
		}
		return intSide + "." + s[lastComma+1:], true
	default:
		if lastComma >= 0 {
			// comma before the decimal dot is a thousands separator
			intSide, ok := stripThousands(s[:lastDot], ",")
			if !ok {
				return "", false
			}
			return intSide + s[lastDot:], true
		}
		if strings.Count(s, ".") > 1 {
			stripped, ok := stripThousands(s, ".")
			return stripped, ok
		}
		return s, true
	}
}

// stripThousands removes a thousands separator, rejecting groups that are
// not exactly three digits ("1.2.3").
func stripThousands(s, sep string) (string, bool) {
	parts := strings.Split(s, sep)
	for i := 1; i < len(parts); i++ {
		if len(parts[i]) != 3 {
			return "", false
		}
	}
	return strings.Join(parts, ""), true
}

// Units returns the major-unit value as float64 for display purposes.
// Use cents for calculations to avoid floating-point precision issues.
func (m Money) Units() float64 {
	return float64(m.Cents) / 100.0
}

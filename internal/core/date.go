package core

import (
	"time"
)

// Date formats accepted by statement exports. German exports use day-first
// with either two or four digit years; ISO is what the store keeps.
var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"02.01.06",
	"2.1.2006",
	"2.1.06",
}

// NormalizeDate parses an ISO (YYYY-MM-DD) or day-first (DD.MM.YY, DD.MM.YYYY)
// date string and returns it in ISO form. Both input forms of the same day
// normalize to the same result, so month bucketing is format independent.
func NormalizeDate(s string) (string, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", ErrInvalidDate
}

// MonthKey returns the YYYY-MM aggregation bucket for a date string in any
// accepted format, or "" when the date does not parse.
func MonthKey(date string) string {
	iso, err := NormalizeDate(date)
	if err != nil {
		return ""
	}
	return iso[:7]
}

// DaysInMonth returns the calendar length of the month containing t.
func DaysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

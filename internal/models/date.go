package models

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format used by the bank gateway and the API
const DateLayout = "2006-01-02"

// DateOf returns the calendar date of t as midnight UTC
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into midnight UTC
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FirstOfMonth returns the first calendar day of t's month
func FirstOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// LastOfMonth returns the last calendar day of t's month
func LastOfMonth(t time.Time) time.Time {
	return FirstOfMonth(t).AddDate(0, 1, -1)
}

// MonthsBefore returns the first day of the month n months before t's month
func MonthsBefore(t time.Time, n int) time.Time {
	return FirstOfMonth(t).AddDate(0, -n, 0)
}

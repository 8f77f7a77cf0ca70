package domain

import (
	"fmt"
	"regexp"
	"time"
)

var monthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// CurrentMonthUTC returns the current UTC calendar month as "YYYY-MM".
func CurrentMonthUTC(now time.Time) string {
	return now.UTC().Format("2006-01")
}

// NormalizeMonth validates an optional "YYYY-MM" month string, defaulting
// to the current UTC month when empty.
func NormalizeMonth(month string, now time.Time) (string, error) {
	if month == "" {
		return CurrentMonthUTC(now), nil
	}
	if !monthPattern.MatchString(month) {
		return "", fmt.Errorf("%w: month must be YYYY-MM", ErrInvalidInput)
	}
	if _, err := time.Parse("2006-01", month); err != nil {
		return "", fmt.Errorf("%w: month must be YYYY-MM", ErrInvalidInput)
	}
	return month, nil
}

// MonthBounds returns the half-open UTC interval [start, end) covering a
// "YYYY-MM" calendar month. December wraps into January of the next year.
func MonthBounds(month string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation("2006-01", month, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: month must be YYYY-MM", ErrInvalidInput)
	}
	return start, start.AddDate(0, 1, 0), nil
}

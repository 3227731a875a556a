package util

import (
	"time"

	"github.com/dafibh/budgetbook/budgetbook-backend/internal/domain"
)

// CurrentMonth returns the month key containing now, in UTC
func CurrentMonth(now time.Time) domain.MonthKey {
	now = now.UTC()
	return domain.NewMonthKey(now.Year(), now.Month())
}

// PreviousMonth returns the month key before k
func PreviousMonth(k domain.MonthKey) domain.MonthKey {
	t := k.Time()
	if t.Month() == time.January {
		return domain.NewMonthKey(t.Year()-1, time.December)
	}
	return domain.NewMonthKey(t.Year(), t.Month()-1)
}

// NextMonth returns the month key after k
func NextMonth(k domain.MonthKey) domain.MonthKey {
	t := k.Time()
	if t.Month() == time.December {
		return domain.NewMonthKey(t.Year()+1, time.January)
	}
	return domain.NewMonthKey(t.Year(), t.Month()+1)
}

// IsHistoricalMonth returns true if k is before the month containing now
func IsHistoricalMonth(k domain.MonthKey, now time.Time) bool {
	return k < CurrentMonth(now)
}

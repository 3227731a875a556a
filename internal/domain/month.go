package domain

import (
	"fmt"
	"strings"
	"time"
)

// MonthKeyLayout is the wire format of a budgeting period
const MonthKeyLayout = "2006-01"

// MonthKey identifies a budgeting period as YYYY-MM
type MonthKey string

// NewMonthKey builds the key for a year and month
func NewMonthKey(year int, month time.Month) MonthKey {
	return MonthKey(fmt.Sprintf("%04d-%02d", year, int(month)))
}

// ParseMonthKey validates a YYYY-MM string
func ParseMonthKey(s string) (MonthKey, error) {
	s = strings.TrimSpace(s)
	if len(s) != len(MonthKeyLayout) {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	if _, err := time.Parse(MonthKeyLayout, s); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	return MonthKey(s), nil
}

// String implements fmt.Stringer
func (k MonthKey) String() string {
	return string(k)
}

// Time returns the first instant of the month in UTC
func (k MonthKey) Time() time.Time {
	t, err := time.Parse(MonthKeyLayout, string(k))
	if err != nil {
		return time.Time{}
	}
	return t
}

// Bounds returns the first and last calendar day of the month
func (k MonthKey) Bounds() (Date, Date) {
	start := k.Time()
	end := start.AddDate(0, 1, -1)
	return Date{Time: start}, Date{Time: end}
}

// Contains reports whether d falls inside the month
func (k MonthKey) Contains(d Date) bool {
	return !d.IsZero() && d.MonthKey() == k
}

package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseMonthKey(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    MonthKey
		wantErr bool
	}{
		{name: "valid", input: "2024-06", want: "2024-06"},
		{name: "valid december", input: "2024-12", want: "2024-12"},
		{name: "surrounding space", input: " 2024-01 ", want: "2024-01"},
		{name: "month 00", input: "2024-00", wantErr: true},
		{name: "month 13", input: "2024-13", wantErr: true},
		{name: "full date", input: "2024-06-01", wantErr: true},
		{name: "no dash", input: "202406", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "text", input: "June", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMonthKey(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidMonthKey) {
					t.Errorf("ParseMonthKey(%q) error = %v, want ErrInvalidMonthKey", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMonthKey(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseMonthKey(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestMonthKeyBounds(t *testing.T) {
	tests := []struct {
		month MonthKey
		first string
		last  string
	}{
		{"2024-01", "2024-01-01", "2024-01-31"},
		{"2024-02", "2024-02-01", "2024-02-29"},
		{"2023-02", "2023-02-01", "2023-02-28"},
		{"2024-12", "2024-12-01", "2024-12-31"},
	}

	for _, tt := range tests {
		t.Run(string(tt.month), func(t *testing.T) {
			first, last := tt.month.Bounds()
			if first.String() != tt.first || last.String() != tt.last {
				t.Errorf("Bounds() = %s..%s, want %s..%s", first, last, tt.first, tt.last)
			}
		})
	}
}

func TestMonthKeyContains(t *testing.T) {
	month := NewMonthKey(2024, time.June)
	if month != "2024-06" {
		t.Fatalf("NewMonthKey() = %q, want 2024-06", month)
	}
	if !month.Contains(NewDate(2024, time.June, 30)) {
		t.Error("expected June 30 to be inside 2024-06")
	}
	if month.Contains(NewDate(2024, time.July, 1)) {
		t.Error("expected July 1 to be outside 2024-06")
	}
	if month.Contains(Date{}) {
		t.Error("expected zero date to be outside every month")
	}
}

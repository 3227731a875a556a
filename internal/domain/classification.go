package domain

import "strings"

// ClassificationType tags spending for needs/wants analysis, independent of the category
type ClassificationType string

const (
	TypeNeed ClassificationType = "NEED"
	TypeWant ClassificationType = "WANT"
	TypeSave ClassificationType = "SAVE"
	TypeDebt ClassificationType = "DEBT"
)

// ClassificationTypes lists every type in display order
var ClassificationTypes = []ClassificationType{TypeNeed, TypeWant, TypeSave, TypeDebt}

// IsValid reports whether t is one of the four known types
func (t ClassificationType) IsValid() bool {
	switch t {
	case TypeNeed, TypeWant, TypeSave, TypeDebt:
		return true
	}
	return false
}

// ParseClassificationType normalizes user input; ok is false for anything unknown
func ParseClassificationType(s string) (ClassificationType, bool) {
	t := ClassificationType(strings.ToUpper(strings.TrimSpace(s)))
	return t, t.IsValid()
}

package domain

import (
	"strings"
	"unicode"
)

// CategoryDefinition describes an expense category and its default classification
type CategoryDefinition struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Icon        string             `json:"icon"`
	DefaultType ClassificationType `json:"type"`
	Custom      bool               `json:"custom,omitempty"`
}

// UncategorizedID is the id callers degrade to when a category cannot be resolved
const UncategorizedID = "UNCATEGORIZED"

// Uncategorized is the definition used for unresolvable category ids
var Uncategorized = CategoryDefinition{
	ID:          UncategorizedID,
	Name:        "Uncategorized",
	Icon:        "help-circle",
	DefaultType: TypeWant,
}

// BuiltinCategories returns a fresh copy of the categories seeded into a new document
func BuiltinCategories() []CategoryDefinition {
	return []CategoryDefinition{
		{ID: "RENT", Name: "Rent", Icon: "home", DefaultType: TypeNeed},
		{ID: "GROCERIES", Name: "Groceries", Icon: "shopping-cart", DefaultType: TypeNeed},
		{ID: "UTILITIES", Name: "Utilities", Icon: "zap", DefaultType: TypeNeed},
		{ID: "TRANSPORT", Name: "Transport", Icon: "bus", DefaultType: TypeNeed},
		{ID: "HEALTH", Name: "Health", Icon: "heart", DefaultType: TypeNeed},
		{ID: "DINING", Name: "Dining Out", Icon: "coffee", DefaultType: TypeWant},
		{ID: "SHOPPING", Name: "Shopping", Icon: "shopping-bag", DefaultType: TypeWant},
		{ID: "ENTERTAINMENT", Name: "Entertainment", Icon: "film", DefaultType: TypeWant},
		{ID: "TRAVEL", Name: "Travel", Icon: "map", DefaultType: TypeWant},
		{ID: "SAVINGS", Name: "Savings", Icon: "piggy-bank", DefaultType: TypeSave},
		{ID: "INVESTMENT", Name: "Investment", Icon: "trending-up", DefaultType: TypeSave},
		{ID: "DEBT_PAYMENT", Name: "Debt Payment", Icon: "credit-card", DefaultType: TypeDebt},
		{ID: "OTHER", Name: "Other", Icon: "more-horizontal", DefaultType: TypeWant},
	}
}

// NormalizeCategoryID turns "dining out" into "DINING_OUT"; it returns "" when nothing usable remains
func NormalizeCategoryID(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.TrimSpace(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToUpper(r))
			lastUnderscore = false
		case !lastUnderscore && b.Len() > 0:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

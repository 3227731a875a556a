package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CategoryBudget is one category's allocation within a month
type CategoryBudget struct {
	Amount decimal.Decimal    `json:"amount"`
	Type   ClassificationType `json:"type"`
}

// UnmarshalJSON accepts the object form and the bare amount older documents
// stored. A bare amount leaves Type empty for the registry to fill in.
func (c *CategoryBudget) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '{' {
		var amount decimal.Decimal
		if err := json.Unmarshal(data, &amount); err != nil {
			amount = decimal.Zero
		}
		*c = CategoryBudget{Amount: ClampAmount(amount)}
		return nil
	}
	var w struct {
		Amount json.RawMessage `json:"amount"`
		Type   string          `json:"type"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode category budget: %w", err)
	}
	t, ok := ParseClassificationType(w.Type)
	if !ok {
		t = ""
	}
	*c = CategoryBudget{Amount: ParseBudgetAmount(string(w.Amount)), Type: t}
	return nil
}

// MonthlyBudget is a month's salary and per-category allocation
type MonthlyBudget struct {
	Month      MonthKey                  `json:"month"`
	Salary     decimal.Decimal           `json:"salary"`
	Categories map[string]CategoryBudget `json:"categories"`
}

// SynthesizeBudget is the budget of a month nobody has edited yet:
// salary 0 and every registry category at 0 with its default type
func SynthesizeBudget(month MonthKey, registry *CategoryRegistry) MonthlyBudget {
	b := MonthlyBudget{Month: month, Salary: decimal.Zero, Categories: make(map[string]CategoryBudget, registry.Len())}
	for _, def := range registry.All() {
		b.Categories[def.ID] = CategoryBudget{Amount: decimal.Zero, Type: def.DefaultType}
	}
	return b
}

// Clone returns a deep copy sharing no storage with b
func (b MonthlyBudget) Clone() MonthlyBudget {
	out := MonthlyBudget{Month: b.Month, Salary: b.Salary, Categories: make(map[string]CategoryBudget, len(b.Categories))}
	for id, c := range b.Categories {
		out.Categories[id] = c
	}
	return out
}

// WithDefaults returns a copy where every registry category is present.
// Missing entries are 0 with the registry default type; entries without a
// type take the registry default.
func (b MonthlyBudget) WithDefaults(registry *CategoryRegistry) MonthlyBudget {
	out := b.Clone()
	for _, def := range registry.All() {
		c, ok := out.Categories[def.ID]
		if !ok {
			out.Categories[def.ID] = CategoryBudget{Amount: decimal.Zero, Type: def.DefaultType}
			continue
		}
		if !c.Type.IsValid() {
			c.Type = def.DefaultType
			out.Categories[def.ID] = c
		}
	}
	for id, c := range out.Categories {
		if !c.Type.IsValid() {
			c.Type = registry.DefaultType(id)
			out.Categories[id] = c
		}
	}
	return out
}

// WithSalary returns a copy with the salary replaced
func (b MonthlyBudget) WithSalary(amount decimal.Decimal) MonthlyBudget {
	out := b.Clone()
	out.Salary = ClampAmount(amount)
	return out
}

// WithCategoryAmount returns a copy with one category's amount replaced.
// A category without an entry gets typ.
func (b MonthlyBudget) WithCategoryAmount(categoryID string, amount decimal.Decimal, typ ClassificationType) MonthlyBudget {
	out := b.Clone()
	c, ok := out.Categories[categoryID]
	if !ok || !c.Type.IsValid() {
		c.Type = typ
	}
	c.Amount = ClampAmount(amount)
	out.Categories[categoryID] = c
	return out
}

// TotalBudgeted is the sum of every category amount
func (b MonthlyBudget) TotalBudgeted() decimal.Decimal {
	total := decimal.Zero
	for _, c := range b.Categories {
		total = total.Add(c.Amount)
	}
	return total
}

// Available is the salary left after all allocations. It may be negative.
func (b MonthlyBudget) Available() decimal.Decimal {
	return b.Salary.Sub(b.TotalBudgeted())
}

// Percentage is the category amount as a share of salary, rounded to one
// decimal place. It is 0 when the salary is not positive.
func (b MonthlyBudget) Percentage(categoryID string) decimal.Decimal {
	return PercentOf(b.Categories[categoryID].Amount, b.Salary)
}

// PercentOf returns part/whole*100 rounded to one place, or 0 when whole <= 0
func PercentOf(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(1)
}

// TotalsByType sums category amounts per classification
func (b MonthlyBudget) TotalsByType() map[ClassificationType]decimal.Decimal {
	totals := make(map[ClassificationType]decimal.Decimal, len(ClassificationTypes))
	for _, t := range ClassificationTypes {
		totals[t] = decimal.Zero
	}
	for _, c := range b.Categories {
		totals[c.Type] = totals[c.Type].Add(c.Amount)
	}
	return totals
}

// ClampAmount coerces negative amounts to 0
func ClampAmount(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// ParseBudgetAmount reads a budget input leniently: numbers and numeric
// strings are accepted, anything else or anything negative becomes 0
func ParseBudgetAmount(raw string) decimal.Decimal {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, `"`)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || s == "null" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return ClampAmount(d)
}

// UnmarshalJSON tolerates a missing or malformed salary, which reads as 0
func (b *MonthlyBudget) UnmarshalJSON(data []byte) error {
	var w struct {
		Month      MonthKey                  `json:"month"`
		Salary     json.RawMessage           `json:"salary"`
		Categories map[string]CategoryBudget `json:"categories"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode monthly budget: %w", err)
	}
	if w.Categories == nil {
		w.Categories = make(map[string]CategoryBudget)
	}
	*b = MonthlyBudget{Month: w.Month, Salary: ParseBudgetAmount(string(w.Salary)), Categories: w.Categories}
	return nil
}

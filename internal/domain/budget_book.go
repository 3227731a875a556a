package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/benbjohnson/immutable"
)

type monthKeyComparer struct{}

func (monthKeyComparer) Compare(a, b MonthKey) int {
	return strings.Compare(string(a), string(b))
}

// BudgetBook holds the stored monthly budgets. It is a persistent map:
// With returns a new book sharing every untouched month with the old one,
// so an edit costs O(log months) and never aliases another month.
// The zero value is an empty book.
type BudgetBook struct {
	m *immutable.SortedMap[MonthKey, MonthlyBudget]
}

// NewBudgetBook builds a book from already decoded budgets
func NewBudgetBook(budgets ...MonthlyBudget) BudgetBook {
	var book BudgetBook
	for _, b := range budgets {
		book = book.With(b)
	}
	return book
}

func (b BudgetBook) tree() *immutable.SortedMap[MonthKey, MonthlyBudget] {
	if b.m == nil {
		return immutable.NewSortedMap[MonthKey, MonthlyBudget](monthKeyComparer{})
	}
	return b.m
}

// Lookup returns a private copy of the stored budget for month
func (b BudgetBook) Lookup(month MonthKey) (MonthlyBudget, bool) {
	if b.m == nil {
		return MonthlyBudget{}, false
	}
	v, ok := b.m.Get(month)
	if !ok {
		return MonthlyBudget{}, false
	}
	return v.Clone(), true
}

// With returns a book where budget.Month maps to a copy of budget
func (b BudgetBook) With(budget MonthlyBudget) BudgetBook {
	return BudgetBook{m: b.tree().Set(budget.Month, budget.Clone())}
}

// Without returns a book with no stored budget for month
func (b BudgetBook) Without(month MonthKey) BudgetBook {
	if b.m == nil {
		return b
	}
	return BudgetBook{m: b.m.Delete(month)}
}

// Len returns the number of stored months
func (b BudgetBook) Len() int {
	if b.m == nil {
		return 0
	}
	return b.m.Len()
}

// Months returns the stored month keys in ascending order
func (b BudgetBook) Months() []MonthKey {
	months := make([]MonthKey, 0, b.Len())
	if b.m == nil {
		return months
	}
	itr := b.m.Iterator()
	for !itr.Done() {
		k, _, _ := itr.Next()
		months = append(months, k)
	}
	return months
}

// MarshalJSON encodes the book as a month → budget object
func (b BudgetBook) MarshalJSON() ([]byte, error) {
	out := make(map[string]MonthlyBudget, b.Len())
	if b.m != nil {
		itr := b.m.Iterator()
		for !itr.Done() {
			k, v, _ := itr.Next()
			out[string(k)] = v
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a month → budget object. Entries with a malformed
// month key are skipped; the key wins over any month field in the value.
func (b *BudgetBook) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode budgets: %w", err)
	}
	var book BudgetBook
	for key, msg := range raw {
		month, err := ParseMonthKey(key)
		if err != nil {
			continue
		}
		var mb MonthlyBudget
		if err := json.Unmarshal(msg, &mb); err != nil {
			return fmt.Errorf("decode budget %s: %w", key, err)
		}
		mb.Month = month
		mb.Salary = ClampAmount(mb.Salary)
		if mb.Categories == nil {
			mb.Categories = make(map[string]CategoryBudget)
		}
		book = book.With(mb)
	}
	*b = book
	return nil
}

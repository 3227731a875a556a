package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBudgetBookZeroValue(t *testing.T) {
	var book BudgetBook
	_, ok := book.Lookup("2024-01")
	assert.False(t, ok)
	assert.Equal(t, 0, book.Len())
	assert.Empty(t, book.Months())

	out, err := json.Marshal(book)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(out))
}

func TestBudgetBookWithLeavesOtherMonthsIndependent(t *testing.T) {
	reg := testRegistry()
	jan := SynthesizeBudget("2024-01", reg).WithSalary(decimal.NewFromInt(100))
	feb := SynthesizeBudget("2024-02", reg).WithSalary(decimal.NewFromInt(200))
	book := NewBudgetBook(jan, feb)
	bookBefore, err := json.Marshal(book)
	require.NoError(t, err)

	edited, _ := book.Lookup("2024-02")
	next := book.With(edited.WithCategoryAmount("RENT", decimal.NewFromInt(50), TypeNeed))

	before, _ := book.Lookup("2024-02")
	after, _ := next.Lookup("2024-02")
	assert.True(t, before.Categories["RENT"].Amount.IsZero())
	assert.Equal(t, "50", after.Categories["RENT"].Amount.String())

	oldJan, _ := book.Lookup("2024-01")
	newJan, _ := next.Lookup("2024-01")
	assert.Equal(t, oldJan, newJan)

	// editing January in the new book must not reach the old one
	newJan.Categories["RENT"] = CategoryBudget{Amount: decimal.NewFromInt(999), Type: TypeNeed}
	third := next.With(newJan.WithSalary(decimal.NewFromInt(1)))

	oldJan, _ = book.Lookup("2024-01")
	assert.True(t, oldJan.Categories["RENT"].Amount.IsZero())
	assert.Equal(t, "100", oldJan.Salary.String())
	nextJan, _ := next.Lookup("2024-01")
	assert.True(t, nextJan.Categories["RENT"].Amount.IsZero())
	thirdJan, _ := third.Lookup("2024-01")
	assert.Equal(t, "999", thirdJan.Categories["RENT"].Amount.String())

	bookAfter, err := json.Marshal(book)
	require.NoError(t, err)
	assert.JSONEq(t, string(bookBefore), string(bookAfter))
}

func TestBudgetBookLookupReturnsPrivateCopy(t *testing.T) {
	book := NewBudgetBook(SynthesizeBudget("2024-01", testRegistry()))

	got, ok := book.Lookup("2024-01")
	require.True(t, ok)
	got.Categories["RENT"] = CategoryBudget{Amount: decimal.NewFromInt(999), Type: TypeNeed}

	again, _ := book.Lookup("2024-01")
	assert.True(t, again.Categories["RENT"].Amount.IsZero())
}

func TestBudgetBookMonthsSorted(t *testing.T) {
	book := NewBudgetBook(
		MonthlyBudget{Month: "2024-03"},
		MonthlyBudget{Month: "2023-12"},
		MonthlyBudget{Month: "2024-01"},
	)
	assert.Equal(t, []MonthKey{"2023-12", "2024-01", "2024-03"}, book.Months())

	book = book.Without("2024-01")
	assert.Equal(t, []MonthKey{"2023-12", "2024-03"}, book.Months())
}

func TestBudgetBookJSON(t *testing.T) {
	input := `{"2024-06":{"salary":300000,"categories":{"RENT":80000}},"junk":{"salary":1}}`

	var book BudgetBook
	require.NoError(t, json.Unmarshal([]byte(input), &book))
	require.Equal(t, 1, book.Len())

	b, ok := book.Lookup("2024-06")
	require.True(t, ok)
	assert.Equal(t, MonthKey("2024-06"), b.Month)
	assert.Equal(t, "300000", b.Salary.String())
	assert.Equal(t, "80000", b.Categories["RENT"].Amount.String())

	out, err := json.Marshal(book)
	require.NoError(t, err)

	var roundTrip BudgetBook
	require.NoError(t, json.Unmarshal(out, &roundTrip))
	again, _ := roundTrip.Lookup("2024-06")
	assert.Equal(t, b.Salary.String(), again.Salary.String())
}

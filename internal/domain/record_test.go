package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordWithSyncedDoesNotAlias(t *testing.T) {
	e := Expense{ID: uuid.New(), Amount: decimal.NewFromInt(10), Date: NewDate(2024, time.January, 5)}
	r := ExpenseRecord(e)

	synced := r.WithSynced(true)

	assert.True(t, synced.Synced())
	assert.False(t, r.Synced(), "original record must keep its flag")
	assert.Equal(t, r.ID(), synced.ID())
	assert.Equal(t, "2024-01-05", synced.Date().String())
}

func TestDecodeRecord(t *testing.T) {
	id := uuid.New()
	payload, err := json.Marshal(Transfer{ID: id, Amount: decimal.NewFromInt(5), Direction: DirectionCashToBank})
	require.NoError(t, err)

	r, err := DecodeRecord(KindTransfer, payload)
	require.NoError(t, err)
	require.True(t, r.Valid())
	assert.Equal(t, id, r.ID())
	assert.Equal(t, CashAccountID, r.Transfer.FromAccountID)
	assert.Equal(t, LegacyBankAccountID, r.Transfer.ToAccountID)

	_, err = DecodeRecord("loan", payload)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestTransferNormalizedKeepsExplicitAccounts(t *testing.T) {
	tr := Transfer{FromAccountID: "main", ToAccountID: "cash", Direction: DirectionCashToBank}
	got := tr.Normalized()
	assert.Equal(t, "main", got.FromAccountID)
	assert.Equal(t, "cash", got.ToAccountID)

	legacy := Transfer{Direction: DirectionBankToCash}.Normalized()
	assert.Equal(t, LegacyBankAccountID, legacy.FromAccountID)
	assert.Equal(t, CashAccountID, legacy.ToAccountID)
}

func TestTransactionFilterMatches(t *testing.T) {
	r := IncomeRecord(Income{ID: uuid.New(), Date: NewDate(2024, time.March, 10)})

	assert.True(t, TransactionFilter{}.Matches(r))
	assert.True(t, TransactionFilter{Kind: KindIncome, UnsyncedOnly: true}.Matches(r))
	assert.False(t, TransactionFilter{Kind: KindExpense}.Matches(r))
	assert.False(t, TransactionFilter{From: NewDate(2024, time.March, 11)}.Matches(r))
	assert.False(t, TransactionFilter{To: NewDate(2024, time.March, 9)}.Matches(r))
	assert.True(t, TransactionFilter{From: NewDate(2024, time.March, 10), To: NewDate(2024, time.March, 10)}.Matches(r))
	assert.False(t, TransactionFilter{UnsyncedOnly: true}.Matches(r.WithSynced(true)))
}

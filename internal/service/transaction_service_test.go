package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dafibh/budgetbook/budgetbook-backend/internal/domain"
	"github.com/dafibh/budgetbook/budgetbook-backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transactionFixture struct {
	svc       *TransactionService
	docs      *DocumentService
	ledger    *LedgerService
	accounts  *AccountService
	txRepo    *testutil.MockTransactionRepository
	publisher *testutil.RecordingPublisher
}

func newTransactionFixture(t *testing.T) transactionFixture {
	t.Helper()
	docs, _ := newTestDocuments(t)
	txRepo := testutil.NewMockTransactionRepository()
	publisher := &testutil.RecordingPublisher{}

	ledger := NewLedgerService(docs, txRepo)
	ledger.SetClock(testutil.FixedClock(testNow))
	ledger.SetEventPublisher(publisher)

	svc := NewTransactionService(txRepo, docs)
	svc.SetClock(testutil.FixedClock(testNow))
	svc.SetEventPublisher(publisher)
	svc.SetBalanceRefresher(ledger)

	return transactionFixture{
		svc:       svc,
		docs:      docs,
		ledger:    ledger,
		accounts:  NewAccountService(docs),
		txRepo:    txRepo,
		publisher: publisher,
	}
}

func (f transactionFixture) createAccount(t *testing.T, name string) domain.BankAccount {
	t.Helper()
	account, err := f.accounts.CreateAccount(context.Background(), CreateAccountInput{Name: name})
	require.NoError(t, err)
	return account
}

func TestTransactionService_AppendExpense(t *testing.T) {
	f := newTransactionFixture(t)

	expense, err := f.svc.AppendExpense(context.Background(), ExpenseInput{
		Date:     "2024-06-10",
		Time:     "12:30",
		Amount:   dec(2000),
		Category: "groceries",
		Store:    " Fresh Market ",
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, expense.ID)
	assert.Equal(t, uuid.Version(7), expense.ID.Version())
	assert.True(t, testNow.Equal(expense.CreatedAt))
	assert.False(t, expense.Synced)
	assert.Equal(t, "GROCERIES", expense.Category)
	assert.Equal(t, domain.TypeNeed, expense.Type)
	assert.Equal(t, domain.CashAccountID, expense.AccountID)
	assert.Equal(t, "Fresh Market", expense.Store)
	assert.Equal(t, domain.ProvenanceManual, expense.Source)

	stored, err := f.svc.GetTransaction(context.Background(), expense.ID)
	require.NoError(t, err)
	assert.Equal(t, expense.Amount.String(), stored.Expense.Amount.String())

	assert.Equal(t, []string{"transaction.created", "balances.updated"}, f.publisher.Types())
	assert.Equal(t, "-2000", f.docs.Snapshot().Balances.Cash.String())
}

func TestTransactionService_AppendExpenseClassification(t *testing.T) {
	tests := []struct {
		name         string
		category     string
		typ          string
		wantCategory string
		wantType     domain.ClassificationType
	}{
		{name: "registry default", category: "DINING", wantCategory: "DINING", wantType: domain.TypeWant},
		{name: "valid override", category: "DINING", typ: "save", wantCategory: "DINING", wantType: domain.TypeSave},
		{name: "invalid override ignored", category: "RENT", typ: "LUXURY", wantCategory: "RENT", wantType: domain.TypeNeed},
		{name: "unknown category kept", category: "pet food", wantCategory: "PET_FOOD", wantType: domain.Uncategorized.DefaultType},
		{name: "empty category", category: "", wantCategory: domain.UncategorizedID, wantType: domain.Uncategorized.DefaultType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTransactionFixture(t)

			expense, err := f.svc.AppendExpense(context.Background(), ExpenseInput{
				Date:     "2024-06-10",
				Amount:   dec(1),
				Category: tt.category,
				Type:     tt.typ,
			})
			require.NoError(t, err)

			assert.Equal(t, tt.wantCategory, expense.Category)
			assert.Equal(t, tt.wantType, expense.Type)
		})
	}
}

func TestTransactionService_CardPaymentUsesDefaultAccount(t *testing.T) {
	f := newTransactionFixture(t)
	ctx := context.Background()

	_, err := f.svc.AppendExpense(ctx, ExpenseInput{Date: "2024-06-10", Amount: dec(10), PaymentMethod: "card"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransaction)

	main := f.createAccount(t, "Main")
	expense, err := f.svc.AppendExpense(ctx, ExpenseInput{Date: "2024-06-10", Amount: dec(10), PaymentMethod: "Card"})
	require.NoError(t, err)

	assert.Equal(t, "card", expense.PaymentMethod)
	assert.Equal(t, main.ID, expense.AccountID)
}

func TestTransactionService_AppendExpenseRejects(t *testing.T) {
	tests := []struct {
		name  string
		input ExpenseInput
	}{
		{name: "zero amount", input: ExpenseInput{Date: "2024-06-10", Amount: dec(0)}},
		{name: "negative amount", input: ExpenseInput{Date: "2024-06-10", Amount: dec(-5)}},
		{name: "malformed date", input: ExpenseInput{Date: "10/06/2024", Amount: dec(5)}},
		{name: "impossible date", input: ExpenseInput{Date: "2024-02-30", Amount: dec(5)}},
		{name: "missing date", input: ExpenseInput{Amount: dec(5)}},
		{name: "bad time", input: ExpenseInput{Date: "2024-06-10", Time: "25:00", Amount: dec(5)}},
		{name: "unknown account", input: ExpenseInput{Date: "2024-06-10", Amount: dec(5), PaymentMethod: "nope"}},
		{name: "store too long", input: ExpenseInput{Date: "2024-06-10", Amount: dec(5), Store: strings.Repeat("x", domain.MaxDescriptionLength+1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTransactionFixture(t)

			_, err := f.svc.AppendExpense(context.Background(), tt.input)

			assert.ErrorIs(t, err, domain.ErrInvalidTransaction)
			assert.Equal(t, 0, f.txRepo.Len())
			assert.Empty(t, f.publisher.Types())
		})
	}
}

func TestTransactionService_AppendExpenseCountsCharacters(t *testing.T) {
	f := newTransactionFixture(t)
	ctx := context.Background()

	store := strings.Repeat("é", domain.MaxDescriptionLength)
	expense, err := f.svc.AppendExpense(ctx, ExpenseInput{Date: "2024-06-10", Amount: dec(5), Store: store})
	require.NoError(t, err)
	assert.Equal(t, store, expense.Store)

	_, err = f.svc.AppendExpense(ctx, ExpenseInput{Date: "2024-06-10", Amount: dec(5), Store: store + "é"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransaction)
	assert.Equal(t, 1, f.txRepo.Len())
}

func TestTransactionService_AppendIncome(t *testing.T) {
	f := newTransactionFixture(t)
	ctx := context.Background()
	f.createAccount(t, "Main")

	income, err := f.svc.AppendIncome(ctx, IncomeInput{Date: "2024-06-01", Amount: dec(300000), Category: "salary", AccountID: "main"})
	require.NoError(t, err)
	assert.Equal(t, domain.IncomeSalary, income.Category)
	assert.Equal(t, "main", income.AccountID)

	income, err = f.svc.AppendIncome(ctx, IncomeInput{Date: "2024-06-02", Amount: dec(5)})
	require.NoError(t, err)
	assert.Equal(t, domain.IncomeOther, income.Category)
	assert.Equal(t, domain.CashAccountID, income.AccountID)

	for _, input := range []IncomeInput{
		{Date: "2024-06-02", Amount: dec(5), AccountID: "card"},
		{Date: "2024-06-02", Amount: dec(5), AccountID: "nope"},
		{Date: "2024-06-02", Amount: dec(5), Category: "LOTTERY"},
		{Date: "2024-06-02", Amount: dec(0)},
	} {
		_, err := f.svc.AppendIncome(ctx, input)
		assert.ErrorIs(t, err, domain.ErrInvalidTransaction, "%+v", input)
	}
	assert.Equal(t, 2, f.txRepo.Len())
}

func TestTransactionService_AppendTransfer(t *testing.T) {
	f := newTransactionFixture(t)
	ctx := context.Background()
	f.createAccount(t, "Main")

	transfer, err := f.svc.AppendTransfer(ctx, TransferInput{Date: "2024-06-03", Amount: dec(700), FromAccountID: "main", ToAccountID: "cash"})
	require.NoError(t, err)
	assert.Equal(t, "main", transfer.FromAccountID)

	balances := f.docs.Snapshot().Balances
	assert.Equal(t, "700", balances.Cash.String())
	assert.Equal(t, "-700", balances.Balance("main").String())
}

func TestTransactionService_SelfTransferRejected(t *testing.T) {
	f := newTransactionFixture(t)
	ctx := context.Background()

	_, err := f.svc.AppendTransfer(ctx, TransferInput{Date: "2024-06-03", Amount: dec(700), FromAccountID: "cash", ToAccountID: "cash"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransaction)

	_, err = f.svc.AppendTransfer(ctx, TransferInput{Date: "2024-06-03", Amount: dec(700), FromAccountID: "cash", ToAccountID: "nope"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransaction)

	assert.Equal(t, 0, f.txRepo.Len())
	balance, err := f.ledger.RunningBalance(ctx, domain.CashAccountID, domain.NewDate(2024, 6, 30))
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestTransactionService_AppendRepositoryError(t *testing.T) {
	f := newTransactionFixture(t)
	f.txRepo.AppendErr = errors.New("db down")

	_, err := f.svc.AppendExpense(context.Background(), ExpenseInput{Date: "2024-06-10", Amount: dec(5)})

	assert.ErrorIs(t, err, f.txRepo.AppendErr)
	assert.Empty(t, f.publisher.Types())
}

func TestTransactionService_ListTransactionsIsChronological(t *testing.T) {
	f := newTransactionFixture(t)
	ctx := context.Background()
	_, err := f.svc.AppendExpense(ctx, ExpenseInput{Date: "2024-06-10", Amount: dec(1)})
	require.NoError(t, err)
	_, err = f.svc.AppendIncome(ctx, IncomeInput{Date: "2024-06-01", Amount: dec(1)})
	require.NoError(t, err)

	records, err := f.svc.ListTransactions(ctx, domain.TransactionFilter{})
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, domain.KindIncome, records[0].Kind)
	assert.Equal(t, domain.KindExpense, records[1].Kind)
}

func TestTransactionService_MarkSynced(t *testing.T) {
	f := newTransactionFixture(t)
	ctx := context.Background()
	a, err := f.svc.AppendExpense(ctx, ExpenseInput{Date: "2024-06-10", Amount: dec(1)})
	require.NoError(t, err)
	b, err := f.svc.AppendExpense(ctx, ExpenseInput{Date: "2024-06-11", Amount: dec(2)})
	require.NoError(t, err)

	n, err := f.svc.MarkSynced(ctx, []uuid.UUID{a.ID, uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	unsynced, err := f.svc.Unsynced(ctx)
	require.NoError(t, err)
	require.Len(t, unsynced, 1)
	assert.Equal(t, b.ID, unsynced[0].ID())

	stored, err := f.svc.GetTransaction(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, stored.Synced())
	assert.Equal(t, "1", stored.Expense.Amount.String())

	n, err = f.svc.MarkSynced(ctx, []uuid.UUID{a.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Contains(t, f.publisher.Types(), "transaction.synced")
}

func TestTransactionService_MergeRemote(t *testing.T) {
	f := newTransactionFixture(t)
	ctx := context.Background()

	synced := testutil.Expense("cash", 100, domain.NewDate(2024, 6, 1)).WithSynced(true)
	pending := testutil.Expense("cash", 200, domain.NewDate(2024, 6, 2))
	f.txRepo.AddRecord(synced)
	f.txRepo.AddRecord(pending)

	remoteSynced := synced.Clone()
	remoteSynced.Expense.Store = "Edited remotely"
	remotePending := pending.Clone()
	remotePending.Expense.Store = "Should not win"
	fresh := testutil.Income("cash", 50, domain.NewDate(2024, 6, 3))

	result, err := f.svc.MergeRemote(ctx, []domain.Record{remoteSynced, remotePending, fresh, {Kind: domain.KindExpense}})
	require.NoError(t, err)

	assert.Equal(t, MergeResult{Inserted: 1, Updated: 1, Skipped: 1, Invalid: 1}, result)

	got, err := f.svc.GetTransaction(ctx, synced.ID())
	require.NoError(t, err)
	assert.Equal(t, "Edited remotely", got.Expense.Store)

	got, err = f.svc.GetTransaction(ctx, pending.ID())
	require.NoError(t, err)
	assert.Empty(t, got.Expense.Store)
	assert.False(t, got.Synced())

	got, err = f.svc.GetTransaction(ctx, fresh.ID())
	require.NoError(t, err)
	assert.True(t, got.Synced())

	assert.Equal(t, []string{"transaction.merged", "balances.updated"}, f.publisher.Types())
}

func TestTransactionService_MergeRemoteRejectsInvalidRecords(t *testing.T) {
	f := newTransactionFixture(t)
	ctx := context.Background()
	june := domain.NewDate(2024, 6, 1)

	negative := testutil.Expense("cash", -500, june)
	ghostTransfer := testutil.Transfer("cash", "ghost", 100, june)
	selfTransfer := testutil.Transfer("cash", "cash", 100, june)
	undated := testutil.Income("cash", 100, domain.Date{})
	cardIncome := testutil.Income("card", 100, june)
	badClock := testutil.Expense("cash", 100, june)
	badClock.Expense.Time = "25:61"
	longStore := testutil.Expense("cash", 100, june)
	longStore.Expense.Store = strings.Repeat("x", domain.MaxDescriptionLength+1)

	result, err := f.svc.MergeRemote(ctx, []domain.Record{
		negative, ghostTransfer, selfTransfer, undated, cardIncome, badClock, longStore,
	})
	require.NoError(t, err)

	assert.Equal(t, MergeResult{Invalid: 7}, result)
	assert.Equal(t, 0, f.txRepo.Len())
	assert.Empty(t, f.publisher.Types())

	balance, err := f.ledger.RunningBalance(ctx, domain.CashAccountID, domain.NewDate(2024, 6, 30))
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestTransactionService_MergeRemoteDoesNotReplaceWithInvalid(t *testing.T) {
	f := newTransactionFixture(t)
	ctx := context.Background()

	synced := testutil.Expense("cash", 100, domain.NewDate(2024, 6, 1)).WithSynced(true)
	f.txRepo.AddRecord(synced)

	remote := synced.Clone()
	remote.Expense.Amount = dec(-100)

	result, err := f.svc.MergeRemote(ctx, []domain.Record{remote})
	require.NoError(t, err)
	assert.Equal(t, MergeResult{Invalid: 1}, result)

	got, err := f.svc.GetTransaction(ctx, synced.ID())
	require.NoError(t, err)
	assert.Equal(t, "100", got.Expense.Amount.String())
}

package service

import (
	"context"
	"testing"

	"github.com/dafibh/budgetbook/budgetbook-backend/internal/domain"
	"github.com/dafibh/budgetbook/budgetbook-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAccountService(t *testing.T) (*AccountService, *DocumentService, *testutil.RecordingPublisher) {
	t.Helper()
	docs, _ := newTestDocuments(t)
	svc := NewAccountService(docs)
	publisher := &testutil.RecordingPublisher{}
	svc.SetEventPublisher(publisher)
	return svc, docs, publisher
}

func TestAccountService_CreateAccount(t *testing.T) {
	svc, _, publisher := newTestAccountService(t)
	ctx := context.Background()

	first, err := svc.CreateAccount(ctx, CreateAccountInput{Name: "Main Checking"})
	require.NoError(t, err)
	assert.Equal(t, "main-checking", first.ID)
	assert.True(t, first.IsDefault, "first account becomes the default")

	second, err := svc.CreateAccount(ctx, CreateAccountInput{ID: "Savings", Name: "Rainy day"})
	require.NoError(t, err)
	assert.Equal(t, "savings", second.ID)
	assert.False(t, second.IsDefault)

	assert.Len(t, svc.ListAccounts(), 2)
	assert.Equal(t, []string{"account.created", "account.created"}, publisher.Types())
}

func TestAccountService_CreateAccountErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   CreateAccountInput
		wantErr error
	}{
		{name: "missing name", input: CreateAccountInput{Name: "  "}, wantErr: domain.ErrNameRequired},
		{name: "cash reserved", input: CreateAccountInput{Name: "Cash"}, wantErr: domain.ErrReservedAccount},
		{name: "card reserved", input: CreateAccountInput{ID: "card", Name: "My card"}, wantErr: domain.ErrReservedAccount},
		{name: "no usable id", input: CreateAccountInput{Name: "!!!"}, wantErr: domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestAccountService(t)

			_, err := svc.CreateAccount(context.Background(), tt.input)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, svc.ListAccounts())
		})
	}
}

func TestAccountService_CreateDuplicate(t *testing.T) {
	svc, _, _ := newTestAccountService(t)
	ctx := context.Background()
	_, err := svc.CreateAccount(ctx, CreateAccountInput{Name: "Main"})
	require.NoError(t, err)

	_, err = svc.CreateAccount(ctx, CreateAccountInput{Name: "main"})

	assert.ErrorIs(t, err, domain.ErrAccountExists)
}

func TestAccountService_SetDefaultAccountKeepsOneDefault(t *testing.T) {
	svc, docs, _ := newTestAccountService(t)
	ctx := context.Background()
	_, err := svc.CreateAccount(ctx, CreateAccountInput{Name: "Main"})
	require.NoError(t, err)
	_, err = svc.CreateAccount(ctx, CreateAccountInput{Name: "Savings"})
	require.NoError(t, err)

	_, err = svc.SetDefaultAccount(ctx, "savings")
	require.NoError(t, err)

	defaults := 0
	for _, a := range svc.ListAccounts() {
		if a.IsDefault {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults)
	def, ok := docs.Snapshot().DefaultAccount()
	require.True(t, ok)
	assert.Equal(t, "savings", def.ID)

	_, err = svc.SetDefaultAccount(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestAccountService_RenameAccount(t *testing.T) {
	svc, _, _ := newTestAccountService(t)
	ctx := context.Background()
	_, err := svc.CreateAccount(ctx, CreateAccountInput{Name: "Main"})
	require.NoError(t, err)

	renamed, err := svc.RenameAccount(ctx, "main", "Everyday")
	require.NoError(t, err)

	assert.Equal(t, "main", renamed.ID)
	got, err := svc.GetAccount("main")
	require.NoError(t, err)
	assert.Equal(t, "Everyday", got.Name)

	_, err = svc.RenameAccount(ctx, "main", "")
	assert.ErrorIs(t, err, domain.ErrNameRequired)
}

func TestAccountService_DeleteAccount(t *testing.T) {
	svc, docs, publisher := newTestAccountService(t)
	ctx := context.Background()
	_, err := svc.CreateAccount(ctx, CreateAccountInput{Name: "Main"})
	require.NoError(t, err)
	_, err = docs.Update(ctx, func(doc domain.Document) (domain.Document, error) {
		doc.Balances.StartingBalance = doc.Balances.StartingBalance.With("main", domain.BalanceAnchor{Balance: dec(10), AsOfDate: domain.NewDate(2024, 1, 1)})
		doc.Balances.Accounts["main"] = dec(10)
		return doc, nil
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAccount(ctx, "main"))

	doc := docs.Snapshot()
	assert.False(t, doc.KnownAccount("main"))
	_, anchored := doc.Balances.StartingBalance.Anchor("main")
	assert.False(t, anchored)
	assert.NotContains(t, doc.Balances.Accounts, "main")
	assert.Contains(t, publisher.Types(), "account.deleted")

	assert.ErrorIs(t, svc.DeleteAccount(ctx, "main"), domain.ErrAccountNotFound)
	assert.ErrorIs(t, svc.DeleteAccount(ctx, domain.CashAccountID), domain.ErrReservedAccount)
}

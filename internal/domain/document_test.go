package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocumentSeedsBuiltins(t *testing.T) {
	doc := NewDocument(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	assert.Len(t, doc.Categories, len(BuiltinCategories()))
	assert.True(t, doc.Registry().Contains("RENT"))
	assert.True(t, doc.KnownAccount(CashAccountID))
	assert.False(t, doc.KnownAccount("main"))
	_, ok := doc.DefaultAccount()
	assert.False(t, ok)
}

func TestDocumentNormalizeAddsLegacyBankAccount(t *testing.T) {
	input := `{"categories":[{"id":"RENT","name":"Rent","type":"NEED"}],"balances":{"cash":0,"startingBalance":{"bank":5000,"asOfDate":"2024-01-01"}}}`

	var doc Document
	require.NoError(t, json.Unmarshal([]byte(input), &doc))

	changed := doc.Normalize(time.Now())
	assert.True(t, changed)
	account, ok := doc.Account(LegacyBankAccountID)
	require.True(t, ok)
	assert.True(t, account.IsDefault)
	assert.Equal(t, []string{CashAccountID, LegacyBankAccountID}, doc.AccountIDs())

	out, err := json.Marshal(doc)
	require.NoError(t, err)
	var again Document
	require.NoError(t, json.Unmarshal(out, &again))
	assert.False(t, again.Normalize(time.Now()), "a normalized document needs no further migration")
}

func TestDocumentCloneIsIndependent(t *testing.T) {
	doc := NewDocument(time.Now())
	doc.BankAccounts = append(doc.BankAccounts, BankAccount{ID: "main", Name: "Main"})

	c := doc.Clone()
	c.BankAccounts[0].Name = "Changed"
	c.Categories[0].Name = "Changed"

	assert.Equal(t, "Main", doc.BankAccounts[0].Name)
	assert.NotEqual(t, "Changed", doc.Categories[0].Name)
}

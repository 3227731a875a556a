package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SyncSettings is where the webhook pusher sends transactions
type SyncSettings struct {
	Endpoint string `json:"endpoint,omitempty"`
	Secret   string `json:"secret,omitempty"`
}

// Document is the single user's configuration, read and written as a whole
type Document struct {
	GeminiKey    string               `json:"geminiKey,omitempty"`
	Sync         SyncSettings         `json:"sync"`
	Categories   []CategoryDefinition `json:"categories"`
	Budgets      BudgetBook           `json:"budgets"`
	BankAccounts []BankAccount        `json:"bankAccounts"`
	Balances     AccountBalances      `json:"balances"`
	Theme        string               `json:"theme,omitempty"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

// NewDocument creates the document of a first run, seeded with the built-in categories
func NewDocument(now time.Time) Document {
	return Document{
		Categories:   BuiltinCategories(),
		BankAccounts: []BankAccount{},
		Balances: AccountBalances{
			Cash:            decimal.Zero,
			Accounts:        map[string]decimal.Decimal{},
			StartingBalance: StartingBalance{AccountBalances: map[string]BalanceAnchor{}},
		},
		Theme:     "system",
		UpdatedAt: now.UTC(),
	}
}

// Clone returns a deep copy. Budgets are persistent and shared as is.
func (d Document) Clone() Document {
	out := d
	out.Categories = append([]CategoryDefinition(nil), d.Categories...)
	out.BankAccounts = append([]BankAccount(nil), d.BankAccounts...)
	out.Balances = d.Balances.Clone()
	return out
}

// Registry indexes the document's categories
func (d Document) Registry() *CategoryRegistry {
	return NewCategoryRegistry(d.Categories)
}

// Account returns the bank account with id
func (d Document) Account(id string) (BankAccount, bool) {
	for _, a := range d.BankAccounts {
		if a.ID == id {
			return a, true
		}
	}
	return BankAccount{}, false
}

// KnownAccount reports whether id is cash or a bank account of this document
func (d Document) KnownAccount(id string) bool {
	if id == CashAccountID {
		return true
	}
	_, ok := d.Account(id)
	return ok
}

// DefaultAccount returns the bank account card payments are charged to
func (d Document) DefaultAccount() (BankAccount, bool) {
	for _, a := range d.BankAccounts {
		if a.IsDefault {
			return a, true
		}
	}
	return BankAccount{}, false
}

// AccountIDs returns cash followed by every bank account id
func (d Document) AccountIDs() []string {
	ids := make([]string, 0, len(d.BankAccounts)+1)
	ids = append(ids, CashAccountID)
	for _, a := range d.BankAccounts {
		ids = append(ids, a.ID)
	}
	return ids
}

// Normalize repairs what older documents lack. A balance anchored to the
// single-bank era id gets a matching bank account so it stays reachable.
// It reports whether anything changed.
func (d *Document) Normalize(now time.Time) bool {
	changed := false
	if d.Categories == nil {
		d.Categories = BuiltinCategories()
		changed = true
	}
	if d.BankAccounts == nil {
		d.BankAccounts = []BankAccount{}
	}
	if d.Balances.Accounts == nil {
		d.Balances.Accounts = map[string]decimal.Decimal{}
	}
	if d.Balances.StartingBalance.AccountBalances == nil {
		d.Balances.StartingBalance.AccountBalances = map[string]BalanceAnchor{}
	}
	_, anchored := d.Balances.StartingBalance.Anchor(LegacyBankAccountID)
	_, cached := d.Balances.Accounts[LegacyBankAccountID]
	if (anchored || cached) && !d.KnownAccount(LegacyBankAccountID) {
		_, hasDefault := d.DefaultAccount()
		d.BankAccounts = append(d.BankAccounts, BankAccount{
			ID:        LegacyBankAccountID,
			Name:      "Bank",
			IsDefault: !hasDefault,
			CreatedAt: now.UTC(),
		})
		changed = true
	}
	if d.Balances.StartingBalance.Migrated() {
		changed = true
	}
	return changed
}

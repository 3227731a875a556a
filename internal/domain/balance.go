package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// BalanceAnchor is one account's starting point for running balances
type BalanceAnchor struct {
	Balance  decimal.Decimal `json:"balance"`
	AsOfDate Date            `json:"asOfDate"`
}

// MigrationSource tags the stored shape an anchor was read from
type MigrationSource string

const (
	SourceCurrent    MigrationSource = "current"
	SourceSharedDate MigrationSource = "shared_date"
	SourceScalar     MigrationSource = "scalar"
)

// StartingBalance maps account ids to independently dated anchors.
//
// Older documents stored either a flat balance map under one shared
// asOfDate, or the scalar cash/bank fields. Both are folded into
// AccountBalances when decoded; only the per-account shape is ever encoded.
type StartingBalance struct {
	AccountBalances map[string]BalanceAnchor `json:"accountBalances"`

	// Sources records where each anchor came from. Logging only.
	Sources map[string]MigrationSource `json:"-"`
	// Ambiguous is set when more than one stored shape was present
	Ambiguous bool `json:"-"`
}

// Anchor returns the starting point for accountID, if one is recorded
func (s StartingBalance) Anchor(accountID string) (BalanceAnchor, bool) {
	a, ok := s.AccountBalances[accountID]
	return a, ok
}

// With returns a copy of s with accountID anchored at a.
// Provenance is dropped since the result is always current-format.
func (s StartingBalance) With(accountID string, a BalanceAnchor) StartingBalance {
	out := StartingBalance{AccountBalances: make(map[string]BalanceAnchor, len(s.AccountBalances)+1)}
	for id, anchor := range s.AccountBalances {
		out.AccountBalances[id] = anchor
	}
	out.AccountBalances[accountID] = a
	return out
}

// Without returns a copy of s with no anchor for accountID
func (s StartingBalance) Without(accountID string) StartingBalance {
	out := StartingBalance{AccountBalances: make(map[string]BalanceAnchor, len(s.AccountBalances))}
	for id, anchor := range s.AccountBalances {
		if id != accountID {
			out.AccountBalances[id] = anchor
		}
	}
	return out
}

// Clone returns a deep copy
func (s StartingBalance) Clone() StartingBalance {
	out := StartingBalance{Ambiguous: s.Ambiguous}
	if s.AccountBalances != nil {
		out.AccountBalances = make(map[string]BalanceAnchor, len(s.AccountBalances))
		for id, a := range s.AccountBalances {
			out.AccountBalances[id] = a
		}
	}
	if s.Sources != nil {
		out.Sources = make(map[string]MigrationSource, len(s.Sources))
		for id, src := range s.Sources {
			out.Sources[id] = src
		}
	}
	return out
}

// Migrated reports whether any anchor was read from a legacy shape
func (s StartingBalance) Migrated() bool {
	for _, src := range s.Sources {
		if src != SourceCurrent {
			return true
		}
	}
	return false
}

// AccountIDs returns the anchored account ids in sorted order
func (s StartingBalance) AccountIDs() []string {
	ids := make([]string, 0, len(s.AccountBalances))
	for id := range s.AccountBalances {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// startingBalanceWire is every field any document version has used
type startingBalanceWire struct {
	AccountBalances map[string]BalanceAnchor   `json:"accountBalances"`
	Accounts        map[string]decimal.Decimal `json:"accounts"`
	AsOfDate        Date                       `json:"asOfDate"`
	Cash            *decimal.Decimal           `json:"cash"`
	Bank            *decimal.Decimal           `json:"bank"`
}

// UnmarshalJSON normalizes every stored shape into AccountBalances.
// Per account, the per-account format wins over the shared-date map,
// which wins over the deprecated scalars.
func (s *StartingBalance) UnmarshalJSON(data []byte) error {
	var w startingBalanceWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode starting balance: %w", err)
	}

	out := StartingBalance{
		AccountBalances: make(map[string]BalanceAnchor),
		Sources:         make(map[string]MigrationSource),
	}
	shapes := 0

	if len(w.AccountBalances) > 0 {
		shapes++
		for id, a := range w.AccountBalances {
			out.AccountBalances[id] = a
			out.Sources[id] = SourceCurrent
		}
	}

	if len(w.Accounts) > 0 {
		shapes++
		for id, bal := range w.Accounts {
			if _, ok := out.AccountBalances[id]; ok {
				continue
			}
			out.AccountBalances[id] = BalanceAnchor{Balance: bal, AsOfDate: w.AsOfDate}
			out.Sources[id] = SourceSharedDate
		}
	}

	if w.Cash != nil || w.Bank != nil {
		shapes++
		scalars := []struct {
			id  string
			bal *decimal.Decimal
		}{{CashAccountID, w.Cash}, {LegacyBankAccountID, w.Bank}}
		for _, sc := range scalars {
			if sc.bal == nil {
				continue
			}
			if _, ok := out.AccountBalances[sc.id]; ok {
				continue
			}
			out.AccountBalances[sc.id] = BalanceAnchor{Balance: *sc.bal, AsOfDate: w.AsOfDate}
			out.Sources[sc.id] = SourceScalar
		}
	}

	out.Ambiguous = shapes > 1
	*s = out
	return nil
}

// MarshalJSON always writes the per-account shape
func (s StartingBalance) MarshalJSON() ([]byte, error) {
	balances := s.AccountBalances
	if balances == nil {
		balances = map[string]BalanceAnchor{}
	}
	return json.Marshal(struct {
		AccountBalances map[string]BalanceAnchor `json:"accountBalances"`
	}{balances})
}

// AccountBalances is the derived balance cache stored in the document.
// It is always reproducible from StartingBalance and the transactions.
type AccountBalances struct {
	Cash            decimal.Decimal            `json:"cash"`
	Accounts        map[string]decimal.Decimal `json:"accounts"`
	LastUpdated     time.Time                  `json:"lastUpdated"`
	StartingBalance StartingBalance            `json:"startingBalance"`
}

// Balance returns the cached balance for accountID
func (b AccountBalances) Balance(accountID string) decimal.Decimal {
	if accountID == CashAccountID {
		return b.Cash
	}
	return b.Accounts[accountID]
}

// Clone returns a deep copy
func (b AccountBalances) Clone() AccountBalances {
	out := b
	if b.Accounts != nil {
		out.Accounts = make(map[string]decimal.Decimal, len(b.Accounts))
		for id, bal := range b.Accounts {
			out.Accounts[id] = bal
		}
	}
	out.StartingBalance = b.StartingBalance.Clone()
	return out
}

// UnmarshalJSON also accepts the single-bank `bank` scalar of older documents
func (b *AccountBalances) UnmarshalJSON(data []byte) error {
	var w struct {
		Cash            decimal.Decimal            `json:"cash"`
		Accounts        map[string]decimal.Decimal `json:"accounts"`
		Bank            *decimal.Decimal           `json:"bank"`
		LastUpdated     time.Time                  `json:"lastUpdated"`
		StartingBalance *StartingBalance           `json:"startingBalance"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode account balances: %w", err)
	}
	out := AccountBalances{
		Cash:        w.Cash,
		Accounts:    w.Accounts,
		LastUpdated: w.LastUpdated,
	}
	if out.Accounts == nil {
		out.Accounts = make(map[string]decimal.Decimal)
	}
	if w.Bank != nil {
		if _, ok := out.Accounts[LegacyBankAccountID]; !ok {
			out.Accounts[LegacyBankAccountID] = *w.Bank
		}
	}
	if w.StartingBalance != nil {
		out.StartingBalance = *w.StartingBalance
	} else {
		out.StartingBalance = StartingBalance{AccountBalances: map[string]BalanceAnchor{}}
	}
	*b = out
	return nil
}

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	KindExpense  TransactionKind = "expense"
	KindIncome   TransactionKind = "income"
	KindTransfer TransactionKind = "transfer"
)

// IsValid reports whether k is a known transaction kind
func (k TransactionKind) IsValid() bool {
	return k == KindExpense || k == KindIncome || k == KindTransfer
}

// Provenance records how an expense was entered
type Provenance string

const (
	ProvenanceManual  Provenance = "manual"
	ProvenanceReceipt Provenance = "receipt"
)

type IncomeCategory string

const (
	IncomeSalary    IncomeCategory = "SALARY"
	IncomeFreelance IncomeCategory = "FREELANCE"
	IncomeBonus     IncomeCategory = "BONUS"
	IncomeRefund    IncomeCategory = "REFUND"
	IncomeGift      IncomeCategory = "GIFT"
	IncomeOther     IncomeCategory = "OTHER"
)

// IsValid reports whether c is one of the fixed income categories
func (c IncomeCategory) IsValid() bool {
	switch c {
	case IncomeSalary, IncomeFreelance, IncomeBonus, IncomeRefund, IncomeGift, IncomeOther:
		return true
	}
	return false
}

type Expense struct {
	ID            uuid.UUID          `json:"id"`
	CreatedAt     time.Time          `json:"createdAt"`
	Date          Date               `json:"date"`
	Time          string             `json:"time,omitempty"`
	Amount        decimal.Decimal    `json:"amount"`
	Category      string             `json:"category"`
	Type          ClassificationType `json:"type"`
	PaymentMethod string             `json:"paymentMethod"`
	AccountID     string             `json:"accountId"`
	Store         string             `json:"store"`
	Notes         string             `json:"notes,omitempty"`
	Source        Provenance         `json:"source"`
	Synced        bool               `json:"synced"`
}

// Account returns the account the expense is charged to. Records written
// before account ids existed only carry a payment method.
func (e Expense) Account() string {
	if e.AccountID != "" {
		return e.AccountID
	}
	switch e.PaymentMethod {
	case "", CashAccountID:
		return CashAccountID
	case PaymentMethodCard, LegacyBankAccountID:
		return LegacyBankAccountID
	}
	return e.PaymentMethod
}

type Income struct {
	ID          uuid.UUID       `json:"id"`
	CreatedAt   time.Time       `json:"createdAt"`
	Date        Date            `json:"date"`
	Time        string          `json:"time,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Category    IncomeCategory  `json:"category"`
	AccountID   string          `json:"accountId"`
	Description string          `json:"description"`
	Notes       string          `json:"notes,omitempty"`
	Synced      bool            `json:"synced"`
}

// Legacy transfer directions, from before transfers carried explicit account ids
const (
	DirectionBankToCash = "bank_to_cash"
	DirectionCashToBank = "cash_to_bank"
)

type Transfer struct {
	ID            uuid.UUID       `json:"id"`
	CreatedAt     time.Time       `json:"createdAt"`
	Date          Date            `json:"date"`
	Time          string          `json:"time,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	FromAccountID string          `json:"fromAccountId"`
	ToAccountID   string          `json:"toAccountId"`
	Description   string          `json:"description"`
	Notes         string          `json:"notes,omitempty"`
	Synced        bool            `json:"synced"`
	Direction     string          `json:"direction,omitempty"`
}

// Normalized fills FromAccountID/ToAccountID from the legacy direction tag
// when a stored transfer predates explicit account ids
func (t Transfer) Normalized() Transfer {
	if t.FromAccountID != "" || t.ToAccountID != "" {
		return t
	}
	switch t.Direction {
	case DirectionBankToCash:
		t.FromAccountID, t.ToAccountID = LegacyBankAccountID, CashAccountID
	case DirectionCashToBank:
		t.FromAccountID, t.ToAccountID = CashAccountID, LegacyBankAccountID
	}
	return t
}

// LedgerEntry is one line of an account statement
type LedgerEntry struct {
	Kind        TransactionKind `json:"kind"`
	ID          uuid.UUID       `json:"id"`
	Date        Date            `json:"date"`
	Time        string          `json:"time,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Balance     decimal.Decimal `json:"balance"`
}

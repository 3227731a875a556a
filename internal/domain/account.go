package domain

import (
	"strings"
	"time"
	"unicode"
)

// CashAccountID is the reserved id of the physical cash wallet
const CashAccountID = "cash"

// LegacyBankAccountID is the id assigned to balances from the single-bank era
const LegacyBankAccountID = "bank"

// PaymentMethodCard charges an expense to the default bank account
const PaymentMethodCard = "card"

type BankAccount struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsDefault bool      `json:"isDefault"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsReservedAccountID reports whether id can never be a BankAccount
func IsReservedAccountID(id string) bool {
	return id == CashAccountID || id == PaymentMethodCard
}

// AccountIDFromName derives a stable lowercase id such as "main-checking"
func AccountIDFromName(name string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.TrimSpace(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			lastDash = false
		case !lastDash && b.Len() > 0:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

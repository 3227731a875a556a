package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Record is a single stored transaction of any kind. Exactly one of the
// pointers is set, matching Kind.
type Record struct {
	Kind     TransactionKind `json:"kind"`
	Expense  *Expense        `json:"expense,omitempty"`
	Income   *Income         `json:"income,omitempty"`
	Transfer *Transfer       `json:"transfer,omitempty"`
}

// ExpenseRecord wraps a copy of e
func ExpenseRecord(e Expense) Record {
	return Record{Kind: KindExpense, Expense: &e}
}

// IncomeRecord wraps a copy of i
func IncomeRecord(i Income) Record {
	return Record{Kind: KindIncome, Income: &i}
}

// TransferRecord wraps a copy of t
func TransferRecord(t Transfer) Record {
	return Record{Kind: KindTransfer, Transfer: &t}
}

// ID returns the identity of the wrapped transaction
func (r Record) ID() uuid.UUID {
	switch r.Kind {
	case KindExpense:
		return r.Expense.ID
	case KindIncome:
		return r.Income.ID
	case KindTransfer:
		return r.Transfer.ID
	}
	return uuid.Nil
}

// Synced reports the sync flag of the wrapped transaction
func (r Record) Synced() bool {
	switch r.Kind {
	case KindExpense:
		return r.Expense.Synced
	case KindIncome:
		return r.Income.Synced
	case KindTransfer:
		return r.Transfer.Synced
	}
	return false
}

// CreatedAt returns the append timestamp of the wrapped transaction
func (r Record) CreatedAt() time.Time {
	switch r.Kind {
	case KindExpense:
		return r.Expense.CreatedAt
	case KindIncome:
		return r.Income.CreatedAt
	case KindTransfer:
		return r.Transfer.CreatedAt
	}
	return time.Time{}
}

// Date returns the transaction date of the wrapped transaction
func (r Record) Date() Date {
	switch r.Kind {
	case KindExpense:
		return r.Expense.Date
	case KindIncome:
		return r.Income.Date
	case KindTransfer:
		return r.Transfer.Date
	}
	return Date{}
}

// Clock returns the optional HH:MM time of the wrapped transaction
func (r Record) Clock() string {
	switch r.Kind {
	case KindExpense:
		return r.Expense.Time
	case KindIncome:
		return r.Income.Time
	case KindTransfer:
		return r.Transfer.Time
	}
	return ""
}

// WithSynced returns a copy of r whose sync flag is set to synced.
// The receiver is never modified.
func (r Record) WithSynced(synced bool) Record {
	switch r.Kind {
	case KindExpense:
		e := *r.Expense
		e.Synced = synced
		return ExpenseRecord(e)
	case KindIncome:
		i := *r.Income
		i.Synced = synced
		return IncomeRecord(i)
	case KindTransfer:
		t := *r.Transfer
		t.Synced = synced
		return TransferRecord(t)
	}
	return r
}

// Clone returns a copy that shares no pointers with r
func (r Record) Clone() Record {
	return r.WithSynced(r.Synced())
}

// Valid reports whether the kind and payload agree
func (r Record) Valid() bool {
	switch r.Kind {
	case KindExpense:
		return r.Expense != nil
	case KindIncome:
		return r.Income != nil
	case KindTransfer:
		return r.Transfer != nil
	}
	return false
}

// Payload returns the wrapped transaction for serialization
func (r Record) Payload() any {
	switch r.Kind {
	case KindExpense:
		return r.Expense
	case KindIncome:
		return r.Income
	case KindTransfer:
		return r.Transfer
	}
	return nil
}

// DecodeRecord rebuilds a record from its kind and JSON payload
func DecodeRecord(kind TransactionKind, payload []byte) (Record, error) {
	switch kind {
	case KindExpense:
		var e Expense
		if err := json.Unmarshal(payload, &e); err != nil {
			return Record{}, fmt.Errorf("decode expense: %w", err)
		}
		return ExpenseRecord(e), nil
	case KindIncome:
		var i Income
		if err := json.Unmarshal(payload, &i); err != nil {
			return Record{}, fmt.Errorf("decode income: %w", err)
		}
		return IncomeRecord(i), nil
	case KindTransfer:
		var t Transfer
		if err := json.Unmarshal(payload, &t); err != nil {
			return Record{}, fmt.Errorf("decode transfer: %w", err)
		}
		return TransferRecord(t.Normalized()), nil
	}
	return Record{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, kind)
}

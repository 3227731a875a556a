package domain

import (
	"context"

	"github.com/google/uuid"
)

// DocumentRepository loads and stores the configuration document as a whole
type DocumentRepository interface {
	// Load returns ErrNotFound when no document has been saved yet
	Load(ctx context.Context) (Document, error)
	Save(ctx context.Context, doc Document) error
}

// TransactionFilter narrows List. Zero values match everything.
type TransactionFilter struct {
	Kind         TransactionKind
	From         Date
	To           Date
	UnsyncedOnly bool
}

// Matches reports whether r passes the filter
func (f TransactionFilter) Matches(r Record) bool {
	if f.Kind != "" && r.Kind != f.Kind {
		return false
	}
	if f.UnsyncedOnly && r.Synced() {
		return false
	}
	d := r.Date()
	if !f.From.IsZero() && d.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && d.After(f.To) {
		return false
	}
	return true
}

// TransactionRepository stores appended records. Business fields are never
// rewritten; Replace exists for merging remote copies of synced records.
type TransactionRepository interface {
	Append(ctx context.Context, r Record) error
	Get(ctx context.Context, id uuid.UUID) (Record, error)
	Replace(ctx context.Context, r Record) error
	List(ctx context.Context, filter TransactionFilter) ([]Record, error)
	MarkSynced(ctx context.Context, ids []uuid.UUID) (int, error)
}

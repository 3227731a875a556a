package memory

import (
	"context"
	"sync"

	"github.com/dafibh/budgetbook/budgetbook-backend/internal/domain"
	"github.com/google/uuid"
)

// TransactionRepository is an in-memory domain.TransactionRepository.
// Records are kept in append order.
type TransactionRepository struct {
	mu      sync.RWMutex
	records []domain.Record
	index   map[uuid.UUID]int
}

// NewTransactionRepository creates an empty repository
func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{index: make(map[uuid.UUID]int)}
}

// Append implements domain.TransactionRepository
func (r *TransactionRepository) Append(ctx context.Context, rec domain.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := rec.ID()
	if _, exists := r.index[id]; exists {
		return domain.ErrTransactionExists
	}
	r.index[id] = len(r.records)
	r.records = append(r.records, rec.Clone())
	return nil
}

// Get implements domain.TransactionRepository
func (r *TransactionRepository) Get(ctx context.Context, id uuid.UUID) (domain.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[id]
	if !ok {
		return domain.Record{}, domain.ErrTransactionNotFound
	}
	return r.records[i].Clone(), nil
}

// Replace implements domain.TransactionRepository
func (r *TransactionRepository) Replace(ctx context.Context, rec domain.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[rec.ID()]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	r.records[i] = rec.Clone()
	return nil
}

// List implements domain.TransactionRepository
func (r *TransactionRepository) List(ctx context.Context, filter domain.TransactionFilter) ([]domain.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Record, 0, len(r.records))
	for _, rec := range r.records {
		if filter.Matches(rec) {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

// MarkSynced implements domain.TransactionRepository. Unknown and already
// synced ids are ignored; the count is of records actually flipped.
func (r *TransactionRepository) MarkSynced(ctx context.Context, ids []uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	flipped := 0
	for _, id := range ids {
		i, ok := r.index[id]
		if !ok || r.records[i].Synced() {
			continue
		}
		r.records[i] = r.records[i].WithSynced(true)
		flipped++
	}
	return flipped, nil
}

// Len returns the number of stored records
func (r *TransactionRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

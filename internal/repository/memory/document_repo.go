package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dafibh/budgetbook/budgetbook-backend/internal/domain"
)

// DocumentRepository keeps the serialized document in memory. Every Load
// decodes a fresh copy, so callers never share state with the store.
type DocumentRepository struct {
	mu   sync.RWMutex
	data []byte
}

// NewDocumentRepository creates an empty repository
func NewDocumentRepository() *DocumentRepository {
	return &DocumentRepository{}
}

// NewDocumentRepositoryFromJSON seeds the repository with a stored document,
// which may be in any older shape
func NewDocumentRepositoryFromJSON(data []byte) *DocumentRepository {
	return &DocumentRepository{data: append([]byte(nil), data...)}
}

// Load implements domain.DocumentRepository
func (r *DocumentRepository) Load(ctx context.Context) (domain.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.data == nil {
		return domain.Document{}, domain.ErrNotFound
	}
	var doc domain.Document
	if err := json.Unmarshal(r.data, &doc); err != nil {
		return domain.Document{}, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// Save implements domain.DocumentRepository
func (r *DocumentRepository) Save(ctx context.Context, doc domain.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	r.mu.Lock()
	r.data = data
	r.mu.Unlock()
	return nil
}

// Raw returns the stored JSON
func (r *DocumentRepository) Raw() []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]byte(nil), r.data...)
}

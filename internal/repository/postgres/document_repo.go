package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dafibh/budgetbook/budgetbook-backend/internal/domain"
	"github.com/jackc/pgx/v5"
)

// DocumentRepository implements domain.DocumentRepository with a single jsonb row
type DocumentRepository struct {
	db querier
}

// NewDocumentRepository creates a new DocumentRepository
func NewDocumentRepository(db querier) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Load returns domain.ErrNotFound until the first Save
func (r *DocumentRepository) Load(ctx context.Context) (domain.Document, error) {
	var body []byte
	err := r.db.QueryRow(ctx, `SELECT body FROM documents WHERE id = 1`).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Document{}, domain.ErrNotFound
		}
		return domain.Document{}, fmt.Errorf("load document: %w", err)
	}
	var doc domain.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return domain.Document{}, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// Save replaces the stored document
func (r *DocumentRepository) Save(ctx context.Context, doc domain.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO documents (id, body, updated_at) VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`, body)
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

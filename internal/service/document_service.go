package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dafibh/budgetbook/budgetbook-backend/internal/domain"
	"github.com/rs/zerolog/log"
)

// DocumentService owns the single configuration document. Reads are
// snapshots; writes go through Update, which persists before publishing.
type DocumentService struct {
	repo domain.DocumentRepository
	now  func() time.Time

	mu  sync.RWMutex
	doc domain.Document
}

// NewDocumentService creates a new DocumentService. Call Load before use.
func NewDocumentService(repo domain.DocumentRepository) *DocumentService {
	return &DocumentService{
		repo: repo,
		now:  time.Now,
		doc:  domain.NewDocument(time.Now()),
	}
}

// SetClock replaces the time source
func (s *DocumentService) SetClock(now func() time.Time) {
	s.now = now
}

// Load reads the stored document, creating and seeding one on first run.
// Legacy balance shapes are folded into the current format here and the
// document is written back once in that shape.
func (s *DocumentService) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.repo.Load(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		doc = domain.NewDocument(s.now())
		if err := s.repo.Save(ctx, doc); err != nil {
			return fmt.Errorf("save new document: %w", err)
		}
		log.Info().Int("categories", len(doc.Categories)).Msg("Created configuration document")
		s.doc = doc
		return nil
	}
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	logStartingBalanceMigration(doc.Balances.StartingBalance)

	if doc.Normalize(s.now()) {
		doc.UpdatedAt = s.now().UTC()
		if err := s.repo.Save(ctx, doc); err != nil {
			return fmt.Errorf("save migrated document: %w", err)
		}
		log.Info().Msg("Rewrote configuration document in current format")
	}
	s.doc = doc
	return nil
}

func logStartingBalanceMigration(sb domain.StartingBalance) {
	if sb.Ambiguous {
		log.Warn().
			Err(domain.ErrMigrationAmbiguous).
			Strs("accounts", sb.AccountIDs()).
			Msg("Starting balance present in several legacy shapes, resolved by priority")
	}
	for _, id := range sb.AccountIDs() {
		src := sb.Sources[id]
		if src == "" || src == domain.SourceCurrent {
			continue
		}
		log.Info().
			Str("account_id", id).
			Str("source", string(src)).
			Msg("Migrated legacy starting balance")
	}
}

// Snapshot returns a private copy of the current document
func (s *DocumentService) Snapshot() domain.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone()
}

// Registry returns the category registry of the current document
func (s *DocumentService) Registry() *domain.CategoryRegistry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Registry()
}

// Update applies fn to a copy of the document and saves the result.
// When fn or the save fails the current document is left untouched.
func (s *DocumentService) Update(ctx context.Context, fn func(doc domain.Document) (domain.Document, error)) (domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.doc.Clone())
	if err != nil {
		return domain.Document{}, err
	}
	next.UpdatedAt = s.now().UTC()
	if err := s.repo.Save(ctx, next); err != nil {
		return domain.Document{}, fmt.Errorf("save document: %w", err)
	}
	s.doc = next
	return next.Clone(), nil
}

// SettingsInput holds the editable document settings. Nil fields are left unchanged.
type SettingsInput struct {
	GeminiKey    *string
	SyncEndpoint *string
	SyncSecret   *string
	Theme        *string
}

// Settings is the settings view of the document. Secrets are never echoed back.
type Settings struct {
	HasGeminiKey  bool   `json:"hasGeminiKey"`
	SyncEndpoint  string `json:"syncEndpoint"`
	HasSyncSecret bool   `json:"hasSyncSecret"`
	Theme         string `json:"theme"`
}

// GetSettings returns the current settings
func (s *DocumentService) GetSettings() Settings {
	return settingsOf(s.Snapshot())
}

// UpdateSettings changes the provided settings
func (s *DocumentService) UpdateSettings(ctx context.Context, input SettingsInput) (Settings, error) {
	doc, err := s.Update(ctx, func(doc domain.Document) (domain.Document, error) {
		if input.GeminiKey != nil {
			doc.GeminiKey = *input.GeminiKey
		}
		if input.SyncEndpoint != nil {
			endpoint := strings.TrimSpace(*input.SyncEndpoint)
			if endpoint != "" && !validEndpoint(endpoint) {
				return doc, fmt.Errorf("%w: sync endpoint must be an http(s) URL", domain.ErrInvalidInput)
			}
			doc.Sync.Endpoint = endpoint
		}
		if input.SyncSecret != nil {
			doc.Sync.Secret = *input.SyncSecret
		}
		if input.Theme != nil {
			doc.Theme = *input.Theme
		}
		return doc, nil
	})
	if err != nil {
		return Settings{}, err
	}
	return settingsOf(doc), nil
}

func settingsOf(doc domain.Document) Settings {
	return Settings{
		HasGeminiKey:  doc.GeminiKey != "",
		SyncEndpoint:  doc.Sync.Endpoint,
		HasSyncSecret: doc.Sync.Secret != "",
		Theme:         doc.Theme,
	}
}

func validEndpoint(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

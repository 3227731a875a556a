package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/dafibh/budgetbook/budgetbook-backend/internal/domain"
	"github.com/dafibh/budgetbook/budgetbook-backend/internal/websocket"
)

// CategoryService handles the category registry of the document
type CategoryService struct {
	docs           *DocumentService
	eventPublisher websocket.EventPublisher
}

// NewCategoryService creates a new CategoryService
func NewCategoryService(docs *DocumentService) *CategoryService {
	return &CategoryService{docs: docs}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *CategoryService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *CategoryService) publishEvent(event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(event)
	}
}

// ListCategories returns every category in registration order
func (s *CategoryService) ListCategories() []domain.CategoryDefinition {
	return s.docs.Registry().All()
}

// Resolve returns the definition for id or an error wrapping ErrUnknownCategory
func (s *CategoryService) Resolve(id string) (domain.CategoryDefinition, error) {
	return s.docs.Registry().Resolve(id)
}

// DefaultType returns the classification used when a transaction does not override it
func (s *CategoryService) DefaultType(id string) domain.ClassificationType {
	return s.docs.Registry().DefaultType(id)
}

// AddCategoryInput holds the input for adding a custom category
type AddCategoryInput struct {
	ID   string // optional; derived from Name when empty
	Name string
	Icon string
	Type string
}

// AddCategory registers a custom category. Its id is fixed from then on.
func (s *CategoryService) AddCategory(ctx context.Context, input AddCategoryInput) (domain.CategoryDefinition, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return domain.CategoryDefinition{}, domain.ErrNameRequired
	}
	if len(name) > domain.MaxCategoryNameLength {
		return domain.CategoryDefinition{}, domain.ErrNameTooLong
	}

	rawID := input.ID
	if strings.TrimSpace(rawID) == "" {
		rawID = name
	}
	id := domain.NormalizeCategoryID(rawID)
	if id == "" || id == domain.UncategorizedID {
		return domain.CategoryDefinition{}, fmt.Errorf("%w: %q", domain.ErrInvalidCategoryID, rawID)
	}

	typ, ok := domain.ParseClassificationType(input.Type)
	if !ok {
		return domain.CategoryDefinition{}, fmt.Errorf("%w: %q", domain.ErrInvalidType, input.Type)
	}

	def := domain.CategoryDefinition{
		ID:          id,
		Name:        name,
		Icon:        strings.TrimSpace(input.Icon),
		DefaultType: typ,
		Custom:      true,
	}
	if def.Icon == "" {
		def.Icon = "tag"
	}

	_, err := s.docs.Update(ctx, func(doc domain.Document) (domain.Document, error) {
		if doc.Registry().Contains(id) {
			return doc, fmt.Errorf("%w: %s", domain.ErrCategoryExists, id)
		}
		doc.Categories = append(doc.Categories, def)
		return doc, nil
	})
	if err != nil {
		return domain.CategoryDefinition{}, err
	}

	s.publishEvent(websocket.CategoryCreated(def))
	return def, nil
}

// UpdateCategoryInput holds the editable category fields. Nil fields are left unchanged.
type UpdateCategoryInput struct {
	Name *string
	Icon *string
	Type *string
}

// UpdateCategory changes the name, icon or default type of a category. The id never changes.
func (s *CategoryService) UpdateCategory(ctx context.Context, id string, input UpdateCategoryInput) (domain.CategoryDefinition, error) {
	var updated domain.CategoryDefinition

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return updated, domain.ErrNameRequired
		}
		if len(name) > domain.MaxCategoryNameLength {
			return updated, domain.ErrNameTooLong
		}
		input.Name = &name
	}
	var typ domain.ClassificationType
	if input.Type != nil {
		var ok bool
		typ, ok = domain.ParseClassificationType(*input.Type)
		if !ok {
			return updated, fmt.Errorf("%w: %q", domain.ErrInvalidType, *input.Type)
		}
	}

	_, err := s.docs.Update(ctx, func(doc domain.Document) (domain.Document, error) {
		for i := range doc.Categories {
			if doc.Categories[i].ID != id {
				continue
			}
			if input.Name != nil {
				doc.Categories[i].Name = *input.Name
			}
			if input.Icon != nil {
				doc.Categories[i].Icon = strings.TrimSpace(*input.Icon)
			}
			if input.Type != nil {
				doc.Categories[i].DefaultType = typ
			}
			updated = doc.Categories[i]
			return doc, nil
		}
		return doc, fmt.Errorf("%w: %w: %q", domain.ErrNotFound, domain.ErrUnknownCategory, id)
	})
	if err != nil {
		return domain.CategoryDefinition{}, err
	}

	s.publishEvent(websocket.CategoryUpdated(updated))
	return updated, nil
}

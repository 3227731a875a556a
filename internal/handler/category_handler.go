package handler

import (
	"net/http"

	"github.com/dafibh/budgetbook/budgetbook-backend/internal/domain"
	"github.com/dafibh/budgetbook/budgetbook-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// CategoryHandler handles category registry requests
type CategoryHandler struct {
	categoryService *service.CategoryService
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// CreateCategoryRequest represents the create category request body
type CreateCategoryRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
	Type string `json:"type"`
}

// UpdateCategoryRequest represents the update category request body.
// Omitted fields are left unchanged.
type UpdateCategoryRequest struct {
	Name *string `json:"name"`
	Icon *string `json:"icon"`
	Type *string `json:"type"`
}

// GetCategories handles GET /api/v1/categories
func (h *CategoryHandler) GetCategories(c echo.Context) error {
	return c.JSON(http.StatusOK, h.categoryService.ListCategories())
}

// GetCategory handles GET /api/v1/categories/:id. Unknown ids resolve to
// the uncategorized entry.
func (h *CategoryHandler) GetCategory(c echo.Context) error {
	def, err := h.categoryService.Resolve(c.Param("id"))
	if err != nil {
		log.Debug().Err(err).Str("category_id", c.Param("id")).Msg("Category resolved to uncategorized")
		def = domain.Uncategorized
	}
	return c.JSON(http.StatusOK, def)
}

// CreateCategory handles POST /api/v1/categories
func (h *CategoryHandler) CreateCategory(c echo.Context) error {
	var req CreateCategoryRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	def, err := h.categoryService.AddCategory(c.Request().Context(), service.AddCategoryInput{
		ID:   req.ID,
		Name: req.Name,
		Icon: req.Icon,
		Type: req.Type,
	})
	if err != nil {
		return NewServiceError(c, err, "Failed to create category")
	}

	log.Info().Str("category_id", def.ID).Msg("Category created")
	return c.JSON(http.StatusCreated, def)
}

// UpdateCategory handles PUT /api/v1/categories/:id
func (h *CategoryHandler) UpdateCategory(c echo.Context) error {
	var req UpdateCategoryRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	def, err := h.categoryService.UpdateCategory(c.Request().Context(), c.Param("id"), service.UpdateCategoryInput{
		Name: req.Name,
		Icon: req.Icon,
		Type: req.Type,
	})
	if err != nil {
		return NewServiceError(c, err, "Failed to update category")
	}
	return c.JSON(http.StatusOK, def)
}

package handler

import (
	"net/http"

	"github.com/dafibh/budgetbook/budgetbook-backend/internal/service"
	"github.com/labstack/echo/v4"
)

// SettingsHandler handles the settings part of the configuration document
type SettingsHandler struct {
	documentService *service.DocumentService
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(documentService *service.DocumentService) *SettingsHandler {
	return &SettingsHandler{documentService: documentService}
}

// UpdateSettingsRequest represents the update settings request body.
// Omitted fields are left unchanged; an empty string clears a value.
type UpdateSettingsRequest struct {
	GeminiKey    *string `json:"geminiKey"`
	SyncEndpoint *string `json:"syncEndpoint"`
	SyncSecret   *string `json:"syncSecret"`
	Theme        *string `json:"theme"`
}

// GetSettings handles GET /api/v1/settings
func (h *SettingsHandler) GetSettings(c echo.Context) error {
	return c.JSON(http.StatusOK, h.documentService.GetSettings())
}

// UpdateSettings handles PUT /api/v1/settings
func (h *SettingsHandler) UpdateSettings(c echo.Context) error {
	var req UpdateSettingsRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	settings, err := h.documentService.UpdateSettings(c.Request().Context(), service.SettingsInput{
		GeminiKey:    req.GeminiKey,
		SyncEndpoint: req.SyncEndpoint,
		SyncSecret:   req.SyncSecret,
		Theme:        req.Theme,
	})
	if err != nil {
		return NewServiceError(c, err, "Failed to update settings")
	}
	return c.JSON(http.StatusOK, settings)
}

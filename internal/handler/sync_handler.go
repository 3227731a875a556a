package handler

import (
	"errors"
	"net/http"

	"github.com/dafibh/budgetbook/budgetbook-backend/internal/domain"
	"github.com/dafibh/budgetbook/budgetbook-backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// SyncHandler handles remote sync requests
type SyncHandler struct {
	syncService *service.SyncService
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(syncService *service.SyncService) *SyncHandler {
	return &SyncHandler{syncService: syncService}
}

// ConfirmSyncedRequest lists ids the remote store has persisted
type ConfirmSyncedRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

// ConfirmSyncedResponse reports how many records were newly marked synced
type ConfirmSyncedResponse struct {
	Confirmed int `json:"confirmed"`
}

// MergeRequest carries records read from the remote store
type MergeRequest struct {
	Records []domain.Record `json:"records"`
}

// GetStatus handles GET /api/v1/sync
func (h *SyncHandler) GetStatus(c echo.Context) error {
	status, err := h.syncService.Status(c.Request().Context())
	if err != nil {
		return NewServiceError(c, err, "Failed to get sync status")
	}
	return c.JSON(http.StatusOK, status)
}

// Push handles POST /api/v1/sync/push
func (h *SyncHandler) Push(c echo.Context) error {
	result, err := h.syncService.PushPending(c.Request().Context())
	if err != nil {
		if errors.Is(err, service.ErrSyncNotConfigured) {
			return NewServiceUnavailableError(c, "Remote sync is not configured")
		}
		log.Warn().Err(err).Int("failed", result.Failed).Msg("Sync push failed")
		return NewBadGatewayError(c, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

// Pull handles POST /api/v1/sync/pull
func (h *SyncHandler) Pull(c echo.Context) error {
	result, err := h.syncService.Pull(c.Request().Context())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSyncNotConfigured):
			return NewServiceUnavailableError(c, "Remote sync is not configured")
		case errors.Is(err, service.ErrPullNotSupported):
			return NewServiceUnavailableError(c, "The configured sync backend cannot be read back")
		}
		log.Warn().Err(err).Msg("Sync pull failed")
		return NewBadGatewayError(c, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

// Confirm handles POST /api/v1/sync/confirm. This is the only way besides
// a successful push for a record to become synced.
func (h *SyncHandler) Confirm(c echo.Context) error {
	var req ConfirmSyncedRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	if len(req.IDs) == 0 {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "ids", Message: "At least one id is required"},
		})
	}

	n, err := h.syncService.ConfirmSynced(c.Request().Context(), req.IDs)
	if err != nil {
		return NewServiceError(c, err, "Failed to confirm sync")
	}
	return c.JSON(http.StatusOK, ConfirmSyncedResponse{Confirmed: n})
}

// Merge handles POST /api/v1/sync/merge
func (h *SyncHandler) Merge(c echo.Context) error {
	var req MergeRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	for i, r := range req.Records {
		if r.Transfer != nil {
			t := r.Transfer.Normalized()
			req.Records[i].Transfer = &t
		}
	}

	result, err := h.syncService.MergeRemote(c.Request().Context(), req.Records)
	if err != nil {
		return NewServiceError(c, err, "Failed to merge remote records")
	}
	return c.JSON(http.StatusOK, result)
}

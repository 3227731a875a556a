package handler

import (
	"net/http"

	"github.com/dafibh/budgetbook/budgetbook-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// AccountHandler handles bank account requests
type AccountHandler struct {
	accountService *service.AccountService
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// CreateAccountRequest represents the create account request body
type CreateAccountRequest struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	IsDefault bool   `json:"isDefault"`
}

// UpdateAccountRequest represents the update account request body
type UpdateAccountRequest struct {
	Name string `json:"name"`
}

// CreateAccount handles POST /api/v1/accounts
func (h *AccountHandler) CreateAccount(c echo.Context) error {
	var req CreateAccountRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	account, err := h.accountService.CreateAccount(c.Request().Context(), service.CreateAccountInput{
		ID:        req.ID,
		Name:      req.Name,
		IsDefault: req.IsDefault,
	})
	if err != nil {
		return NewServiceError(c, err, "Failed to create account")
	}

	log.Info().Str("account_id", account.ID).Str("name", account.Name).Msg("Account created")
	return c.JSON(http.StatusCreated, account)
}

// GetAccounts handles GET /api/v1/accounts
func (h *AccountHandler) GetAccounts(c echo.Context) error {
	return c.JSON(http.StatusOK, h.accountService.ListAccounts())
}

// GetAccount handles GET /api/v1/accounts/:id
func (h *AccountHandler) GetAccount(c echo.Context) error {
	account, err := h.accountService.GetAccount(c.Param("id"))
	if err != nil {
		return NewServiceError(c, err, "Failed to get account")
	}
	return c.JSON(http.StatusOK, account)
}

// UpdateAccount handles PUT /api/v1/accounts/:id
func (h *AccountHandler) UpdateAccount(c echo.Context) error {
	var req UpdateAccountRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	account, err := h.accountService.RenameAccount(c.Request().Context(), c.Param("id"), req.Name)
	if err != nil {
		return NewServiceError(c, err, "Failed to update account")
	}
	return c.JSON(http.StatusOK, account)
}

// SetDefaultAccount handles PUT /api/v1/accounts/:id/default
func (h *AccountHandler) SetDefaultAccount(c echo.Context) error {
	account, err := h.accountService.SetDefaultAccount(c.Request().Context(), c.Param("id"))
	if err != nil {
		return NewServiceError(c, err, "Failed to set default account")
	}
	return c.JSON(http.StatusOK, account)
}

// DeleteAccount handles DELETE /api/v1/accounts/:id
func (h *AccountHandler) DeleteAccount(c echo.Context) error {
	id := c.Param("id")
	if err := h.accountService.DeleteAccount(c.Request().Context(), id); err != nil {
		return NewServiceError(c, err, "Failed to delete account")
	}

	log.Info().Str("account_id", id).Msg("Account deleted")
	return c.NoContent(http.StatusNoContent)
}

package handler

import (
	"net/http"

	"github.com/dafibh/budgetbook/budgetbook-backend/internal/domain"
	"github.com/dafibh/budgetbook/budgetbook-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// BalanceHandler handles ledger and balance requests
type BalanceHandler struct {
	ledgerService *service.LedgerService
}

// NewBalanceHandler creates a new BalanceHandler
func NewBalanceHandler(ledgerService *service.LedgerService) *BalanceHandler {
	return &BalanceHandler{ledgerService: ledgerService}
}

// SetStartingBalanceRequest represents the starting balance request body
type SetStartingBalanceRequest struct {
	Balance  decimal.Decimal `json:"balance"`
	AsOfDate string          `json:"asOfDate"`
}

// AccountBalanceResponse is the running balance of one account
type AccountBalanceResponse struct {
	AccountID string          `json:"accountId"`
	AsOf      domain.Date     `json:"asOf"`
	Balance   decimal.Decimal `json:"balance"`
}

// TotalBalanceResponse is the sum over every account
type TotalBalanceResponse struct {
	AsOf  domain.Date     `json:"asOf"`
	Total decimal.Decimal `json:"total"`
}

// asOf reads the optional ?asOf=YYYY-MM-DD query parameter, defaulting to today
func (h *BalanceHandler) asOf(c echo.Context) (domain.Date, error) {
	raw := c.QueryParam("asOf")
	if raw == "" {
		return h.ledgerService.Today(), nil
	}
	d, err := domain.ParseDate(raw)
	if err != nil {
		return domain.Date{}, NewValidationError(c, "Invalid date", []ValidationError{
			{Field: "asOf", Message: "Must be in YYYY-MM-DD format"},
		})
	}
	return d, nil
}

// GetBalances handles GET /api/v1/balances
func (h *BalanceHandler) GetBalances(c echo.Context) error {
	asOf, err := h.asOf(c)
	if err != nil {
		return err
	}
	balances, err := h.ledgerService.AccountBalances(c.Request().Context(), asOf)
	if err != nil {
		return NewServiceError(c, err, "Failed to compute balances")
	}
	return c.JSON(http.StatusOK, balances)
}

// GetTotalBalance handles GET /api/v1/balances/total
func (h *BalanceHandler) GetTotalBalance(c echo.Context) error {
	asOf, err := h.asOf(c)
	if err != nil {
		return err
	}
	total, err := h.ledgerService.TotalBalance(c.Request().Context(), asOf)
	if err != nil {
		return NewServiceError(c, err, "Failed to compute total balance")
	}
	return c.JSON(http.StatusOK, TotalBalanceResponse{AsOf: asOf, Total: total})
}

// RefreshBalances handles POST /api/v1/balances/refresh
func (h *BalanceHandler) RefreshBalances(c echo.Context) error {
	balances, err := h.ledgerService.RefreshBalances(c.Request().Context())
	if err != nil {
		return NewServiceError(c, err, "Failed to refresh balances")
	}
	return c.JSON(http.StatusOK, balances)
}

// GetAccountBalance handles GET /api/v1/balances/:accountId
func (h *BalanceHandler) GetAccountBalance(c echo.Context) error {
	asOf, err := h.asOf(c)
	if err != nil {
		return err
	}
	accountID := c.Param("accountId")
	balance, err := h.ledgerService.RunningBalance(c.Request().Context(), accountID, asOf)
	if err != nil {
		return NewServiceError(c, err, "Failed to compute balance")
	}
	return c.JSON(http.StatusOK, AccountBalanceResponse{AccountID: accountID, AsOf: asOf, Balance: balance})
}

// GetStatement handles GET /api/v1/balances/:accountId/statement
func (h *BalanceHandler) GetStatement(c echo.Context) error {
	asOf, err := h.asOf(c)
	if err != nil {
		return err
	}
	statement, err := h.ledgerService.Entries(c.Request().Context(), c.Param("accountId"), asOf)
	if err != nil {
		return NewServiceError(c, err, "Failed to build statement")
	}
	return c.JSON(http.StatusOK, statement)
}

// SetStartingBalance handles PUT /api/v1/balances/:accountId/starting
func (h *BalanceHandler) SetStartingBalance(c echo.Context) error {
	var req SetStartingBalanceRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	asOf, err := domain.ParseDate(req.AsOfDate)
	if err != nil {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "asOfDate", Message: "Must be in YYYY-MM-DD format"},
		})
	}

	accountID := c.Param("accountId")
	balances, err := h.ledgerService.SetStartingBalance(c.Request().Context(), accountID, req.Balance, asOf)
	if err != nil {
		return NewServiceError(c, err, "Failed to set starting balance")
	}

	log.Info().Str("account_id", accountID).Str("as_of", asOf.String()).Msg("Starting balance set")
	return c.JSON(http.StatusOK, balances)
}

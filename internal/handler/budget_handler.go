package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dafibh/budgetbook/budgetbook-backend/internal/domain"
	"github.com/dafibh/budgetbook/budgetbook-backend/internal/service"
	"github.com/dafibh/budgetbook/budgetbook-backend/internal/util"
	"github.com/labstack/echo/v4"
)

// BudgetHandler handles monthly budget requests
type BudgetHandler struct {
	budgetService *service.BudgetService
	now           func() time.Time
}

// NewBudgetHandler creates a new BudgetHandler
func NewBudgetHandler(budgetService *service.BudgetService) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService, now: time.Now}
}

// SetAmountRequest carries a budget amount. Numbers, numeric strings and
// anything else are accepted; invalid or negative values become 0.
type SetAmountRequest struct {
	Amount json.RawMessage `json:"amount"`
}

// BudgetResponse is a month's budget summary with navigation hints
type BudgetResponse struct {
	service.BudgetSummary
	Historical    bool            `json:"historical"`
	PreviousMonth domain.MonthKey `json:"previousMonth"`
	NextMonth     domain.MonthKey `json:"nextMonth"`
}

// StoredMonthsResponse lists the months with an edited budget
type StoredMonthsResponse struct {
	Current domain.MonthKey   `json:"current"`
	Months  []domain.MonthKey `json:"months"`
}

// parseMonth reads the :month path parameter; "current" is today's month
func (h *BudgetHandler) parseMonth(c echo.Context) (domain.MonthKey, error) {
	raw := c.Param("month")
	if raw == "current" {
		return util.CurrentMonth(h.now()), nil
	}
	month, err := domain.ParseMonthKey(raw)
	if err != nil {
		return "", NewValidationError(c, "Invalid month", []ValidationError{
			{Field: "month", Message: "Must be in YYYY-MM format"},
		})
	}
	return month, nil
}

func (h *BudgetHandler) response(month domain.MonthKey) BudgetResponse {
	return BudgetResponse{
		BudgetSummary: h.budgetService.Summary(month),
		Historical:    util.IsHistoricalMonth(month, h.now()),
		PreviousMonth: util.PreviousMonth(month),
		NextMonth:     util.NextMonth(month),
	}
}

// GetMonths handles GET /api/v1/budgets
func (h *BudgetHandler) GetMonths(c echo.Context) error {
	return c.JSON(http.StatusOK, StoredMonthsResponse{
		Current: util.CurrentMonth(h.now()),
		Months:  h.budgetService.StoredMonths(),
	})
}

// GetBudget handles GET /api/v1/budgets/:month. Months that were never
// edited are synthesized and not stored.
func (h *BudgetHandler) GetBudget(c echo.Context) error {
	month, err := h.parseMonth(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.response(month))
}

// GetProgress handles GET /api/v1/budgets/:month/progress
func (h *BudgetHandler) GetProgress(c echo.Context) error {
	month, err := h.parseMonth(c)
	if err != nil {
		return err
	}
	progress, err := h.budgetService.Progress(c.Request().Context(), month)
	if err != nil {
		return NewServiceError(c, err, "Failed to compute budget progress")
	}
	return c.JSON(http.StatusOK, progress)
}

// SetSalary handles PUT /api/v1/budgets/:month/salary
func (h *BudgetHandler) SetSalary(c echo.Context) error {
	month, err := h.parseMonth(c)
	if err != nil {
		return err
	}
	var req SetAmountRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	if _, err := h.budgetService.SetSalary(c.Request().Context(), month, domain.ParseBudgetAmount(string(req.Amount))); err != nil {
		return NewServiceError(c, err, "Failed to set salary")
	}
	return c.JSON(http.StatusOK, h.response(month))
}

// SetCategoryAmount handles PUT /api/v1/budgets/:month/categories/:categoryId
func (h *BudgetHandler) SetCategoryAmount(c echo.Context) error {
	month, err := h.parseMonth(c)
	if err != nil {
		return err
	}
	var req SetAmountRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	amount := domain.ParseBudgetAmount(string(req.Amount))
	if _, err := h.budgetService.SetCategoryAmount(c.Request().Context(), month, c.Param("categoryId"), amount); err != nil {
		return NewServiceError(c, err, "Failed to set category amount")
	}
	return c.JSON(http.StatusOK, h.response(month))
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/dafibh/budgetbook/budgetbook-backend/internal/domain"
	"github.com/dafibh/budgetbook/budgetbook-backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// TransactionHandler handles expense, income and transfer requests
type TransactionHandler struct {
	transactionService *service.TransactionService
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(transactionService *service.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

// CreateExpenseRequest represents the create expense request body
type CreateExpenseRequest struct {
	Date          string          `json:"date"`
	Time          string          `json:"time,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
	Type          string          `json:"type,omitempty"`
	PaymentMethod string          `json:"paymentMethod"`
	Store         string          `json:"store"`
	Notes         string          `json:"notes,omitempty"`
	Source        string          `json:"source,omitempty"`
}

// CreateIncomeRequest represents the create income request body
type CreateIncomeRequest struct {
	Date        string          `json:"date"`
	Time        string          `json:"time,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	AccountID   string          `json:"accountId"`
	Description string          `json:"description"`
	Notes       string          `json:"notes,omitempty"`
}

// CreateTransferRequest represents the create transfer request body
type CreateTransferRequest struct {
	Date          string          `json:"date"`
	Time          string          `json:"time,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	FromAccountID string          `json:"fromAccountId"`
	ToAccountID   string          `json:"toAccountId"`
	Description   string          `json:"description"`
	Notes         string          `json:"notes,omitempty"`
}

// TransactionListResponse wraps a filtered list of records
type TransactionListResponse struct {
	Count        int             `json:"count"`
	Transactions []domain.Record `json:"transactions"`
}

// CreateExpense handles POST /api/v1/expenses
func (h *TransactionHandler) CreateExpense(c echo.Context) error {
	var req CreateExpenseRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	source := domain.Provenance(req.Source)
	if source != domain.ProvenanceReceipt {
		source = domain.ProvenanceManual
	}

	expense, err := h.transactionService.AppendExpense(c.Request().Context(), service.ExpenseInput{
		Date:          req.Date,
		Time:          req.Time,
		Amount:        req.Amount,
		Category:      req.Category,
		Type:          req.Type,
		PaymentMethod: req.PaymentMethod,
		Store:         req.Store,
		Notes:         req.Notes,
		Source:        source,
	})
	if err != nil {
		return NewServiceError(c, err, "Failed to create expense")
	}

	log.Info().Str("id", expense.ID.String()).Str("account_id", expense.AccountID).Msg("Expense created")
	return c.JSON(http.StatusCreated, expense)
}

// CreateIncome handles POST /api/v1/incomes
func (h *TransactionHandler) CreateIncome(c echo.Context) error {
	var req CreateIncomeRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	income, err := h.transactionService.AppendIncome(c.Request().Context(), service.IncomeInput{
		Date:        req.Date,
		Time:        req.Time,
		Amount:      req.Amount,
		Category:    req.Category,
		AccountID:   req.AccountID,
		Description: req.Description,
		Notes:       req.Notes,
	})
	if err != nil {
		return NewServiceError(c, err, "Failed to create income")
	}

	log.Info().Str("id", income.ID.String()).Str("account_id", income.AccountID).Msg("Income created")
	return c.JSON(http.StatusCreated, income)
}

// CreateTransfer handles POST /api/v1/transfers
func (h *TransactionHandler) CreateTransfer(c echo.Context) error {
	var req CreateTransferRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	transfer, err := h.transactionService.AppendTransfer(c.Request().Context(), service.TransferInput{
		Date:          req.Date,
		Time:          req.Time,
		Amount:        req.Amount,
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Description:   req.Description,
		Notes:         req.Notes,
	})
	if err != nil {
		return NewServiceError(c, err, "Failed to create transfer")
	}

	log.Info().
		Str("id", transfer.ID.String()).
		Str("from", transfer.FromAccountID).
		Str("to", transfer.ToAccountID).
		Msg("Transfer created")
	return c.JSON(http.StatusCreated, transfer)
}

// GetTransactions handles GET /api/v1/transactions?kind=&from=&to=&unsynced=
func (h *TransactionHandler) GetTransactions(c echo.Context) error {
	var filter domain.TransactionFilter
	var errs []ValidationError

	if kind := c.QueryParam("kind"); kind != "" {
		filter.Kind = domain.TransactionKind(kind)
		if !filter.Kind.IsValid() {
			errs = append(errs, ValidationError{Field: "kind", Message: "Must be one of: expense, income, transfer"})
		}
	}
	if from := c.QueryParam("from"); from != "" {
		d, err := domain.ParseDate(from)
		if err != nil {
			errs = append(errs, ValidationError{Field: "from", Message: "Must be in YYYY-MM-DD format"})
		}
		filter.From = d
	}
	if to := c.QueryParam("to"); to != "" {
		d, err := domain.ParseDate(to)
		if err != nil {
			errs = append(errs, ValidationError{Field: "to", Message: "Must be in YYYY-MM-DD format"})
		}
		filter.To = d
	}
	if unsynced := c.QueryParam("unsynced"); unsynced != "" {
		b, err := strconv.ParseBool(unsynced)
		if err != nil {
			errs = append(errs, ValidationError{Field: "unsynced", Message: "Must be true or false"})
		}
		filter.UnsyncedOnly = b
	}
	if len(errs) > 0 {
		return NewValidationError(c, "Invalid query parameters", errs)
	}

	records, err := h.transactionService.ListTransactions(c.Request().Context(), filter)
	if err != nil {
		return NewServiceError(c, err, "Failed to list transactions")
	}
	if records == nil {
		records = []domain.Record{}
	}
	return c.JSON(http.StatusOK, TransactionListResponse{Count: len(records), Transactions: records})
}

// GetTransaction handles GET /api/v1/transactions/:id
func (h *TransactionHandler) GetTransaction(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid transaction ID", []ValidationError{
			{Field: "id", Message: "Must be a UUID"},
		})
	}
	record, err := h.transactionService.GetTransaction(c.Request().Context(), id)
	if err != nil {
		return NewServiceError(c, err, "Failed to get transaction")
	}
	return c.JSON(http.StatusOK, record)
}

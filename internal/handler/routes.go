package handler

import (
	"github.com/dafibh/budgetbook/budgetbook-backend/internal/middleware"
	"github.com/labstack/echo/v4"
)

// Handlers bundles every HTTP handler mounted by RegisterRoutes
type Handlers struct {
	Category    *CategoryHandler
	Budget      *BudgetHandler
	Account     *AccountHandler
	Balance     *BalanceHandler
	Transaction *TransactionHandler
	Sync        *SyncHandler
	Receipt     *ReceiptHandler
	Settings    *SettingsHandler
	WebSocket   *WebSocketHandler
}

// RegisterRoutes sets up all API routes
func RegisterRoutes(e *echo.Echo, authMiddleware *middleware.TokenAuthMiddleware, receiptLimiter *middleware.RateLimiter, h Handlers) {
	// WebSocket authenticates through its query token
	e.GET("/ws", h.WebSocket.HandleWS)

	// API version 1 (protected)
	api := e.Group("/api/v1")
	api.Use(authMiddleware.Authenticate())

	// Category routes
	categories := api.Group("/categories")
	categories.GET("", h.Category.GetCategories)
	categories.POST("", h.Category.CreateCategory)
	categories.GET("/:id", h.Category.GetCategory)
	categories.PUT("/:id", h.Category.UpdateCategory)

	// Budget routes
	budgets := api.Group("/budgets")
	budgets.GET("", h.Budget.GetMonths)
	budgets.GET("/:month", h.Budget.GetBudget)
	budgets.GET("/:month/progress", h.Budget.GetProgress)
	budgets.PUT("/:month/salary", h.Budget.SetSalary)
	budgets.PUT("/:month/categories/:categoryId", h.Budget.SetCategoryAmount)

	// Bank account routes
	accounts := api.Group("/accounts")
	accounts.POST("", h.Account.CreateAccount)
	accounts.GET("", h.Account.GetAccounts)
	accounts.GET("/:id", h.Account.GetAccount)
	accounts.PUT("/:id", h.Account.UpdateAccount)
	accounts.PUT("/:id/default", h.Account.SetDefaultAccount)
	accounts.DELETE("/:id", h.Account.DeleteAccount)

	// Balance routes
	balances := api.Group("/balances")
	balances.GET("", h.Balance.GetBalances)
	balances.GET("/total", h.Balance.GetTotalBalance)
	balances.POST("/refresh", h.Balance.RefreshBalances)
	balances.GET("/:accountId", h.Balance.GetAccountBalance)
	balances.GET("/:accountId/statement", h.Balance.GetStatement)
	balances.PUT("/:accountId/starting", h.Balance.SetStartingBalance)

	// Transaction routes
	api.POST("/expenses", h.Transaction.CreateExpense)
	api.POST("/incomes", h.Transaction.CreateIncome)
	api.POST("/transfers", h.Transaction.CreateTransfer)
	transactions := api.Group("/transactions")
	transactions.GET("", h.Transaction.GetTransactions)
	transactions.GET("/:id", h.Transaction.GetTransaction)

	// Sync routes
	sync := api.Group("/sync")
	sync.GET("", h.Sync.GetStatus)
	sync.POST("/push", h.Sync.Push)
	sync.POST("/pull", h.Sync.Pull)
	sync.POST("/confirm", h.Sync.Confirm)
	sync.POST("/merge", h.Sync.Merge)

	// Receipt routes
	receipts := api.Group("/receipts")
	receipts.POST("/extract", h.Receipt.Extract, middleware.RateLimitMiddleware(receiptLimiter))
	receipts.GET("/forms/:formId", h.Receipt.GetFormStatus)
	receipts.POST("/forms/:formId/touch", h.Receipt.TouchForm)
	receipts.DELETE("/forms/:formId", h.Receipt.CancelForm)

	// Settings routes
	settings := api.Group("/settings")
	settings.GET("", h.Settings.GetSettings)
	settings.PUT("", h.Settings.UpdateSettings)
}

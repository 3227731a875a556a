package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dafibh/budgetbook/budgetbook-backend/internal/config"
	"github.com/dafibh/budgetbook/budgetbook-backend/internal/domain"
	"github.com/dafibh/budgetbook/budgetbook-backend/internal/handler"
	"github.com/dafibh/budgetbook/budgetbook-backend/internal/middleware"
	"github.com/dafibh/budgetbook/budgetbook-backend/internal/receipt"
	"github.com/dafibh/budgetbook/budgetbook-backend/internal/remotesync"
	"github.com/dafibh/budgetbook/budgetbook-backend/internal/repository/memory"
	"github.com/dafibh/budgetbook/budgetbook-backend/internal/repository/postgres"
	"github.com/dafibh/budgetbook/budgetbook-backend/internal/repository/storage"
	"github.com/dafibh/budgetbook/budgetbook-backend/internal/service"
	"github.com/dafibh/budgetbook/budgetbook-backend/internal/websocket"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()

	// Initialize repositories
	var (
		documentRepo    domain.DocumentRepository
		transactionRepo domain.TransactionRepository
	)
	if cfg.DatabaseURL != "" {
		if err := postgres.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}

		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer pool.Close()
		log.Info().Msg("Connected to database")

		documentRepo = postgres.NewDocumentRepository(pool)
		transactionRepo = postgres.NewTransactionRepository(pool)
	} else {
		log.Warn().Msg("DATABASE_URL not set, using in-memory storage")
		documentRepo = memory.NewDocumentRepository()
		transactionRepo = memory.NewTransactionRepository()
	}

	// Load the configuration document
	documentService := service.NewDocumentService(documentRepo)
	if err := documentService.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to load document")
	}

	// WebSocket hub for live updates
	hub := websocket.NewHub()

	// Initialize services
	categoryService := service.NewCategoryService(documentService)
	categoryService.SetEventPublisher(hub)

	budgetService := service.NewBudgetService(documentService, transactionRepo)
	budgetService.SetEventPublisher(hub)

	accountService := service.NewAccountService(documentService)
	accountService.SetEventPublisher(hub)

	ledgerService := service.NewLedgerService(documentService, transactionRepo)
	ledgerService.SetEventPublisher(hub)

	transactionService := service.NewTransactionService(transactionRepo, documentService)
	transactionService.SetEventPublisher(hub)
	transactionService.SetBalanceRefresher(ledgerService)

	// Receipt extraction, with an optional S3 archive
	var archive service.ReceiptArchive
	if cfg.S3.Enabled() {
		s3Archive, err := storage.NewS3ReceiptArchive(ctx, cfg.S3)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize receipt archive")
		}
		archive = s3Archive
		log.Info().Str("bucket", cfg.S3.Bucket).Msg("Receipt archive enabled")
	}
	receiptService := service.NewReceiptService(documentService, receipt.NewGeminiExtractor(cfg.GeminiModel), archive, log.Logger)

	// Remote sync
	var pusher service.RemotePusher
	switch cfg.Sync.Backend {
	case config.SyncWebhook:
		pusher = remotesync.NewWebhookPusher(func() domain.SyncSettings {
			return documentService.Snapshot().Sync
		}, nil)
	case config.SyncSheets:
		sheets, err := remotesync.NewSheetsPusher(ctx, remotesync.SheetsConfig{
			SpreadsheetID:      cfg.Sync.SpreadsheetID,
			SheetName:          cfg.Sync.SheetName,
			ServiceAccountJSON: cfg.Sync.ServiceAccountJSON,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Google Sheets sync")
		}
		pusher = sheets
	}
	syncService := service.NewSyncService(transactionService, pusher, log.Logger, service.DefaultSyncConfig())

	var syncWorker *service.SyncWorker
	if syncService.IsEnabled() {
		syncWorker = service.NewSyncWorker(syncService, log.Logger, service.SyncWorkerConfig{Interval: cfg.Sync.Interval})
		syncWorker.Start(ctx)
		log.Info().Str("backend", cfg.Sync.Backend).Dur("interval", cfg.Sync.Interval).Msg("Sync worker started")
	}

	// Initialize middleware
	authMiddleware := middleware.NewTokenAuthMiddleware(cfg.APIToken)
	if !authMiddleware.Enabled() {
		log.Warn().Msg("API_TOKEN not set, API is unauthenticated")
	}
	receiptLimiter := middleware.NewRateLimiter(cfg.ReceiptRateLimit, cfg.ReceiptRateBurst)

	// Initialize handlers
	handlers := handler.Handlers{
		Category:    handler.NewCategoryHandler(categoryService),
		Budget:      handler.NewBudgetHandler(budgetService),
		Account:     handler.NewAccountHandler(accountService),
		Balance:     handler.NewBalanceHandler(ledgerService),
		Transaction: handler.NewTransactionHandler(transactionService),
		Sync:        handler.NewSyncHandler(syncService),
		Receipt:     handler.NewReceiptHandler(receiptService),
		Settings:    handler.NewSettingsHandler(documentService),
		WebSocket:   handler.NewWebSocketHandler(hub, websocket.NewSecretValidator(cfg.APIToken), cfg.CORSOrigins),
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Request ID middleware
	e.Use(echomiddleware.RequestID())

	// CORS middleware
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Security headers middleware (helmet-like)
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	// Receipt photos are the largest bodies
	e.Use(echomiddleware.BodyLimit("12M"))

	// Request logging middleware with zerolog
	e.Use(zerologMiddleware())

	// Recovery middleware
	e.Use(echomiddleware.Recover())

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"status":  "ok",
			"sync":    syncService.IsEnabled(),
			"clients": hub.ClientCount(),
		})
	})

	// Register API routes
	handler.RegisterRoutes(e, authMiddleware, receiptLimiter, handlers)

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	if syncWorker != nil {
		syncWorker.Stop()
	}
	receiptLimiter.Stop()
	hub.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			event := log.Info()
			if res.Status >= http.StatusInternalServerError {
				event = log.Warn()
			}
			event.
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Sync backends
const (
	SyncNone    = "none"
	SyncWebhook = "webhook"
	SyncSheets  = "sheets"
)

// Config holds all configuration for the application
type Config struct {
	// Database. Empty keeps everything in memory.
	DatabaseURL string

	// Server
	Port        string
	CORSOrigins []string
	Env         string

	// Bearer secret for /api/v1. Required in production.
	APIToken string

	// S3 receipt archive
	S3 S3Config

	// Receipts
	GeminiModel      string
	ReceiptRateLimit float64
	ReceiptRateBurst int

	// Remote sync
	Sync SyncConfig
}

// S3Config holds AWS S3 configuration
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // Optional: for MinIO/LocalStack local dev
	URLExpiry       time.Duration
}

// Enabled reports whether a bucket is configured
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// SyncConfig selects the remote store unsynced transactions are pushed to
type SyncConfig struct {
	Backend            string
	Interval           time.Duration
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Port:        getEnv("PORT", "8080"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		Env:         getEnv("ENV", "development"),
		APIToken:    getEnv("API_TOKEN", ""),
		S3: S3Config{
			Region:          getEnv("S3_REGION", "us-east-1"),
			Bucket:          getEnv("S3_BUCKET", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:        getEnv("S3_ENDPOINT", ""), // Empty = use AWS, set for MinIO/LocalStack
		},
		GeminiModel: getEnv("GEMINI_MODEL", ""),
		Sync: SyncConfig{
			Backend:            strings.ToLower(getEnv("SYNC_BACKEND", SyncNone)),
			SpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
			SheetName:          getEnv("GOOGLE_SHEET_NAME", ""),
			ServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		},
	}

	var err error
	if cfg.S3.URLExpiry, err = getDuration("S3_URL_EXPIRY", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.Sync.Interval, err = getDuration("SYNC_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ReceiptRateLimit, err = getFloat("RECEIPT_RATE_LIMIT", 0.2); err != nil {
		return nil, err
	}
	if cfg.ReceiptRateBurst, err = getInt("RECEIPT_RATE_BURST", 3); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsProduction reports whether ENV is production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) validate() error {
	if c.IsProduction() && c.APIToken == "" {
		return fmt.Errorf("API_TOKEN is required in production")
	}
	switch c.Sync.Backend {
	case SyncNone, SyncWebhook:
	case SyncSheets:
		if c.Sync.SpreadsheetID == "" {
			return fmt.Errorf("GOOGLE_SPREADSHEET_ID is required for sheets sync")
		}
		if c.Sync.ServiceAccountJSON == "" {
			return fmt.Errorf("GOOGLE_SERVICE_ACCOUNT_JSON is required for sheets sync")
		}
	default:
		return fmt.Errorf("unknown SYNC_BACKEND %q", c.Sync.Backend)
	}
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("SYNC_INTERVAL must be positive")
	}
	if c.ReceiptRateLimit <= 0 || c.ReceiptRateBurst <= 0 {
		return fmt.Errorf("RECEIPT_RATE_LIMIT and RECEIPT_RATE_BURST must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

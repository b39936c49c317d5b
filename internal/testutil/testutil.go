// Package testutil holds helpers shared by service and handler tests.
package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory SQLite database and migrates the given
// models into it. The pool is pinned to one connection, so the database
// lives as long as the test and concurrent transactions run one at a time.
func NewDB(t *testing.T, models ...interface{}) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if len(models) > 0 {
		require.NoError(t, db.AutoMigrate(models...))
	}

	return db
}

// Config returns a valid configuration for tests without touching the environment
func Config() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:        "Storefront Test",
			Version:     "test",
			Environment: "test",
		},
		Server: config.ServerConfig{
			Port:           "8080",
			ReadTimeout:    5 * time.Second,
			WriteTimeout:   5 * time.Second,
			IdleTimeout:    5 * time.Second,
			RequestTimeout: 5 * time.Second,
			MaxBodyBytes:   1 << 20,
		},
		JWT: config.JWTConfig{
			Secret:             "test-secret-that-is-long-enough-for-hs256",
			AccessTokenExpiry:  15 * time.Minute,
			RefreshTokenExpiry: 24 * time.Hour,
		},
		Security: config.SecurityConfig{
			BcryptCost:         4,
			RateLimitPerMinute: 1000,
			CORSAllowedOrigins: []string{"*"},
			CORSAllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			CORSAllowedHeaders: []string{"Origin", "Content-Type", "Authorization"},
		},
		Logging: config.LoggingConfig{Level: "error", Format: "text"},
		Store: config.StoreConfig{
			OrderNumberPrefix: "ORD",
			Currency:          "INR",
			LowStockThreshold: 50,
			AnalyticsCacheTTL: time.Minute,
			MaxLineQuantity:   10000,
		},
		Company: config.CompanyConfig{
			Name:    "BuildMart Supplies",
			Address: "12 Industrial Estate, Pune",
			Phone:   "+91 20 5555 0100",
			Email:   "orders@buildmart.example",
			Website: "https://buildmart.example",
		},
	}
}

// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the Redis-backed job scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetCommissionReleaseCron() string
	GetReconcileUnassignedCron() string
}

// LedgerDefaultsConfig provides fallbacks for tenant ledger settings.
type LedgerDefaultsConfig interface {
	GetDefaultHoldPeriod() time.Duration
	GetDefaultMinimumPayout() decimal.Decimal
}

// TrackingConfig provides settings for partner click tracking.
type TrackingConfig interface {
	GetClickCooldown() time.Duration
}

// WebhookConfig provides settings for the scheduling provider webhook.
type WebhookConfig interface {
	GetSchedulingWebhookSigningKey() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                         string
	HTTPAddr                    string
	DatabaseURL                 string
	JWTAccessSecret             string
	CORSAllowAll                bool
	CORSOrigins                 []string
	CORSAllowCreds              bool
	RedisURL                    string
	RedisTLSInsecure            bool
	AsynqQueueName              string
	AsynqConcurrency            int
	CommissionReleaseCron       string
	ReconcileUnassignedCron     string
	DefaultHoldPeriod           time.Duration
	DefaultMinimumPayout        decimal.Decimal
	ClickCooldown               time.Duration
	SchedulingWebhookSigningKey string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string                { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool          { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string          { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int           { return c.AsynqConcurrency }
func (c *Config) GetCommissionReleaseCron() string   { return c.CommissionReleaseCron }
func (c *Config) GetReconcileUnassignedCron() string { return c.ReconcileUnassignedCron }

// LedgerDefaultsConfig implementation
func (c *Config) GetDefaultHoldPeriod() time.Duration      { return c.DefaultHoldPeriod }
func (c *Config) GetDefaultMinimumPayout() decimal.Decimal { return c.DefaultMinimumPayout }

// TrackingConfig implementation
func (c *Config) GetClickCooldown() time.Duration { return c.ClickCooldown }

// WebhookConfig implementation
func (c *Config) GetSchedulingWebhookSigningKey() string { return c.SchedulingWebhookSigningKey }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                         getEnv("APP_ENV", "development"),
		HTTPAddr:                    getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:                 getEnv("DATABASE_URL", ""),
		JWTAccessSecret:             getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:                corsAllowAll,
		CORSOrigins:                 corsOrigins,
		CORSAllowCreds:              strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:                    getEnv("REDIS_URL", ""),
		RedisTLSInsecure:            strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:              getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:            mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		CommissionReleaseCron:       getEnv("COMMISSION_RELEASE_CRON", "@every 1h"),
		ReconcileUnassignedCron:     getEnv("RECONCILE_UNASSIGNED_CRON", "@every 5m"),
		DefaultHoldPeriod:           time.Duration(mustInt(getEnv("DEFAULT_HOLD_PERIOD_DAYS", "30"))) * 24 * time.Hour,
		DefaultMinimumPayout:        mustDecimal(getEnv("DEFAULT_MIN_PAYOUT", "50")),
		ClickCooldown:               mustDuration(getEnv("CLICK_COOLDOWN", "1h")),
		SchedulingWebhookSigningKey: getEnv("SCHEDULING_WEBHOOK_SIGNING_KEY", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.ClickCooldown <= 0 {
		cfg.ClickCooldown = time.Hour
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustDecimal(value string) decimal.Decimal {
	result, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}

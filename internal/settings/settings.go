// Package settings reads tenant-wide ledger settings stored in rac_settings.
// Values are coerced to their type; anything missing or unparsable falls back
// to the configured default.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"affiliate_portal_backend/platform/config"
	"affiliate_portal_backend/platform/db"
	"affiliate_portal_backend/platform/logger"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Keys stored in rac_settings.
const (
	KeyHoldPeriodDays = "commission_hold_days"
	KeyMinimumPayout  = "minimum_payout"
)

// Store looks up a raw setting value.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
}

// Repository is the Postgres Store.
type Repository struct {
	pool db.Querier
}

// NewRepository creates a settings repository.
func NewRepository(pool db.Querier) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.pool.QueryRow(ctx, `SELECT value FROM rac_settings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, true, nil
}

// Provider serves typed settings to the ledger.
type Provider struct {
	store    Store
	defaults config.LedgerDefaultsConfig
	log      *logger.Logger
}

// NewProvider creates a settings provider.
func NewProvider(store Store, defaults config.LedgerDefaultsConfig, log *logger.Logger) *Provider {
	return &Provider{store: store, defaults: defaults, log: log}
}

// HoldPeriod is the delay between commission creation and release eligibility.
func (p *Provider) HoldPeriod(ctx context.Context) time.Duration {
	raw, ok := p.lookup(ctx, KeyHoldPeriodDays)
	if !ok {
		return p.defaults.GetDefaultHoldPeriod()
	}
	days, err := strconv.ParseFloat(raw, 64)
	if err != nil || days < 0 {
		p.log.Warn("ignoring unparsable setting", "key", KeyHoldPeriodDays, "value", raw)
		return p.defaults.GetDefaultHoldPeriod()
	}
	return time.Duration(days * float64(24*time.Hour))
}

// MinimumPayout is the smallest payout amount accepted.
func (p *Provider) MinimumPayout(ctx context.Context) decimal.Decimal {
	raw, ok := p.lookup(ctx, KeyMinimumPayout)
	if !ok {
		return p.defaults.GetDefaultMinimumPayout()
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		p.log.Warn("ignoring unparsable setting", "key", KeyMinimumPayout, "value", raw)
		return p.defaults.GetDefaultMinimumPayout()
	}
	return d
}

func (p *Provider) lookup(ctx context.Context, key string) (string, bool) {
	raw, ok, err := p.store.Get(ctx, key)
	if err != nil {
		p.log.WithContext(ctx).Warn("settings lookup failed, using default", "key", key, "error", err)
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, ok && raw != ""
}

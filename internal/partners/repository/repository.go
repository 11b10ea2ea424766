package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"affiliate_portal_backend/internal/partners/domain"
	"affiliate_portal_backend/platform/apperr"
	"affiliate_portal_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const partnerNotFoundMsg = "partner not found"

// Repository provides database operations for partners and their clicks.
type Repository struct {
	pool db.Querier
}

// New creates a new partners repository.
func New(pool db.Querier) *Repository {
	return &Repository{pool: pool}
}

// Click is one recorded tracking hit.
type Click struct {
	ID          uuid.UUID
	PartnerID   uuid.UUID
	VisitorKey  string
	UserAgent   string
	ClientIP    string
	LandingPath string
	CreatedAt   time.Time
}

const partnerColumns = `id, name, referral_code, custom_link, commission_rate, total_commission,
	is_active, is_approved, total_clicks, total_leads, total_bookings, total_sales`

// GetByTrackingCode finds the partner whose referral code or custom link equals code.
func (r *Repository) GetByTrackingCode(ctx context.Context, code string) (domain.Partner, error) {
	return r.scanOne(r.pool.QueryRow(ctx,
		`SELECT `+partnerColumns+` FROM rac_partners WHERE referral_code = $1 OR custom_link = $1 LIMIT 1`, code))
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Partner, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `SELECT `+partnerColumns+` FROM rac_partners WHERE id = $1`, id))
}

func (r *Repository) scanOne(row pgx.Row) (domain.Partner, error) {
	var p domain.Partner
	err := row.Scan(&p.ID, &p.Name, &p.ReferralCode, &p.CustomLink, &p.CommissionRate, &p.TotalCommission,
		&p.IsActive, &p.IsApproved, &p.TotalClicks, &p.TotalLeads, &p.TotalBookings, &p.TotalSales)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Partner{}, apperr.NotFound(partnerNotFoundMsg)
	}
	if err != nil {
		return domain.Partner{}, fmt.Errorf("get partner: %w", err)
	}
	return p, nil
}

// HasRecentClick reports whether the visitor already clicked through this
// partner since the given time.
func (r *Repository) HasRecentClick(ctx context.Context, partnerID uuid.UUID, visitorKey string, since time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM rac_clicks
			WHERE partner_id = $1 AND visitor_key = $2 AND created_at >= $3
		)`, partnerID, visitorKey, since,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check recent click: %w", err)
	}
	return exists, nil
}

func (r *Repository) InsertClick(ctx context.Context, click Click) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO rac_clicks (id, partner_id, visitor_key, user_agent, client_ip, landing_path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		click.ID, click.PartnerID, click.VisitorKey, click.UserAgent, click.ClientIP, click.LandingPath, click.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert click: %w", err)
	}
	return nil
}

// IncrementClicks bumps the click counter after a deduplicated click was stored.
func (r *Repository) IncrementClicks(ctx context.Context, partnerID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE rac_partners SET total_clicks = total_clicks + 1, updated_at = now() WHERE id = $1`, partnerID)
	if err != nil {
		return fmt.Errorf("increment clicks: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(partnerNotFoundMsg)
	}
	return nil
}

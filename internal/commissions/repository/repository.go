// Package repository persists the commission ledger: conversions, payouts and
// the appointment and agent rows an outcome writes to.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"affiliate_portal_backend/internal/audit"
	"affiliate_portal_backend/internal/commissions/domain"
	"affiliate_portal_backend/platform/apperr"
	"affiliate_portal_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const (
	appointmentNotFoundMsg = "appointment not found"
	conversionNotFoundMsg  = "conversion not found"
	partnerNotFoundMsg     = "partner not found"
)

// Repository implements the outcome, ledger and payout stores on Postgres.
type Repository struct {
	pool db.TxStarter
}

// New creates a new commissions repository.
func New(pool db.TxStarter) *Repository {
	return &Repository{pool: pool}
}

const appointmentStateColumns = `id, agent_id, status, outcome, sale_value, referral_code, customer_email`

func scanAppointment(row pgx.Row) (domain.AppointmentState, error) {
	var (
		a       domain.AppointmentState
		outcome *string
	)
	err := row.Scan(&a.ID, &a.AgentID, &a.Status, &outcome, &a.SaleValue, &a.ReferralCode, &a.CustomerEmail)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AppointmentState{}, apperr.NotFound(appointmentNotFoundMsg).WithCode(apperr.CodeAppointmentNotFound)
	}
	if err != nil {
		return domain.AppointmentState{}, fmt.Errorf("get appointment: %w", err)
	}
	if outcome != nil {
		o := domain.Outcome(*outcome)
		a.Outcome = &o
	}
	return a, nil
}

// LoadAppointment reads the appointment without locking it.
func (r *Repository) LoadAppointment(ctx context.Context, id uuid.UUID) (domain.AppointmentState, error) {
	return scanAppointment(r.pool.QueryRow(ctx,
		`SELECT `+appointmentStateColumns+` FROM rac_appointments WHERE id = $1`, id))
}

// MarkOutcome locks the appointment, reads the closer and the partner behind
// partnerCode (or the appointment's own code when nil), asks plan for the
// writes and applies them in the same transaction.
func (r *Repository) MarkOutcome(ctx context.Context, appointmentID uuid.UUID, partnerCode *string,
	plan func(domain.OutcomeSnapshot) (domain.OutcomePlan, error)) (domain.OutcomeResult, error) {
	var result domain.OutcomeResult

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		appt, err := scanAppointment(tx.QueryRow(ctx,
			`SELECT `+appointmentStateColumns+` FROM rac_appointments WHERE id = $1 FOR UPDATE`, appointmentID))
		if err != nil {
			return err
		}

		snap := domain.OutcomeSnapshot{Appointment: appt}
		if appt.AgentID != nil {
			agent, err := lockAgent(ctx, tx, *appt.AgentID)
			if err != nil {
				return err
			}
			snap.Agent = agent
		}

		code := partnerCode
		if code == nil {
			code = appt.ReferralCode
		}
		if code != nil && *code != "" {
			partner, err := findPartner(ctx, tx, *code)
			if err != nil {
				return err
			}
			snap.Partner = partner
		}

		p, err := plan(snap)
		if err != nil {
			return err
		}
		result.Snapshot, result.Plan = snap, p

		if err := applyAppointment(ctx, tx, p); err != nil {
			return err
		}
		if snap.Agent != nil {
			if err := applyAgent(ctx, tx, *snap.Agent, p); err != nil {
				return err
			}
		}
		if p.Sale != nil {
			inserted, err := insertConversion(ctx, tx, *p.Sale)
			if err != nil {
				return err
			}
			result.SaleInserted = inserted
			if inserted {
				if _, err := tx.Exec(ctx, `
					UPDATE rac_partners
					SET total_commission = total_commission + $2, total_sales = total_sales + 1, updated_at = now()
					WHERE id = $1`, p.Sale.PartnerID, p.Sale.CommissionAmount); err != nil {
					return fmt.Errorf("update partner commission: %w", err)
				}
			}
		}
		return appendAudit(ctx, tx, p.Audit)
	})
	if err != nil {
		return domain.OutcomeResult{}, err
	}
	return result, nil
}

func lockAgent(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.AgentState, error) {
	var a domain.AgentState
	err := tx.QueryRow(ctx, `
		SELECT id, commission_rate, total_calls, total_conversions, total_revenue
		FROM rac_agents WHERE id = $1 FOR UPDATE`, id,
	).Scan(&a.ID, &a.CommissionRate, &a.TotalCalls, &a.TotalConversions, &a.TotalRevenue)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock agent: %w", err)
	}
	return &a, nil
}

func findPartner(ctx context.Context, tx pgx.Tx, code string) (*domain.PartnerState, error) {
	p := domain.PartnerState{Code: code}
	err := tx.QueryRow(ctx, `
		SELECT id, commission_rate, is_active
		FROM rac_partners WHERE referral_code = $1 OR custom_link = $1 LIMIT 1`, code,
	).Scan(&p.ID, &p.CommissionRate, &p.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find partner: %w", err)
	}
	return &p, nil
}

func applyAppointment(ctx context.Context, tx pgx.Tx, p domain.OutcomePlan) error {
	_, err := tx.Exec(ctx, `
		UPDATE rac_appointments
		SET status = 'completed', outcome = $2, sale_value = $3, agent_commission = $4,
			notes = COALESCE($5, notes), recording_link = COALESCE($6, recording_link), updated_at = now()
		WHERE id = $1`,
		p.AppointmentID, string(p.Outcome), p.SaleValue, p.AgentCommission, p.Notes, p.RecordingLink,
	)
	if err != nil {
		return fmt.Errorf("update appointment outcome: %w", err)
	}
	return nil
}

func applyAgent(ctx context.Context, tx pgx.Tx, a domain.AgentState, p domain.OutcomePlan) error {
	if p.CallsDelta == 0 && p.ConversionsDelta == 0 && p.RevenueDelta.IsZero() {
		return nil
	}
	calls := a.TotalCalls + p.CallsDelta
	conversions := a.TotalConversions + p.ConversionsDelta
	_, err := tx.Exec(ctx, `
		UPDATE rac_agents
		SET total_calls = $2, total_conversions = $3, total_revenue = total_revenue + $4,
			conversion_rate = $5, updated_at = now()
		WHERE id = $1`,
		a.ID, calls, conversions, p.RevenueDelta, domain.ConversionRate(conversions, calls),
	)
	if err != nil {
		return fmt.Errorf("update agent totals: %w", err)
	}
	return nil
}

// insertConversion reports false when the (appointment|lead, type) pair
// already has a row.
func insertConversion(ctx context.Context, q db.Querier, c domain.Conversion) (bool, error) {
	var id uuid.UUID
	err := q.QueryRow(ctx, `
		INSERT INTO rac_conversions (id, partner_id, appointment_id, lead_id, conversion_type, sale_value,
			commission_amount, commission_status, hold_until, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT DO NOTHING
		RETURNING id`,
		c.ID, c.PartnerID, c.AppointmentID, c.LeadID, string(c.Type), c.SaleValue,
		c.CommissionAmount, string(c.Status), c.HoldUntil, c.CreatedAt,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert conversion: %w", err)
	}
	return true, nil
}

func appendAudit(ctx context.Context, q db.Querier, entries []audit.Entry) error {
	for _, e := range entries {
		if err := audit.Append(ctx, q, e); err != nil {
			return err
		}
	}
	return nil
}

// RecordZeroValue stores a lead or booking conversion for an active, approved
// partner and bumps the matching counter. Unknown or ineligible codes and
// duplicates are no-ops reported as false.
func (r *Repository) RecordZeroValue(ctx context.Context, c domain.ZeroValueConversion) (bool, error) {
	counter := "total_leads"
	if c.Type == domain.TypeBooking {
		counter = "total_bookings"
	}

	var inserted bool
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var partnerID uuid.UUID
		err := tx.QueryRow(ctx, `
			SELECT id FROM rac_partners
			WHERE (referral_code = $1 OR custom_link = $1) AND is_active AND is_approved
			LIMIT 1`, c.Code,
		).Scan(&partnerID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("find partner: %w", err)
		}

		conv := domain.NewHeldConversion(partnerID, c.Type, decimal.Zero, c.At, 0)
		conv.LeadID, conv.AppointmentID = c.LeadID, c.AppointmentID
		inserted, err = insertConversion(ctx, tx, conv)
		if err != nil || !inserted {
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE rac_partners SET `+counter+` = `+counter+` + 1, updated_at = now() WHERE id = $1`, partnerID); err != nil {
			return fmt.Errorf("update partner counters: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

const conversionColumns = `id, partner_id, appointment_id, lead_id, conversion_type, sale_value, commission_amount,
	commission_status, hold_until, released_at, paid_at, payout_id, created_at`

func scanConversion(row pgx.Row) (domain.Conversion, error) {
	var (
		c           domain.Conversion
		typ, status string
	)
	err := row.Scan(&c.ID, &c.PartnerID, &c.AppointmentID, &c.LeadID, &typ, &c.SaleValue, &c.CommissionAmount,
		&status, &c.HoldUntil, &c.ReleasedAt, &c.PaidAt, &c.PayoutID, &c.CreatedAt)
	c.Type, c.Status = domain.ConversionType(typ), domain.Status(status)
	return c, err
}

func (r *Repository) GetConversion(ctx context.Context, id uuid.UUID) (domain.Conversion, error) {
	c, err := scanConversion(r.pool.QueryRow(ctx, `SELECT `+conversionColumns+` FROM rac_conversions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Conversion{}, apperr.NotFound(conversionNotFoundMsg)
	}
	if err != nil {
		return domain.Conversion{}, fmt.Errorf("get conversion: %w", err)
	}
	return c, nil
}

// Release moves one conversion from held to available when its hold expired.
// It reports false when the row no longer qualifies.
func (r *Repository) Release(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE rac_conversions
		SET commission_status = 'available', released_at = $2
		WHERE id = $1 AND commission_status = 'held' AND commission_amount > 0 AND hold_until <= $2`,
		id, now,
	)
	if err != nil {
		return false, fmt.Errorf("release conversion: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseDue releases every held conversion whose hold expired.
func (r *Repository) ReleaseDue(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE rac_conversions
		SET commission_status = 'available', released_at = $1
		WHERE commission_status = 'held' AND commission_amount > 0 AND hold_until <= $1
		RETURNING id`, now)
	if err != nil {
		return nil, fmt.Errorf("release due conversions: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("release due conversions: %w", err)
	}
	return ids, nil
}

const totalsQuery = `
	SELECT
		COALESCE((SELECT SUM(commission_amount) FROM rac_conversions WHERE partner_id = $1 AND commission_status = 'held'), 0),
		COALESCE((SELECT SUM(commission_amount) FROM rac_conversions WHERE partner_id = $1 AND commission_status = 'available'), 0),
		COALESCE((SELECT SUM(commission_amount) FROM rac_conversions WHERE partner_id = $1 AND commission_status = 'paid'), 0),
		COALESCE((SELECT SUM(amount) FROM rac_payouts WHERE partner_id = $1 AND status = 'completed'), 0),
		COALESCE((SELECT SUM(amount) FROM rac_payouts WHERE partner_id = $1 AND status = 'pending'), 0)
	FROM rac_partners WHERE id = $1`

func readTotals(ctx context.Context, q db.Querier, partnerID uuid.UUID) (domain.Totals, error) {
	var t domain.Totals
	err := q.QueryRow(ctx, totalsQuery, partnerID).
		Scan(&t.Held, &t.Available, &t.Paid, &t.CompletedPayouts, &t.PendingPayouts)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Totals{}, apperr.NotFound(partnerNotFoundMsg)
	}
	if err != nil {
		return domain.Totals{}, fmt.Errorf("read partner totals: %w", err)
	}
	return t, nil
}

// Totals returns the sums a partner balance is computed from.
func (r *Repository) Totals(ctx context.Context, partnerID uuid.UUID) (domain.Totals, error) {
	return readTotals(ctx, r.pool, partnerID)
}

func listConversions(ctx context.Context, q db.Querier, query string, args ...any) ([]domain.Conversion, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list conversions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Conversion, 0)
	for rows.Next() {
		c, err := scanConversion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversion: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListConversions returns a partner's conversions, newest first.
func (r *Repository) ListConversions(ctx context.Context, partnerID uuid.UUID) ([]domain.Conversion, error) {
	return listConversions(ctx, r.pool,
		`SELECT `+conversionColumns+` FROM rac_conversions WHERE partner_id = $1 ORDER BY created_at DESC, id`, partnerID)
}

// ExecutePayout serializes payouts per partner on the partner row lock, then
// persists the planned payout and marks its conversions paid. A conversion
// that changed status in between fails the whole payout.
func (r *Repository) ExecutePayout(ctx context.Context, partnerID uuid.UUID,
	plan func(domain.PayoutSnapshot) (domain.PayoutPlan, error)) (domain.PayoutPlan, error) {
	var result domain.PayoutPlan

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var locked uuid.UUID
		err := tx.QueryRow(ctx, `SELECT id FROM rac_partners WHERE id = $1 FOR UPDATE`, partnerID).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound(partnerNotFoundMsg)
		}
		if err != nil {
			return fmt.Errorf("lock partner: %w", err)
		}

		totals, err := readTotals(ctx, tx, partnerID)
		if err != nil {
			return err
		}
		available, err := listConversions(ctx, tx, `
			SELECT `+conversionColumns+` FROM rac_conversions
			WHERE partner_id = $1 AND commission_status = 'available'
			ORDER BY created_at, id`, partnerID)
		if err != nil {
			return err
		}

		p, err := plan(domain.PayoutSnapshot{PartnerID: partnerID, Totals: totals, Available: available})
		if err != nil {
			return err
		}

		out := p.Payout
		if _, err := tx.Exec(ctx, `
			INSERT INTO rac_payouts (id, partner_id, amount, status, notes, created_by, created_at, completed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			out.ID, out.PartnerID, out.Amount, string(out.Status), out.Notes, out.CreatedBy, out.CreatedAt, out.CompletedAt,
		); err != nil {
			return fmt.Errorf("insert payout: %w", err)
		}

		if len(p.ConversionIDs) > 0 {
			tag, err := tx.Exec(ctx, `
				UPDATE rac_conversions
				SET commission_status = 'paid', paid_at = $2, payout_id = $3
				WHERE id = ANY($1) AND commission_status = 'available'`,
				p.ConversionIDs, out.CompletedAt, out.ID,
			)
			if err != nil {
				return fmt.Errorf("mark conversions paid: %w", err)
			}
			if tag.RowsAffected() != int64(len(p.ConversionIDs)) {
				return apperr.Conflict("conversions changed during payout")
			}
		}

		if err := appendAudit(ctx, tx, p.Audit); err != nil {
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		return domain.PayoutPlan{}, err
	}
	return result, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"affiliate_portal_backend/internal/appointments/domain"
	"affiliate_portal_backend/internal/attribution"
	"affiliate_portal_backend/internal/audit"
	"affiliate_portal_backend/platform/apperr"
	"affiliate_portal_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const appointmentNotFoundMsg = "appointment not found"

// Repository provides database operations for appointments.
type Repository struct {
	pool db.TxStarter
}

// New creates a new appointments repository.
func New(pool db.TxStarter) *Repository {
	return &Repository{pool: pool}
}

const appointmentColumns = `id, external_event_id, customer_name, customer_email, customer_phone, scheduled_at, ends_at,
	status, agent_id, outcome, sale_value, agent_commission, notes, recording_link, referral_code,
	utm_source, utm_medium, utm_campaign, created_at, updated_at`

func scanAppointment(row pgx.Row) (domain.Appointment, error) {
	var (
		a      domain.Appointment
		status string
	)
	err := row.Scan(&a.ID, &a.ExternalEventID, &a.CustomerName, &a.CustomerEmail, &a.CustomerPhone, &a.ScheduledAt, &a.EndsAt,
		&status, &a.AgentID, &a.Outcome, &a.SaleValue, &a.AgentCommission, &a.Notes, &a.RecordingLink, &a.ReferralCode,
		&a.UTMSource, &a.UTMMedium, &a.UTMCampaign, &a.CreatedAt, &a.UpdatedAt)
	a.Status = domain.Status(status)
	return a, err
}

func notFound() error {
	return apperr.NotFound(appointmentNotFoundMsg).WithCode(apperr.CodeAppointmentNotFound)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	a, err := scanAppointment(r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM rac_appointments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Appointment{}, notFound()
	}
	if err != nil {
		return domain.Appointment{}, fmt.Errorf("get appointment: %w", err)
	}
	return a, nil
}

// AttributionTarget returns the fields attribution diagnostics work from.
func (r *Repository) AttributionTarget(ctx context.Context, id uuid.UUID) (attribution.Target, error) {
	a, err := r.GetByID(ctx, id)
	if err != nil {
		return attribution.Target{}, err
	}
	return attribution.Target{AppointmentID: a.ID, CustomerEmail: a.CustomerEmail, ReferralCode: a.ReferralCode}, nil
}

// Create inserts a booking with its creation audit entry. A redelivered
// provider event returns the existing appointment and created=false.
func (r *Repository) Create(ctx context.Context, id uuid.UUID, b domain.Booking, entry audit.Entry) (domain.Appointment, bool, error) {
	var (
		appt    domain.Appointment
		created bool
	)
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		appt, err = scanAppointment(tx.QueryRow(ctx, `
			INSERT INTO rac_appointments (id, external_event_id, customer_name, customer_email, customer_phone,
				scheduled_at, ends_at, status, referral_code, utm_source, utm_medium, utm_campaign)
			VALUES ($1, $2, $3, $4, $5, $6, $7, 'scheduled', $8, $9, $10, $11)
			ON CONFLICT (external_event_id) DO NOTHING
			RETURNING `+appointmentColumns,
			id, b.ExternalEventID, b.CustomerName, b.CustomerEmail, b.CustomerPhone,
			b.ScheduledAt, b.EndsAt, b.ReferralCode, b.UTMSource, b.UTMMedium, b.UTMCampaign,
		))
		if errors.Is(err, pgx.ErrNoRows) && b.ExternalEventID != nil {
			appt, err = scanAppointment(tx.QueryRow(ctx,
				`SELECT `+appointmentColumns+` FROM rac_appointments WHERE external_event_id = $1`, *b.ExternalEventID))
			if err != nil {
				return fmt.Errorf("get existing appointment: %w", err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("insert appointment: %w", err)
		}
		created = true
		return audit.Append(ctx, tx, entry)
	})
	if err != nil {
		return domain.Appointment{}, false, err
	}
	return appt, created, nil
}

// Cancel cancels the open appointment behind a provider event. Completed
// appointments keep their outcome.
func (r *Repository) Cancel(ctx context.Context, externalEventID string, entry func(before domain.Appointment) (audit.Entry, error)) (domain.Appointment, error) {
	return r.transition(ctx, externalEventID, entry, `
		UPDATE rac_appointments SET status = 'cancelled', updated_at = now()
		WHERE id = $1 AND status IN ('scheduled', 'confirmed', 'rescheduled')
		RETURNING `+appointmentColumns)
}

// Reschedule moves the open appointment behind a provider event.
func (r *Repository) Reschedule(ctx context.Context, externalEventID string, start time.Time, end *time.Time,
	entry func(before domain.Appointment) (audit.Entry, error)) (domain.Appointment, error) {
	return r.transition(ctx, externalEventID, entry, `
		UPDATE rac_appointments SET status = 'rescheduled', scheduled_at = $2, ends_at = $3, updated_at = now()
		WHERE id = $1 AND status IN ('scheduled', 'confirmed', 'rescheduled')
		RETURNING `+appointmentColumns, start, end)
}

func (r *Repository) transition(ctx context.Context, externalEventID string, entry func(domain.Appointment) (audit.Entry, error),
	query string, extra ...any) (domain.Appointment, error) {
	var after domain.Appointment
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		before, err := scanAppointment(tx.QueryRow(ctx,
			`SELECT `+appointmentColumns+` FROM rac_appointments WHERE external_event_id = $1 FOR UPDATE`, externalEventID))
		if errors.Is(err, pgx.ErrNoRows) {
			return notFound()
		}
		if err != nil {
			return fmt.Errorf("lock appointment: %w", err)
		}

		args := append([]any{before.ID}, extra...)
		after, err = scanAppointment(tx.QueryRow(ctx, query, args...))
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.Conflict("appointment is no longer open")
		}
		if err != nil {
			return fmt.Errorf("update appointment: %w", err)
		}

		e, err := entry(before)
		if err != nil {
			return err
		}
		return audit.Append(ctx, tx, e)
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return after, nil
}

// ListForAgent returns the agent's appointments, soonest first. open limits
// the list to appointments still waiting for their call.
func (r *Repository) ListForAgent(ctx context.Context, agentID uuid.UUID, open bool, limit, offset int) ([]domain.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM rac_appointments WHERE agent_id = $1`
	if open {
		query += ` AND status IN ('scheduled', 'confirmed', 'rescheduled')`
	}
	query += ` ORDER BY scheduled_at, id LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, agentID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

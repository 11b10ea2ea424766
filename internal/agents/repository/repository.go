package repository

import (
	"context"
	"errors"
	"fmt"

	"affiliate_portal_backend/internal/agents/domain"
	"affiliate_portal_backend/internal/audit"
	"affiliate_portal_backend/platform/apperr"
	"affiliate_portal_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	agentNotFoundMsg       = "agent not found"
	appointmentNotFoundMsg = "appointment not found"
)

// Repository provides database operations for closers and their assignments.
type Repository struct {
	pool db.TxStarter
}

// New creates a new agents repository.
func New(pool db.TxStarter) *Repository {
	return &Repository{pool: pool}
}

const agentColumns = `id, name, email, is_active, is_approved, commission_rate, total_calls,
	total_conversions, total_revenue, conversion_rate, created_at`

func scanAgent(row pgx.Row) (domain.Agent, error) {
	var a domain.Agent
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.IsActive, &a.IsApproved, &a.CommissionRate, &a.TotalCalls,
		&a.TotalConversions, &a.TotalRevenue, &a.ConversionRate, &a.CreatedAt)
	return a, err
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Agent, error) {
	a, err := scanAgent(r.pool.QueryRow(ctx, `SELECT `+agentColumns+` FROM rac_agents WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Agent{}, apperr.NotFound(agentNotFoundMsg)
	}
	if err != nil {
		return domain.Agent{}, fmt.Errorf("get agent: %w", err)
	}
	return a, nil
}

// lockEligible locks every active, approved agent in creation order. The fixed
// order keeps concurrent assigners from deadlocking, and the locked rows carry
// the latest committed load.
func lockEligible(ctx context.Context, tx pgx.Tx) ([]domain.Agent, error) {
	rows, err := tx.Query(ctx, `
		SELECT `+agentColumns+` FROM rac_agents
		WHERE is_active AND is_approved
		ORDER BY created_at, id
		FOR UPDATE`)
	if err != nil {
		return nil, fmt.Errorf("lock agents: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Agent, 0)
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AssignLeastLoaded hands the appointment to the least-loaded eligible agent
// if nobody has claimed it yet. The appointment row is locked before the
// agent rows, matching the order outcome marking uses. Holding every eligible
// agent serializes concurrent assignments so two appointments never read the
// same load.
func (r *Repository) AssignLeastLoaded(ctx context.Context, appointmentID uuid.UUID, source string) (domain.Assignment, error) {
	result := domain.Assignment{AppointmentID: appointmentID}

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var (
			status  string
			current *uuid.UUID
		)
		err := tx.QueryRow(ctx,
			`SELECT status, agent_id FROM rac_appointments WHERE id = $1 FOR UPDATE`, appointmentID,
		).Scan(&status, &current)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound(appointmentNotFoundMsg).WithCode(apperr.CodeAppointmentNotFound)
		}
		if err != nil {
			return fmt.Errorf("lock appointment: %w", err)
		}
		if current != nil || (status != "scheduled" && status != "confirmed") {
			result.AgentID, result.Status = current, domain.AlreadyAssigned
			return nil
		}

		agents, err := lockEligible(ctx, tx)
		if err != nil {
			return err
		}
		i := domain.PickLeastLoaded(agents)
		if i < 0 {
			result.Status = domain.NoEligibleAgent
			return nil
		}
		agentID := agents[i].ID

		tag, err := tx.Exec(ctx, `
			UPDATE rac_appointments
			SET agent_id = $2, status = 'confirmed', updated_at = now()
			WHERE id = $1 AND agent_id IS NULL`,
			appointmentID, agentID,
		)
		if err != nil {
			return fmt.Errorf("assign appointment: %w", err)
		}
		if tag.RowsAffected() == 0 {
			result.Status = domain.AlreadyAssigned
			return nil
		}

		if _, err := tx.Exec(ctx,
			`UPDATE rac_agents SET total_calls = total_calls + 1, updated_at = now() WHERE id = $1`, agentID); err != nil {
			return fmt.Errorf("update agent load: %w", err)
		}

		entry, err := audit.NewEntry(audit.EntityAppointment, appointmentID, audit.ActionAppointmentAssigned,
			map[string]any{"status": status},
			map[string]any{"status": "confirmed", "agentId": agentID, "source": source})
		if err != nil {
			return err
		}
		entry.ActorRole = "system"
		if err := audit.Append(ctx, tx, entry); err != nil {
			return err
		}

		result.AgentID, result.Status = &agentID, domain.Assigned
		return nil
	})
	if err != nil {
		return domain.Assignment{}, err
	}
	return result, nil
}

// ListUnassigned returns open appointments without a closer, oldest first.
func (r *Repository) ListUnassigned(ctx context.Context, limit int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM rac_appointments
		WHERE agent_id IS NULL AND status IN ('scheduled', 'confirmed')
		ORDER BY created_at, id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unassigned appointments: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("list unassigned appointments: %w", err)
	}
	return ids, nil
}

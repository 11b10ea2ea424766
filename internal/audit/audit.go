// Package audit stores the append-only activity log used for timelines and
// anomaly review.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"affiliate_portal_backend/platform/db"

	"github.com/google/uuid"
)

// Entity types and actions written by the ledger.
const (
	EntityAppointment = "appointment"
	EntityConversion  = "conversion"
	EntityPayout      = "payout"

	ActionAppointmentCreated     = "appointment_created"
	ActionAppointmentAssigned    = "appointment_assigned"
	ActionAppointmentCancelled   = "appointment_cancelled"
	ActionAppointmentRescheduled = "appointment_rescheduled"
	ActionOutcomeMarked          = "outcome_marked"
	ActionAttributionAnomaly     = "attribution_anomaly"
	ActionPayoutCompleted        = "payout_completed"
)

// Entry is one immutable log row.
type Entry struct {
	ID         uuid.UUID       `json:"id"`
	EntityType string          `json:"entityType"`
	EntityID   uuid.UUID       `json:"entityId"`
	Action     string          `json:"action"`
	ActorID    *uuid.UUID      `json:"actorId,omitempty"`
	ActorRole  string          `json:"actorRole,omitempty"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// NewEntry marshals before/after snapshots. Nil snapshots are stored as NULL.
func NewEntry(entityType string, entityID uuid.UUID, action string, before, after any) (Entry, error) {
	e := Entry{ID: uuid.New(), EntityType: entityType, EntityID: entityID, Action: action, CreatedAt: time.Now().UTC()}
	var err error
	if before != nil {
		if e.Before, err = json.Marshal(before); err != nil {
			return Entry{}, fmt.Errorf("marshal audit before: %w", err)
		}
	}
	if after != nil {
		if e.After, err = json.Marshal(after); err != nil {
			return Entry{}, fmt.Errorf("marshal audit after: %w", err)
		}
	}
	return e, nil
}

// Repository reads and appends audit entries.
type Repository struct {
	pool db.Querier
}

// New creates a new audit repository.
func New(pool db.Querier) *Repository {
	return &Repository{pool: pool}
}

// Append writes e through q so callers can include it in their transaction.
func Append(ctx context.Context, q db.Querier, e Entry) error {
	_, err := q.Exec(ctx, `
		INSERT INTO rac_audit_log (id, entity_type, entity_id, action, actor_id, actor_role, before, after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.EntityType, e.EntityID, e.Action, e.ActorID, e.ActorRole, nullJSON(e.Before), nullJSON(e.After), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// Append writes e outside any transaction.
func (r *Repository) Append(ctx context.Context, e Entry) error {
	return Append(ctx, r.pool, e)
}

// ListForEntity returns the timeline of one entity, oldest first.
func (r *Repository) ListForEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]Entry, error) {
	return r.list(ctx, `
		SELECT id, entity_type, entity_id, action, actor_id, actor_role, before, after, created_at
		FROM rac_audit_log WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at, id`, entityType, entityID)
}

// ListByAction returns the most recent entries for an action.
func (r *Repository) ListByAction(ctx context.Context, action string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return r.list(ctx, `
		SELECT id, entity_type, entity_id, action, actor_id, actor_role, before, after, created_at
		FROM rac_audit_log WHERE action = $1
		ORDER BY created_at DESC LIMIT $2`, action, limit)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		var before, after []byte
		if err := rows.Scan(&e.ID, &e.EntityType, &e.EntityID, &e.Action, &e.ActorID, &e.ActorRole, &before, &after, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Before, e.After = before, after
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullJSON(b json.RawMessage) any {
	if len(b) == 0 {
		return nil
	}
	return []byte(b)
}

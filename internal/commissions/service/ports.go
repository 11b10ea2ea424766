// Package service implements the conversion recorder, the commission ledger
// and the payout processor.
package service

import (
	"context"
	"time"

	"affiliate_portal_backend/internal/attribution"
	"affiliate_portal_backend/internal/commissions/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OutcomeStore applies an outcome plan atomically. The plan callback runs
// with the appointment row locked and may be called at most once.
type OutcomeStore interface {
	LoadAppointment(ctx context.Context, id uuid.UUID) (domain.AppointmentState, error)
	MarkOutcome(ctx context.Context, appointmentID uuid.UUID, partnerCode *string,
		plan func(domain.OutcomeSnapshot) (domain.OutcomePlan, error)) (domain.OutcomeResult, error)
	RecordZeroValue(ctx context.Context, c domain.ZeroValueConversion) (bool, error)
}

// LedgerStore performs conditional status transitions and balance reads.
type LedgerStore interface {
	GetConversion(ctx context.Context, id uuid.UUID) (domain.Conversion, error)
	Release(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	ReleaseDue(ctx context.Context, now time.Time) ([]uuid.UUID, error)
	Totals(ctx context.Context, partnerID uuid.UUID) (domain.Totals, error)
	ListConversions(ctx context.Context, partnerID uuid.UUID) ([]domain.Conversion, error)
}

// PayoutStore runs plan under the partner lock and persists its result.
type PayoutStore interface {
	ExecutePayout(ctx context.Context, partnerID uuid.UUID,
		plan func(domain.PayoutSnapshot) (domain.PayoutPlan, error)) (domain.PayoutPlan, error)
}

// LeadMatcher finds the lead matched to a customer email.
type LeadMatcher interface {
	MatchLead(ctx context.Context, email string) (*attribution.LeadMatch, error)
}

// Settings exposes the tenant ledger settings.
type Settings interface {
	HoldPeriod(ctx context.Context) time.Duration
	MinimumPayout(ctx context.Context) decimal.Decimal
}

// Actor is the authenticated caller of a ledger action.
type Actor struct {
	ID   uuid.UUID
	Role string
}

// IsAdmin reports whether ownership checks are bypassed.
func (a Actor) IsAdmin() bool {
	return a.Role == "admin"
}

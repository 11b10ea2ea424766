// Package service implements least-loaded closer assignment.
package service

import (
	"context"

	"affiliate_portal_backend/internal/agents/domain"
	"affiliate_portal_backend/internal/agents/transport"
	"affiliate_portal_backend/internal/events"
	"affiliate_portal_backend/platform/logger"

	"github.com/google/uuid"
)

// Assignment sources recorded in audit entries and events.
const (
	SourceBooking   = "booking"
	SourceReconcile = "reconcile"
)

const reconcileBatchSize = 500

// Repository is the persistence port for assignment.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Agent, error)
	AssignLeastLoaded(ctx context.Context, appointmentID uuid.UUID, source string) (domain.Assignment, error)
	ListUnassigned(ctx context.Context, limit int) ([]uuid.UUID, error)
}

// Assigner hands appointments to the least-loaded eligible closer.
type Assigner struct {
	repo Repository
	bus  events.Bus
	log  *logger.Logger
}

func New(repo Repository, bus events.Bus, log *logger.Logger) *Assigner {
	return &Assigner{repo: repo, bus: bus, log: log}
}

// Assign assigns one appointment. With no eligible closer the appointment
// stays unassigned for the reconciliation pass; that is reported, not an error.
func (a *Assigner) Assign(ctx context.Context, appointmentID uuid.UUID, source string) (domain.Assignment, error) {
	result, err := a.repo.AssignLeastLoaded(ctx, appointmentID, source)
	if err != nil {
		return domain.Assignment{}, err
	}

	switch result.Status {
	case domain.Assigned:
		a.log.WithContext(ctx).Info("appointment assigned", "appointmentId", appointmentID, "agentId", *result.AgentID, "source", source)
		a.bus.Publish(ctx, events.AppointmentAssigned{
			BaseEvent:     events.NewBaseEvent(),
			AppointmentID: appointmentID,
			AgentID:       *result.AgentID,
			Source:        source,
		})
	case domain.NoEligibleAgent:
		a.log.WithContext(ctx).Warn("no eligible agent, appointment left unassigned", "appointmentId", appointmentID, "source", source)
		a.bus.Publish(ctx, events.AppointmentUnassigned{
			BaseEvent:     events.NewBaseEvent(),
			AppointmentID: appointmentID,
			Source:        source,
		})
	}
	return result, nil
}

// ReconcileUnassigned re-runs assignment over open appointments without a
// closer in creation order. Appointments assigned in between are skipped by
// the conditional write, so repeated runs are no-ops.
func (a *Assigner) ReconcileUnassigned(ctx context.Context) (transport.ReconcileResponse, error) {
	ids, err := a.repo.ListUnassigned(ctx, reconcileBatchSize)
	if err != nil {
		return transport.ReconcileResponse{}, err
	}

	resp := transport.ReconcileResponse{Scanned: len(ids)}
	for i, id := range ids {
		result, err := a.repo.AssignLeastLoaded(ctx, id, SourceReconcile)
		if err != nil {
			return resp, err
		}
		if result.Status == domain.NoEligibleAgent {
			resp.Unassigned += len(ids) - i
			a.log.WithContext(ctx).Warn("reconcile stopped, no eligible agent", "remaining", len(ids)-i)
			break
		}
		if result.Status == domain.Assigned {
			resp.Assigned++
			a.bus.Publish(ctx, events.AppointmentAssigned{
				BaseEvent:     events.NewBaseEvent(),
				AppointmentID: id,
				AgentID:       *result.AgentID,
				Source:        SourceReconcile,
			})
		}
	}

	if resp.Assigned > 0 || resp.Unassigned > 0 {
		a.log.WithContext(ctx).Info("reconciled unassigned appointments", "scanned", resp.Scanned, "assigned", resp.Assigned, "unassigned", resp.Unassigned)
	}
	return resp, nil
}

// Get returns one agent.
func (a *Assigner) Get(ctx context.Context, id uuid.UUID) (transport.AgentResponse, error) {
	ag, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return transport.AgentResponse{}, err
	}
	return transport.AgentResponse{
		ID:               ag.ID,
		Name:             ag.Name,
		Email:            ag.Email,
		IsActive:         ag.IsActive,
		IsApproved:       ag.IsApproved,
		CommissionRate:   ag.CommissionRate,
		TotalCalls:       ag.TotalCalls,
		TotalConversions: ag.TotalConversions,
		TotalRevenue:     ag.TotalRevenue,
		ConversionRate:   ag.ConversionRate,
		CreatedAt:        ag.CreatedAt,
	}, nil
}

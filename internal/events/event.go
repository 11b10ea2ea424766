// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"affiliate_portal_backend/platform/events"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewBaseEventAt = events.NewBaseEventAt
)

// =============================================================================
// Appointment Events
// =============================================================================

// AppointmentAssigned is published when a closer picks up an appointment.
type AppointmentAssigned struct {
	BaseEvent
	AppointmentID uuid.UUID `json:"appointmentId"`
	AgentID       uuid.UUID `json:"agentId"`
	Source        string    `json:"source"`
}

func (e AppointmentAssigned) EventName() string { return "appointments.assigned" }

// AppointmentUnassigned is published when no eligible closer exists.
type AppointmentUnassigned struct {
	BaseEvent
	AppointmentID uuid.UUID `json:"appointmentId"`
	Source        string    `json:"source"`
}

func (e AppointmentUnassigned) EventName() string { return "appointments.unassigned" }

// OutcomeMarked is published after an outcome commits.
type OutcomeMarked struct {
	BaseEvent
	AppointmentID     uuid.UUID        `json:"appointmentId"`
	AgentID           uuid.UUID        `json:"agentId"`
	Outcome           string           `json:"outcome"`
	SaleValue         *decimal.Decimal `json:"saleValue,omitempty"`
	AgentCommission   *decimal.Decimal `json:"agentCommission,omitempty"`
	ConversionID      *uuid.UUID       `json:"conversionId,omitempty"`
	PartnerID         *uuid.UUID       `json:"partnerId,omitempty"`
	PartnerCommission *decimal.Decimal `json:"partnerCommission,omitempty"`
}

func (e OutcomeMarked) EventName() string { return "appointments.outcome_marked" }

// =============================================================================
// Ledger Events
// =============================================================================

// CommissionsReleased is published after a release pass moved held commissions
// to available.
type CommissionsReleased struct {
	BaseEvent
	ConversionIDs []uuid.UUID `json:"conversionIds"`
	ReleasedAt    time.Time   `json:"releasedAt"`
}

func (e CommissionsReleased) EventName() string { return "commissions.released" }

// PayoutCompleted is published after a payout and its consumed conversions commit.
type PayoutCompleted struct {
	BaseEvent
	PayoutID      uuid.UUID       `json:"payoutId"`
	PartnerID     uuid.UUID       `json:"partnerId"`
	Amount        decimal.Decimal `json:"amount"`
	ConversionIDs []uuid.UUID     `json:"conversionIds"`
}

func (e PayoutCompleted) EventName() string { return "commissions.payout_completed" }

// =============================================================================
// Attribution Events
// =============================================================================

// AttributionAnomalyDetected is published when an appointment and its matched
// lead carry different partner codes.
type AttributionAnomalyDetected struct {
	BaseEvent
	AppointmentID   uuid.UUID `json:"appointmentId"`
	LeadID          uuid.UUID `json:"leadId"`
	AppointmentCode string    `json:"appointmentCode"`
	LeadCode        string    `json:"leadCode"`
}

func (e AttributionAnomalyDetected) EventName() string { return "attribution.anomaly_detected" }

// Package domain holds the closer model and the least-loaded selection rule.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Agent is an internal closer.
type Agent struct {
	ID               uuid.UUID
	Name             string
	Email            string
	IsActive         bool
	IsApproved       bool
	CommissionRate   decimal.Decimal
	TotalCalls       int
	TotalConversions int
	TotalRevenue     decimal.Decimal
	ConversionRate   decimal.Decimal
	CreatedAt        time.Time
}

// Eligible reports whether the agent may receive new appointments.
func (a Agent) Eligible() bool {
	return a.IsActive && a.IsApproved
}

// PickLeastLoaded returns the index of the eligible agent with the fewest
// calls, or -1. Ties keep input order, so callers pass agents oldest first.
func PickLeastLoaded(agents []Agent) int {
	best := -1
	for i, a := range agents {
		if !a.Eligible() {
			continue
		}
		if best == -1 || a.TotalCalls < agents[best].TotalCalls {
			best = i
		}
	}
	return best
}

// AssignmentStatus reports what an assignment attempt did.
type AssignmentStatus string

const (
	Assigned        AssignmentStatus = "assigned"
	AlreadyAssigned AssignmentStatus = "already_assigned"
	NoEligibleAgent AssignmentStatus = "no_eligible_agent"
)

// Assignment is the result of one assignment attempt.
type Assignment struct {
	AppointmentID uuid.UUID
	AgentID       *uuid.UUID
	Status        AssignmentStatus
}

package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AssignmentResponse struct {
	AppointmentID uuid.UUID  `json:"appointmentId"`
	AgentID       *uuid.UUID `json:"agentId,omitempty"`
	Status        string     `json:"status"`
}

type ReconcileResponse struct {
	Scanned    int `json:"scanned"`
	Assigned   int `json:"assigned"`
	Unassigned int `json:"unassigned"`
}

type AgentResponse struct {
	ID               uuid.UUID       `json:"id"`
	Name             string          `json:"name"`
	Email            string          `json:"email"`
	IsActive         bool            `json:"isActive"`
	IsApproved       bool            `json:"isApproved"`
	CommissionRate   decimal.Decimal `json:"commissionRate"`
	TotalCalls       int             `json:"totalCalls"`
	TotalConversions int             `json:"totalConversions"`
	TotalRevenue     decimal.Decimal `json:"totalRevenue"`
	ConversionRate   decimal.Decimal `json:"conversionRate"`
	CreatedAt        time.Time       `json:"createdAt"`
}

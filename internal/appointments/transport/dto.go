package transport

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateBookingRequest is the admin manual booking form.
type CreateBookingRequest struct {
	CustomerName  string     `json:"customerName" validate:"required,min=1,max=200"`
	CustomerEmail string     `json:"customerEmail" validate:"required,email,max=320"`
	CustomerPhone string     `json:"customerPhone" validate:"max=50"`
	ScheduledAt   time.Time  `json:"scheduledAt" validate:"required"`
	EndsAt        *time.Time `json:"endsAt,omitempty"`
	ReferralCode  *string    `json:"referralCode,omitempty" validate:"omitempty,referral_code"`
	UTMSource     *string    `json:"utmSource,omitempty" validate:"omitempty,max=200"`
	UTMMedium     *string    `json:"utmMedium,omitempty" validate:"omitempty,max=200"`
	UTMCampaign   *string    `json:"utmCampaign,omitempty" validate:"omitempty,max=200"`
}

// ListAppointmentsRequest filters an agent's work queue.
type ListAppointmentsRequest struct {
	Open     bool `form:"open"`
	Page     int  `form:"page" validate:"omitempty,min=1"`
	PageSize int  `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type AppointmentResponse struct {
	ID              uuid.UUID        `json:"id"`
	ExternalEventID *string          `json:"externalEventId,omitempty"`
	CustomerName    string           `json:"customerName"`
	CustomerEmail   string           `json:"customerEmail"`
	CustomerPhone   string           `json:"customerPhone"`
	ScheduledAt     time.Time        `json:"scheduledAt"`
	EndsAt          *time.Time       `json:"endsAt,omitempty"`
	Status          string           `json:"status"`
	AgentID         *uuid.UUID       `json:"agentId,omitempty"`
	Outcome         *string          `json:"outcome,omitempty"`
	SaleValue       *decimal.Decimal `json:"saleValue,omitempty"`
	AgentCommission *decimal.Decimal `json:"agentCommission,omitempty"`
	Notes           *string          `json:"notes,omitempty"`
	RecordingLink   *string          `json:"recordingLink,omitempty"`
	ReferralCode    *string          `json:"referralCode,omitempty"`
	UTMSource       *string          `json:"utmSource,omitempty"`
	UTMMedium       *string          `json:"utmMedium,omitempty"`
	UTMCampaign     *string          `json:"utmCampaign,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
}

type BookingResponse struct {
	Appointment AppointmentResponse `json:"appointment"`
	Created     bool                `json:"created"`
	Assignment  string              `json:"assignment"`
}

type AppointmentListResponse struct {
	Items    []AppointmentResponse `json:"items"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"pageSize"`
}

type TimelineEntry struct {
	ID        uuid.UUID       `json:"id"`
	Action    string          `json:"action"`
	ActorID   *uuid.UUID      `json:"actorId,omitempty"`
	ActorRole string          `json:"actorRole"`
	Before    json.RawMessage `json:"before,omitempty"`
	After     json.RawMessage `json:"after,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

type TimelineResponse struct {
	AppointmentID uuid.UUID       `json:"appointmentId"`
	Entries       []TimelineEntry `json:"entries"`
}

// Package domain holds the appointment model.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle status of an appointment.
type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusConfirmed   Status = "confirmed"
	StatusRescheduled Status = "rescheduled"
	StatusCancelled   Status = "cancelled"
	StatusCompleted   Status = "completed"
)

// Open reports whether the appointment still waits for its call.
func (s Status) Open() bool {
	return s == StatusScheduled || s == StatusConfirmed || s == StatusRescheduled
}

// Appointment is a booked call with a prospect.
type Appointment struct {
	ID              uuid.UUID
	ExternalEventID *string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	ScheduledAt     time.Time
	EndsAt          *time.Time
	Status          Status
	AgentID         *uuid.UUID
	Outcome         *string
	SaleValue       *decimal.Decimal
	AgentCommission *decimal.Decimal
	Notes           *string
	RecordingLink   *string
	ReferralCode    *string
	UTMSource       *string
	UTMMedium       *string
	UTMCampaign     *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Booking is the data a new appointment is created from, either by the
// scheduling webhook or by an admin.
type Booking struct {
	ExternalEventID *string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	ScheduledAt     time.Time
	EndsAt          *time.Time
	ReferralCode    *string
	UTMSource       *string
	UTMMedium       *string
	UTMCampaign     *string
}

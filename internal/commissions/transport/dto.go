package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MarkOutcomeRequest struct {
	Outcome       string           `json:"outcome" validate:"required,max=32"`
	SaleValue     *decimal.Decimal `json:"saleValue,omitempty"`
	Notes         *string          `json:"notes,omitempty" validate:"omitempty,max=4000"`
	RecordingLink *string          `json:"recordingLink,omitempty" validate:"omitempty,url,max=2048"`
}

type PayoutRequest struct {
	PartnerID uuid.UUID       `json:"partnerId"`
	Amount    decimal.Decimal `json:"amount"`
	Notes     string          `json:"notes" validate:"max=1000"`
}

type ConversionResponse struct {
	ID               uuid.UUID        `json:"id"`
	PartnerID        uuid.UUID        `json:"partnerId"`
	AppointmentID    *uuid.UUID       `json:"appointmentId,omitempty"`
	LeadID           *uuid.UUID       `json:"leadId,omitempty"`
	Type             string           `json:"conversionType"`
	SaleValue        *decimal.Decimal `json:"saleValue,omitempty"`
	CommissionAmount decimal.Decimal  `json:"commissionAmount"`
	CommissionStatus string           `json:"commissionStatus"`
	HoldUntil        time.Time        `json:"holdUntil"`
	ReleasedAt       *time.Time       `json:"releasedAt,omitempty"`
	PaidAt           *time.Time       `json:"paidAt,omitempty"`
	PayoutID         *uuid.UUID       `json:"payoutId,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
}

type OutcomeResponse struct {
	AppointmentID   uuid.UUID           `json:"appointmentId"`
	Outcome         string              `json:"outcome"`
	SaleValue       *decimal.Decimal    `json:"saleValue,omitempty"`
	AgentCommission *decimal.Decimal    `json:"agentCommission,omitempty"`
	Conversion      *ConversionResponse `json:"conversion,omitempty"`
	Anomaly         bool                `json:"attributionAnomaly"`
}

type PayoutResponse struct {
	ID            uuid.UUID       `json:"id"`
	PartnerID     uuid.UUID       `json:"partnerId"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	Notes         string          `json:"notes"`
	ConversionIDs []uuid.UUID     `json:"conversionIds"`
	CompletedAt   *time.Time      `json:"completedAt,omitempty"`
}

type ReleaseResponse struct {
	Released      int         `json:"released"`
	ConversionIDs []uuid.UUID `json:"conversionIds"`
}

type BalanceResponse struct {
	PartnerID   uuid.UUID            `json:"partnerId"`
	Held        decimal.Decimal      `json:"held"`
	Released    decimal.Decimal      `json:"released"`
	Available   decimal.Decimal      `json:"available"`
	PaidOut     decimal.Decimal      `json:"paidOut"`
	Pending     decimal.Decimal      `json:"pending"`
	Conversions []ConversionResponse `json:"conversions"`
}

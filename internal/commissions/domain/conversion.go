// Package domain holds the commission ledger model: conversions, their
// forward-only status machine, payouts and balance arithmetic.
package domain

import (
	"fmt"
	"time"

	"affiliate_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the commission status of a conversion.
type Status string

const (
	StatusHeld      Status = "held"
	StatusAvailable Status = "available"
	StatusPaid      Status = "paid"
)

// ConversionType names the qualifying event.
type ConversionType string

const (
	TypeLead    ConversionType = "lead"
	TypeBooking ConversionType = "booking"
	TypeSale    ConversionType = "sale"
)

// Conversion is commission owed to a partner. Only Status, ReleasedAt, PaidAt
// and PayoutID change after creation.
type Conversion struct {
	ID               uuid.UUID
	PartnerID        uuid.UUID
	AppointmentID    *uuid.UUID
	LeadID           *uuid.UUID
	Type             ConversionType
	SaleValue        *decimal.Decimal
	CommissionAmount decimal.Decimal
	Status           Status
	HoldUntil        time.Time
	ReleasedAt       *time.Time
	PaidAt           *time.Time
	PayoutID         *uuid.UUID
	CreatedAt        time.Time
}

// Releasable reports whether release is legal at now.
func (c Conversion) Releasable(now time.Time) bool {
	return c.Status == StatusHeld && c.CommissionAmount.IsPositive() && !now.Before(c.HoldUntil)
}

var nextStatus = map[Status]Status{
	StatusHeld:      StatusAvailable,
	StatusAvailable: StatusPaid,
}

// CheckTransition allows exactly held->available and available->paid.
func CheckTransition(from, to Status) error {
	if next, ok := nextStatus[from]; ok && next == to {
		return nil
	}
	return apperr.Conflict(fmt.Sprintf("commission cannot move from %s to %s", from, to))
}

// Commission is value x rate rounded to cents.
func Commission(value, rate decimal.Decimal) decimal.Decimal {
	return value.Mul(rate).Round(2)
}

// NewHeldConversion builds a conversion entering the ledger at held.
func NewHeldConversion(partnerID uuid.UUID, typ ConversionType, amount decimal.Decimal, now time.Time, hold time.Duration) Conversion {
	return Conversion{
		ID:               uuid.New(),
		PartnerID:        partnerID,
		Type:             typ,
		CommissionAmount: amount,
		Status:           StatusHeld,
		HoldUntil:        now.Add(hold),
		CreatedAt:        now,
	}
}

package domain

import (
	"strings"
	"time"

	"affiliate_portal_backend/internal/audit"
	"affiliate_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Outcome is the result of a closer's call.
type Outcome string

const (
	OutcomeConverted         Outcome = "converted"
	OutcomeNotInterested     Outcome = "not_interested"
	OutcomeNeedsFollowUp     Outcome = "needs_follow_up"
	OutcomeWrongNumber       Outcome = "wrong_number"
	OutcomeNoAnswer          Outcome = "no_answer"
	OutcomeCallbackRequested Outcome = "callback_requested"
	OutcomeRescheduled       Outcome = "rescheduled"
)

var outcomes = map[Outcome]struct{}{
	OutcomeConverted: {}, OutcomeNotInterested: {}, OutcomeNeedsFollowUp: {}, OutcomeWrongNumber: {},
	OutcomeNoAnswer: {}, OutcomeCallbackRequested: {}, OutcomeRescheduled: {},
}

// ParseOutcome rejects values outside the accepted enum, including the
// retired "cancelled".
func ParseOutcome(s string) (Outcome, error) {
	o := Outcome(strings.TrimSpace(s))
	if _, ok := outcomes[o]; !ok {
		return "", apperr.UnsupportedOutcome("unsupported outcome: " + s)
	}
	return o, nil
}

// AppointmentState is the locked appointment row an outcome applies to.
type AppointmentState struct {
	ID            uuid.UUID
	AgentID       *uuid.UUID
	Status        string
	Outcome       *Outcome
	SaleValue     *decimal.Decimal
	ReferralCode  *string
	CustomerEmail string
}

// AgentState is the closer's row at outcome time.
type AgentState struct {
	ID               uuid.UUID
	CommissionRate   decimal.Decimal
	TotalCalls       int
	TotalConversions int
	TotalRevenue     decimal.Decimal
}

// PartnerState is the partner resolved from the attributed code.
type PartnerState struct {
	ID             uuid.UUID
	Code           string
	CommissionRate decimal.Decimal
	IsActive       bool
}

// OutcomeSnapshot is everything read under lock before effects are planned.
type OutcomeSnapshot struct {
	Appointment AppointmentState
	Agent       *AgentState
	Partner     *PartnerState
}

// OutcomeInput is the validated request.
type OutcomeInput struct {
	Outcome       Outcome
	SaleValue     *decimal.Decimal
	Notes         *string
	RecordingLink *string
}

// OutcomePlan is the ordered list of writes for one outcome, applied in a
// single transaction.
type OutcomePlan struct {
	AppointmentID   uuid.UUID
	Outcome         Outcome
	SaleValue       *decimal.Decimal
	Notes           *string
	RecordingLink   *string
	AgentCommission *decimal.Decimal

	AgentID          *uuid.UUID
	CallsDelta       int
	ConversionsDelta int
	RevenueDelta     decimal.Decimal

	// Sale is nil unless a partner commission > 0 is owed.
	Sale *Conversion

	Audit []audit.Entry
}

// PlanOutcome computes the effects of marking an outcome. The call is counted
// the first time any outcome is set; the conversion and revenue are counted
// the first time the appointment becomes converted.
func PlanOutcome(snap OutcomeSnapshot, in OutcomeInput, hold time.Duration, now time.Time) (OutcomePlan, error) {
	if snap.Appointment.Status == "cancelled" {
		return OutcomePlan{}, apperr.Conflict("appointment is cancelled")
	}
	if in.SaleValue != nil && !in.SaleValue.IsPositive() {
		return OutcomePlan{}, apperr.InvalidAmount("sale value must be greater than zero")
	}

	plan := OutcomePlan{
		AppointmentID: snap.Appointment.ID,
		Outcome:       in.Outcome,
		SaleValue:     in.SaleValue,
		Notes:         in.Notes,
		RecordingLink: in.RecordingLink,
		RevenueDelta:  decimal.Zero,
	}

	converted := in.Outcome == OutcomeConverted && in.SaleValue != nil
	prev := snap.Appointment.Outcome

	if snap.Agent != nil {
		plan.AgentID = &snap.Agent.ID
		if prev == nil {
			plan.CallsDelta = 1
		}
		if converted {
			c := Commission(*in.SaleValue, snap.Agent.CommissionRate)
			plan.AgentCommission = &c
			if prev == nil || *prev != OutcomeConverted {
				plan.ConversionsDelta = 1
				plan.RevenueDelta = *in.SaleValue
			}
		}
	}

	if converted && snap.Partner != nil && snap.Partner.IsActive {
		amount := Commission(*in.SaleValue, snap.Partner.CommissionRate)
		if amount.IsPositive() {
			sale := NewHeldConversion(snap.Partner.ID, TypeSale, amount, now, hold)
			apptID := snap.Appointment.ID
			sale.AppointmentID = &apptID
			sale.SaleValue = in.SaleValue
			plan.Sale = &sale
		}
	}

	return plan, nil
}

// ConversionRate is conversions / calls rounded to four places.
func ConversionRate(conversions, calls int) decimal.Decimal {
	if calls <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(conversions)).Div(decimal.NewFromInt(int64(calls))).Round(4)
}

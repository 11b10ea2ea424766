package service

import (
	"context"
	"time"

	"affiliate_portal_backend/internal/attribution"
	"affiliate_portal_backend/internal/audit"
	"affiliate_portal_backend/internal/commissions/domain"
	"affiliate_portal_backend/internal/commissions/transport"
	"affiliate_portal_backend/internal/events"
	"affiliate_portal_backend/platform/apperr"
	"affiliate_portal_backend/platform/logger"
	"affiliate_portal_backend/platform/sanitize"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const appointmentNotFoundMsg = "appointment not found"

// Recorder turns call outcomes, completed leads and bookings into conversions.
type Recorder struct {
	store    OutcomeStore
	leads    LeadMatcher
	settings Settings
	bus      events.Bus
	log      *logger.Logger
	now      func() time.Time
}

// NewRecorder creates a conversion recorder. leads may be nil, in which case
// only the appointment's own partner code is used.
func NewRecorder(store OutcomeStore, leads LeadMatcher, settings Settings, bus events.Bus, log *logger.Logger) *Recorder {
	return &Recorder{store: store, leads: leads, settings: settings, bus: bus, log: log, now: time.Now}
}

// MarkOutcome validates the request, resolves attribution and applies the
// appointment update, agent totals, partner commission and audit entries in
// one transaction. Validation failures leave no trace.
func (r *Recorder) MarkOutcome(ctx context.Context, actor Actor, appointmentID uuid.UUID, req transport.MarkOutcomeRequest) (transport.OutcomeResponse, error) {
	outcome, err := domain.ParseOutcome(req.Outcome)
	if err != nil {
		return transport.OutcomeResponse{}, err
	}
	if req.SaleValue != nil && !req.SaleValue.IsPositive() {
		return transport.OutcomeResponse{}, apperr.InvalidAmount("sale value must be greater than zero")
	}

	appt, err := r.store.LoadAppointment(ctx, appointmentID)
	if err != nil {
		return transport.OutcomeResponse{}, err
	}
	if err := checkOwnership(actor, appt); err != nil {
		return transport.OutcomeResponse{}, err
	}

	var lead *attribution.LeadMatch
	if r.leads != nil && appt.CustomerEmail != "" {
		lead, err = r.leads.MatchLead(ctx, appt.CustomerEmail)
		if err != nil {
			r.log.WithContext(ctx).Warn("lead match failed, attributing by appointment code only", "appointmentId", appointmentID, "error", err)
			lead = nil
		}
	}
	var leadCode *string
	if lead != nil {
		leadCode = lead.ReferralCode
	}
	code, anomaly := attribution.ResolvePartnerCode(appt.ReferralCode, leadCode)

	input := domain.OutcomeInput{
		Outcome:       outcome,
		SaleValue:     roundMoney(req.SaleValue),
		Notes:         sanitize.TextPtr(req.Notes),
		RecordingLink: req.RecordingLink,
	}
	hold := r.settings.HoldPeriod(ctx)
	now := r.now().UTC()

	result, err := r.store.MarkOutcome(ctx, appointmentID, code, func(snap domain.OutcomeSnapshot) (domain.OutcomePlan, error) {
		if err := checkOwnership(actor, snap.Appointment); err != nil {
			return domain.OutcomePlan{}, err
		}
		plan, err := domain.PlanOutcome(snap, input, hold, now)
		if err != nil {
			return domain.OutcomePlan{}, err
		}
		entries, err := outcomeAudit(actor, snap, plan, lead, anomaly)
		if err != nil {
			return domain.OutcomePlan{}, err
		}
		plan.Audit = entries
		return plan, nil
	})
	if err != nil {
		return transport.OutcomeResponse{}, err
	}

	r.publishOutcome(ctx, result, lead, anomaly, now)
	return toOutcomeResponse(result, anomaly != nil), nil
}

// RecordLead records the zero-value lead conversion for an actionable lead.
func (r *Recorder) RecordLead(ctx context.Context, leadID uuid.UUID, referralCode string) error {
	return r.recordZeroValue(ctx, domain.ZeroValueConversion{Code: referralCode, Type: domain.TypeLead, LeadID: &leadID})
}

// RecordBooking records the zero-value booking conversion for a new appointment.
func (r *Recorder) RecordBooking(ctx context.Context, appointmentID uuid.UUID, referralCode string) error {
	return r.recordZeroValue(ctx, domain.ZeroValueConversion{Code: referralCode, Type: domain.TypeBooking, AppointmentID: &appointmentID})
}

func (r *Recorder) recordZeroValue(ctx context.Context, c domain.ZeroValueConversion) error {
	c.Code = sanitize.Code(c.Code)
	if c.Code == "" {
		return nil
	}
	c.At = r.now().UTC()

	inserted, err := r.store.RecordZeroValue(ctx, c)
	if err != nil {
		return err
	}
	if !inserted {
		r.log.WithContext(ctx).Debug("zero-value conversion already recorded", "type", c.Type, "code", c.Code)
	}
	return nil
}

func (r *Recorder) publishOutcome(ctx context.Context, result domain.OutcomeResult, lead *attribution.LeadMatch, anomaly *attribution.Anomaly, now time.Time) {
	plan := result.Plan
	evt := events.OutcomeMarked{
		BaseEvent:       events.NewBaseEventAt(now),
		AppointmentID:   plan.AppointmentID,
		Outcome:         string(plan.Outcome),
		SaleValue:       plan.SaleValue,
		AgentCommission: plan.AgentCommission,
	}
	if plan.AgentID != nil {
		evt.AgentID = *plan.AgentID
	}
	if plan.Sale != nil && result.SaleInserted {
		evt.ConversionID = &plan.Sale.ID
		evt.PartnerID = &plan.Sale.PartnerID
		evt.PartnerCommission = &plan.Sale.CommissionAmount
	}
	r.bus.Publish(ctx, evt)

	if anomaly != nil && lead != nil {
		r.log.WithContext(ctx).AttributionAnomaly(plan.AppointmentID.String(), lead.LeadID.String(),
			anomaly.AppointmentCode, anomaly.LeadCode)
		r.bus.Publish(ctx, events.AttributionAnomalyDetected{
			BaseEvent:       events.NewBaseEventAt(now),
			AppointmentID:   plan.AppointmentID,
			LeadID:          lead.LeadID,
			AppointmentCode: anomaly.AppointmentCode,
			LeadCode:        anomaly.LeadCode,
		})
	}
}

// checkOwnership hides appointments the actor does not own.
func checkOwnership(actor Actor, appt domain.AppointmentState) error {
	if actor.IsAdmin() {
		return nil
	}
	if appt.AgentID == nil || *appt.AgentID != actor.ID {
		return apperr.NotFound(appointmentNotFoundMsg).WithCode(apperr.CodeAppointmentNotFound)
	}
	return nil
}

type outcomeSnapshot struct {
	Status    string           `json:"status"`
	Outcome   *domain.Outcome  `json:"outcome"`
	SaleValue *decimal.Decimal `json:"saleValue"`
}

type outcomeEffects struct {
	Status            string           `json:"status"`
	Outcome           domain.Outcome   `json:"outcome"`
	SaleValue         *decimal.Decimal `json:"saleValue"`
	AgentCommission   *decimal.Decimal `json:"agentCommission"`
	PartnerID         *uuid.UUID       `json:"partnerId,omitempty"`
	PartnerCommission *decimal.Decimal `json:"partnerCommission,omitempty"`
	ConversionID      *uuid.UUID       `json:"conversionId,omitempty"`
}

func outcomeAudit(actor Actor, snap domain.OutcomeSnapshot, plan domain.OutcomePlan, lead *attribution.LeadMatch, anomaly *attribution.Anomaly) ([]audit.Entry, error) {
	after := outcomeEffects{
		Status:          "completed",
		Outcome:         plan.Outcome,
		SaleValue:       plan.SaleValue,
		AgentCommission: plan.AgentCommission,
	}
	if plan.Sale != nil {
		after.PartnerID = &plan.Sale.PartnerID
		after.PartnerCommission = &plan.Sale.CommissionAmount
		after.ConversionID = &plan.Sale.ID
	}

	entry, err := audit.NewEntry(audit.EntityAppointment, snap.Appointment.ID, audit.ActionOutcomeMarked,
		outcomeSnapshot{Status: snap.Appointment.Status, Outcome: snap.Appointment.Outcome, SaleValue: snap.Appointment.SaleValue},
		after)
	if err != nil {
		return nil, err
	}
	entry.ActorID, entry.ActorRole = &actor.ID, actor.Role
	entries := []audit.Entry{entry}

	if anomaly != nil && lead != nil {
		a, err := audit.NewEntry(audit.EntityAppointment, snap.Appointment.ID, audit.ActionAttributionAnomaly, nil, map[string]any{
			"leadId":          lead.LeadID,
			"appointmentCode": anomaly.AppointmentCode,
			"leadCode":        anomaly.LeadCode,
		})
		if err != nil {
			return nil, err
		}
		a.ActorID, a.ActorRole = &actor.ID, actor.Role
		entries = append(entries, a)
	}
	return entries, nil
}

func roundMoney(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	r := d.Round(2)
	return &r
}

func toOutcomeResponse(result domain.OutcomeResult, anomaly bool) transport.OutcomeResponse {
	resp := transport.OutcomeResponse{
		AppointmentID:   result.Plan.AppointmentID,
		Outcome:         string(result.Plan.Outcome),
		SaleValue:       result.Plan.SaleValue,
		AgentCommission: result.Plan.AgentCommission,
		Anomaly:         anomaly,
	}
	if result.Plan.Sale != nil && result.SaleInserted {
		c := toConversionResponse(*result.Plan.Sale)
		resp.Conversion = &c
	}
	return resp
}

func toConversionResponse(c domain.Conversion) transport.ConversionResponse {
	return transport.ConversionResponse{
		ID:               c.ID,
		PartnerID:        c.PartnerID,
		AppointmentID:    c.AppointmentID,
		LeadID:           c.LeadID,
		Type:             string(c.Type),
		SaleValue:        c.SaleValue,
		CommissionAmount: c.CommissionAmount,
		CommissionStatus: string(c.Status),
		HoldUntil:        c.HoldUntil,
		ReleasedAt:       c.ReleasedAt,
		PaidAt:           c.PaidAt,
		PayoutID:         c.PayoutID,
		CreatedAt:        c.CreatedAt,
	}
}

// Package notification turns ledger events into log lines and live updates
// for connected closers and admins. Domain modules only publish events; they
// never know who listens.
package notification

import (
	"context"

	"affiliate_portal_backend/internal/events"
	apphttp "affiliate_portal_backend/internal/http"
	"affiliate_portal_backend/internal/notification/sse"
	"affiliate_portal_backend/platform/httpkit"
	"affiliate_portal_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Module subscribes to domain events and fans them out.
type Module struct {
	sse *sse.Service
	log *logger.Logger
}

func New(log *logger.Logger) *Module {
	return &Module{sse: sse.New(log), log: log}
}

func (m *Module) Name() string { return "notification" }

func (m *Module) SSE() *sse.Service { return m.sse }

// RegisterRoutes mounts the event streams.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Agent.GET("/events", m.sse.Handler(userID, false))
	ctx.Admin.GET("/events", m.sse.Handler(userID, true))
}

func userID(c *gin.Context) (uuid.UUID, bool) {
	id := httpkit.GetIdentity(c)
	if !id.IsAuthenticated() {
		return uuid.Nil, false
	}
	return id.UserID(), true
}

// RegisterHandlers subscribes the module to every event it reacts to.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.AppointmentAssigned{}.EventName(), events.HandlerFunc(m.handleAppointmentAssigned))
	bus.Subscribe(events.AppointmentUnassigned{}.EventName(), events.HandlerFunc(m.handleAppointmentUnassigned))
	bus.Subscribe(events.OutcomeMarked{}.EventName(), events.HandlerFunc(m.handleOutcomeMarked))
	bus.Subscribe(events.CommissionsReleased{}.EventName(), events.HandlerFunc(m.handleCommissionsReleased))
	bus.Subscribe(events.PayoutCompleted{}.EventName(), events.HandlerFunc(m.handlePayoutCompleted))
	bus.Subscribe(events.AttributionAnomalyDetected{}.EventName(), events.HandlerFunc(m.handleAttributionAnomaly))
}

func (m *Module) handleAppointmentAssigned(ctx context.Context, event events.Event) error {
	e, ok := event.(events.AppointmentAssigned)
	if !ok {
		return nil
	}
	m.log.WithContext(ctx).Info("appointment assigned",
		"appointment_id", e.AppointmentID, "agent_id", e.AgentID, "source", e.Source)

	msg := sse.Event{Type: sse.EventAppointmentAssigned, AppointmentID: e.AppointmentID, Data: e}
	m.sse.Publish(e.AgentID, msg)
	m.sse.PublishToAdmins(msg)
	return nil
}

func (m *Module) handleAppointmentUnassigned(ctx context.Context, event events.Event) error {
	e, ok := event.(events.AppointmentUnassigned)
	if !ok {
		return nil
	}
	m.log.WithContext(ctx).Warn("appointment left unassigned",
		"appointment_id", e.AppointmentID, "source", e.Source)

	m.sse.PublishToAdmins(sse.Event{
		Type:          sse.EventAppointmentUnassigned,
		AppointmentID: e.AppointmentID,
		Message:       "no eligible closer",
	})
	return nil
}

func (m *Module) handleOutcomeMarked(ctx context.Context, event events.Event) error {
	e, ok := event.(events.OutcomeMarked)
	if !ok {
		return nil
	}
	m.log.WithContext(ctx).Info("outcome marked",
		"appointment_id", e.AppointmentID, "agent_id", e.AgentID, "outcome", e.Outcome)

	m.sse.PublishToAdmins(sse.Event{Type: sse.EventOutcomeMarked, AppointmentID: e.AppointmentID, Data: e})
	return nil
}

func (m *Module) handleCommissionsReleased(ctx context.Context, event events.Event) error {
	e, ok := event.(events.CommissionsReleased)
	if !ok {
		return nil
	}
	m.log.WithContext(ctx).Info("commissions released", "count", len(e.ConversionIDs))

	m.sse.PublishToAdmins(sse.Event{Type: sse.EventCommissionsReleased, Data: e})
	return nil
}

func (m *Module) handlePayoutCompleted(ctx context.Context, event events.Event) error {
	e, ok := event.(events.PayoutCompleted)
	if !ok {
		return nil
	}
	m.log.WithContext(ctx).Info("payout completed",
		"payout_id", e.PayoutID, "partner_id", e.PartnerID, "amount", e.Amount.StringFixed(2))

	m.sse.PublishToAdmins(sse.Event{Type: sse.EventPayoutCompleted, Data: e})
	return nil
}

func (m *Module) handleAttributionAnomaly(ctx context.Context, event events.Event) error {
	e, ok := event.(events.AttributionAnomalyDetected)
	if !ok {
		return nil
	}
	m.log.WithContext(ctx).Warn("attribution anomaly",
		"appointment_id", e.AppointmentID, "lead_id", e.LeadID,
		"appointment_code", e.AppointmentCode, "lead_code", e.LeadCode)

	m.sse.PublishToAdmins(sse.Event{
		Type:          sse.EventAttributionAnomaly,
		AppointmentID: e.AppointmentID,
		Message:       "appointment and lead carry different partner codes",
		Data:          e,
	})
	return nil
}

var _ apphttp.Module = (*Module)(nil)

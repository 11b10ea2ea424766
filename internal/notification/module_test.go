package notification

import (
	"context"
	"testing"

	"affiliate_portal_backend/internal/events"
	"affiliate_portal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestHandlersAcceptEveryLedgerEvent(t *testing.T) {
	log := logger.Nop()
	bus := events.NewInMemoryBus(log)
	m := New(log)
	m.RegisterHandlers(bus)

	ctx := context.Background()
	apptID := uuid.New()
	all := []events.Event{
		events.AppointmentAssigned{BaseEvent: events.NewBaseEvent(), AppointmentID: apptID, AgentID: uuid.New(), Source: "booking"},
		events.AppointmentUnassigned{BaseEvent: events.NewBaseEvent(), AppointmentID: apptID, Source: "reconcile"},
		events.OutcomeMarked{BaseEvent: events.NewBaseEvent(), AppointmentID: apptID, AgentID: uuid.New(), Outcome: "no_show"},
		events.CommissionsReleased{BaseEvent: events.NewBaseEvent(), ConversionIDs: []uuid.UUID{uuid.New()}},
		events.PayoutCompleted{BaseEvent: events.NewBaseEvent(), PayoutID: uuid.New(), PartnerID: uuid.New(), Amount: decimal.NewFromInt(100)},
		events.AttributionAnomalyDetected{BaseEvent: events.NewBaseEvent(), AppointmentID: apptID, LeadID: uuid.New(), AppointmentCode: "A", LeadCode: "B"},
	}
	for _, e := range all {
		assert.NoError(t, bus.PublishSync(ctx, e), e.EventName())
	}
}

func TestHandlerIgnoresUnexpectedPayload(t *testing.T) {
	m := New(logger.Nop())
	err := m.handleOutcomeMarked(context.Background(), events.PayoutCompleted{BaseEvent: events.NewBaseEvent()})
	assert.NoError(t, err)
}

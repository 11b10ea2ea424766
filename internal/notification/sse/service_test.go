package sse

import (
	"testing"

	"affiliate_portal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesOnlyTargetUser(t *testing.T) {
	s := New(logger.Nop())
	agent := &client{userID: uuid.New(), events: make(chan Event, 1)}
	other := &client{userID: uuid.New(), events: make(chan Event, 1)}
	s.addClient(agent)
	s.addClient(other)

	s.Publish(agent.userID, Event{Type: EventAppointmentAssigned})

	require.Len(t, agent.events, 1)
	assert.Empty(t, other.events)
}

func TestPublishToAdminsSkipsAgents(t *testing.T) {
	s := New(logger.Nop())
	admin := &client{userID: uuid.New(), admin: true, events: make(chan Event, 1)}
	agent := &client{userID: uuid.New(), events: make(chan Event, 1)}
	s.addClient(admin)
	s.addClient(agent)

	s.PublishToAdmins(Event{Type: EventPayoutCompleted})

	require.Len(t, admin.events, 1)
	assert.Equal(t, EventPayoutCompleted, (<-admin.events).Type)
	assert.Empty(t, agent.events)
}

func TestFullBufferDropsInsteadOfBlocking(t *testing.T) {
	s := New(logger.Nop())
	c := &client{userID: uuid.New(), events: make(chan Event, 1)}
	s.addClient(c)

	s.Publish(c.userID, Event{Type: EventOutcomeMarked})
	s.Publish(c.userID, Event{Type: EventOutcomeMarked})

	assert.Len(t, c.events, 1)
}

func TestRemoveClientForgetsUser(t *testing.T) {
	s := New(logger.Nop())
	c := &client{userID: uuid.New(), events: make(chan Event, 1)}
	s.addClient(c)
	require.Equal(t, 1, s.Connected(c.userID))

	s.removeClient(c)

	assert.Equal(t, 0, s.Connected(c.userID))
}

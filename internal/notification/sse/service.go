// Package sse provides Server-Sent Events support for live ledger updates.
package sse

import (
	"encoding/json"
	"net/http"
	"sync"

	"affiliate_portal_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EventType represents different types of SSE events
type EventType string

const (
	EventAppointmentAssigned   EventType = "appointment_assigned"
	EventAppointmentUnassigned EventType = "appointment_unassigned"
	EventOutcomeMarked         EventType = "outcome_marked"
	EventCommissionsReleased   EventType = "commissions_released"
	EventPayoutCompleted       EventType = "payout_completed"
	EventAttributionAnomaly    EventType = "attribution_anomaly"
)

// Event represents an SSE event payload
type Event struct {
	Type          EventType   `json:"type"`
	AppointmentID uuid.UUID   `json:"appointmentId,omitempty"`
	Message       string      `json:"message,omitempty"`
	Data          interface{} `json:"data,omitempty"`
}

type client struct {
	userID uuid.UUID
	admin  bool
	events chan Event
}

// Service manages SSE connections and event broadcasting
type Service struct {
	mu      sync.RWMutex
	clients map[uuid.UUID][]*client
	log     *logger.Logger
}

func New(log *logger.Logger) *Service {
	return &Service{
		clients: make(map[uuid.UUID][]*client),
		log:     log,
	}
}

func (s *Service) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.userID] = append(s.clients[c.userID], c)
}

func (s *Service) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clients := s.clients[c.userID]
	for i, cl := range clients {
		if cl == c {
			s.clients[c.userID] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(s.clients[c.userID]) == 0 {
		delete(s.clients, c.userID)
	}
}

// Publish sends an event to every stream opened by userID.
func (s *Service) Publish(userID uuid.UUID, event Event) {
	s.mu.RLock()
	clients := append([]*client(nil), s.clients[userID]...)
	s.mu.RUnlock()

	for _, c := range clients {
		s.send(c, event)
	}
}

// PublishToAdmins sends an event to every admin stream.
func (s *Service) PublishToAdmins(event Event) {
	s.mu.RLock()
	var admins []*client
	for _, clients := range s.clients {
		for _, c := range clients {
			if c.admin {
				admins = append(admins, c)
			}
		}
	}
	s.mu.RUnlock()

	for _, c := range admins {
		s.send(c, event)
	}
}

func (s *Service) send(c *client, event Event) {
	select {
	case c.events <- event:
	default:
		s.log.Warn("sse buffer full, dropping event", "user_id", c.userID, "type", event.Type)
	}
}

// Handler returns a Gin handler streaming events for the caller. Admin
// streams also receive every admin broadcast.
func (s *Service) Handler(getUserID func(*gin.Context) (uuid.UUID, bool), admin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := getUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		cl := &client{
			userID: userID,
			admin:  admin,
			events: make(chan Event, 32),
		}
		s.addClient(cl)
		defer s.removeClient(cl)

		c.SSEvent("connected", gin.H{"userId": userID})
		c.Writer.Flush()

		s.log.Debug("sse client connected", "user_id", userID, "admin", admin)

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				s.log.Debug("sse client disconnected", "user_id", userID)
				return
			case event := <-cl.events:
				data, _ := json.Marshal(event)
				c.SSEvent(string(event.Type), string(data))
				c.Writer.Flush()
			}
		}
	}
}

// Connected reports how many streams are open for userID.
func (s *Service) Connected(userID uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients[userID])
}

package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Provider event names.
const (
	EventInviteeCreated     = "invitee.created"
	EventInviteeCanceled    = "invitee.canceled"
	EventInviteeRescheduled = "invitee.rescheduled"
)

// Envelope is the outer shape every scheduling-provider delivery shares.
type Envelope struct {
	Event     string          `json:"event"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

// QuestionAnswer is one free-form booking question.
type QuestionAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Position int    `json:"position"`
}

// Tracking carries the UTM parameters the provider captured from the booking link.
type Tracking struct {
	UTMSource   *string `json:"utm_source"`
	UTMMedium   *string `json:"utm_medium"`
	UTMCampaign *string `json:"utm_campaign"`
}

// ScheduledEvent is the provider's calendar event.
type ScheduledEvent struct {
	URI       string     `json:"uri"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
}

type inviteePayload struct {
	Event               string           `json:"event"`
	Name                string           `json:"name"`
	FirstName           string           `json:"first_name"`
	LastName            string           `json:"last_name"`
	Email               string           `json:"email"`
	TextReminderNumber  string           `json:"text_reminder_number"`
	QuestionsAndAnswers []QuestionAnswer `json:"questions_and_answers"`
	Tracking            *Tracking        `json:"tracking"`
	ScheduledEvent      *ScheduledEvent  `json:"scheduled_event"`
	Cancellation        *struct {
		Reason string `json:"reason"`
	} `json:"cancellation"`
}

// eventID prefers the scheduled event URI and falls back to the bare event reference.
func (p inviteePayload) eventID() string {
	if p.ScheduledEvent != nil && strings.TrimSpace(p.ScheduledEvent.URI) != "" {
		return strings.TrimSpace(p.ScheduledEvent.URI)
	}
	return strings.TrimSpace(p.Event)
}

// Event is one of InviteeCreated, InviteeCanceled, InviteeRescheduled or
// Unsupported.
type Event interface {
	Name() string
	isEvent()
}

// InviteeCreated is a new booking.
type InviteeCreated struct {
	ExternalEventID string
	InviteeName     string
	Email           string
	Phone           string
	StartTime       time.Time
	EndTime         *time.Time
	Answers         []QuestionAnswer
	Tracking        Tracking
}

// InviteeCanceled cancels the booking behind ExternalEventID.
type InviteeCanceled struct {
	ExternalEventID string
	Reason          *string
}

// InviteeRescheduled moves the booking behind ExternalEventID.
type InviteeRescheduled struct {
	ExternalEventID string
	StartTime       time.Time
	EndTime         *time.Time
}

// Unsupported is any event type this service does not act on.
type Unsupported struct {
	Event string
}

func (InviteeCreated) Name() string     { return EventInviteeCreated }
func (InviteeCanceled) Name() string    { return EventInviteeCanceled }
func (InviteeRescheduled) Name() string { return EventInviteeRescheduled }
func (u Unsupported) Name() string      { return u.Event }

func (InviteeCreated) isEvent()     {}
func (InviteeCanceled) isEvent()    {}
func (InviteeRescheduled) isEvent() {}
func (Unsupported) isEvent()        {}

// ErrMalformedPayload is returned for bodies that are not a provider envelope.
var ErrMalformedPayload = errors.New("malformed webhook payload")

// Parse decodes a delivery into its typed event. Missing optional fields stay
// empty; only structurally broken bodies and events without an identifier
// fail.
func Parse(body []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	switch env.Event {
	case EventInviteeCreated, EventInviteeCanceled, EventInviteeRescheduled:
	default:
		return Unsupported{Event: env.Event}, nil
	}

	var p inviteePayload
	if len(env.Payload) == 0 {
		return nil, fmt.Errorf("%w: missing payload", ErrMalformedPayload)
	}
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	id := p.eventID()
	if id == "" {
		return nil, fmt.Errorf("%w: missing event identifier", ErrMalformedPayload)
	}

	switch env.Event {
	case EventInviteeCreated:
		if p.ScheduledEvent == nil || p.ScheduledEvent.StartTime.IsZero() {
			return nil, fmt.Errorf("%w: missing start time", ErrMalformedPayload)
		}
		e := InviteeCreated{
			ExternalEventID: id,
			InviteeName:     inviteeName(p),
			Email:           strings.TrimSpace(p.Email),
			Phone:           strings.TrimSpace(p.TextReminderNumber),
			StartTime:       p.ScheduledEvent.StartTime,
			EndTime:         p.ScheduledEvent.EndTime,
			Answers:         p.QuestionsAndAnswers,
		}
		if p.Tracking != nil {
			e.Tracking = *p.Tracking
		}
		return e, nil
	case EventInviteeCanceled:
		e := InviteeCanceled{ExternalEventID: id}
		if p.Cancellation != nil {
			if r := strings.TrimSpace(p.Cancellation.Reason); r != "" {
				e.Reason = &r
			}
		}
		return e, nil
	default:
		if p.ScheduledEvent == nil || p.ScheduledEvent.StartTime.IsZero() {
			return nil, fmt.Errorf("%w: missing start time", ErrMalformedPayload)
		}
		return InviteeRescheduled{ExternalEventID: id, StartTime: p.ScheduledEvent.StartTime, EndTime: p.ScheduledEvent.EndTime}, nil
	}
}

func inviteeName(p inviteePayload) string {
	if n := strings.TrimSpace(p.Name); n != "" {
		return n
	}
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

package webhook

import (
	"context"
	"fmt"
	"time"

	"affiliate_portal_backend/internal/appointments/domain"
	apptservice "affiliate_portal_backend/internal/appointments/service"
	"affiliate_portal_backend/internal/appointments/transport"
	"affiliate_portal_backend/platform/logger"
)

const actorRole = "scheduling_webhook"

// Appointments is the appointment intake the webhook drives.
type Appointments interface {
	CreateBooking(ctx context.Context, actor apptservice.Actor, b domain.Booking) (transport.BookingResponse, error)
	Cancel(ctx context.Context, actor apptservice.Actor, externalEventID string) (transport.AppointmentResponse, error)
	Reschedule(ctx context.Context, actor apptservice.Actor, externalEventID string, start time.Time, end *time.Time) (transport.AppointmentResponse, error)
}

// Service turns provider events into appointment changes.
type Service struct {
	appointments Appointments
	log          *logger.Logger
}

func NewService(appointments Appointments, log *logger.Logger) *Service {
	return &Service{appointments: appointments, log: log}
}

// Result summarizes what a delivery did.
type Result struct {
	Event   string `json:"event"`
	Handled bool   `json:"handled"`
}

// Process applies one event.
func (s *Service) Process(ctx context.Context, evt Event) (Result, error) {
	actor := apptservice.Actor{Role: actorRole}
	res := Result{Event: evt.Name()}

	switch e := evt.(type) {
	case InviteeCreated:
		_, err := s.appointments.CreateBooking(ctx, actor, BookingFrom(e))
		if err != nil {
			return res, fmt.Errorf("create booking: %w", err)
		}
	case InviteeCanceled:
		if _, err := s.appointments.Cancel(ctx, actor, e.ExternalEventID); err != nil {
			return res, fmt.Errorf("cancel booking: %w", err)
		}
	case InviteeRescheduled:
		if _, err := s.appointments.Reschedule(ctx, actor, e.ExternalEventID, e.StartTime.UTC(), utcPtr(e.EndTime)); err != nil {
			return res, fmt.Errorf("reschedule booking: %w", err)
		}
	default:
		s.log.WithContext(ctx).Debug("ignoring webhook event", "event", evt.Name())
		return res, nil
	}

	res.Handled = true
	return res, nil
}

// BookingFrom extracts the booking fields from an invitee.created event.
func BookingFrom(e InviteeCreated) domain.Booking {
	id := e.ExternalEventID
	utm := UTM(e.Tracking, e.Answers)
	phone := e.Phone
	if phone == "" {
		phone = PhoneFromAnswers(e.Answers)
	}
	return domain.Booking{
		ExternalEventID: &id,
		CustomerName:    e.InviteeName,
		CustomerEmail:   e.Email,
		CustomerPhone:   phone,
		ScheduledAt:     e.StartTime.UTC(),
		EndsAt:          utcPtr(e.EndTime),
		ReferralCode:    AffiliateCode(e.Answers),
		UTMSource:       utm.UTMSource,
		UTMMedium:       utm.UTMMedium,
		UTMCampaign:     utm.UTMCampaign,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

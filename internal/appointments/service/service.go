// Package service implements booking intake, provider-driven changes and the
// closer work queue for appointments.
package service

import (
	"context"
	"time"

	agentdomain "affiliate_portal_backend/internal/agents/domain"
	"affiliate_portal_backend/internal/appointments/domain"
	"affiliate_portal_backend/internal/appointments/transport"
	"affiliate_portal_backend/internal/audit"
	"affiliate_portal_backend/platform/logger"
	"affiliate_portal_backend/platform/phone"
	"affiliate_portal_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	// AssignmentSource is recorded on assignments triggered by a new booking.
	AssignmentSource = "booking"
)

// Repository is the persistence port for appointments.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	Create(ctx context.Context, id uuid.UUID, b domain.Booking, entry audit.Entry) (domain.Appointment, bool, error)
	Cancel(ctx context.Context, externalEventID string, entry func(domain.Appointment) (audit.Entry, error)) (domain.Appointment, error)
	Reschedule(ctx context.Context, externalEventID string, start time.Time, end *time.Time,
		entry func(domain.Appointment) (audit.Entry, error)) (domain.Appointment, error)
	ListForAgent(ctx context.Context, agentID uuid.UUID, open bool, limit, offset int) ([]domain.Appointment, error)
}

// Assigner hands new appointments to a closer.
type Assigner interface {
	Assign(ctx context.Context, appointmentID uuid.UUID, source string) (agentdomain.Assignment, error)
}

// BookingRecorder records the zero-value booking conversion.
type BookingRecorder interface {
	RecordBooking(ctx context.Context, appointmentID uuid.UUID, referralCode string) error
}

// Timeline reads audit entries for one appointment.
type Timeline interface {
	ListForEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]audit.Entry, error)
}

// Service handles appointment business logic.
type Service struct {
	repo     Repository
	assigner Assigner
	recorder BookingRecorder
	timeline Timeline
	log      *logger.Logger
}

func New(repo Repository, assigner Assigner, recorder BookingRecorder, timeline Timeline, log *logger.Logger) *Service {
	return &Service{repo: repo, assigner: assigner, recorder: recorder, timeline: timeline, log: log}
}

// Actor identifies who triggered a change for the audit log.
type Actor struct {
	ID   *uuid.UUID
	Role string
}

// CreateBooking stores a booking, assigns it to the least-loaded closer and
// credits the partner with a booking conversion. Assignment and booking
// credit failures are logged; the appointment stands and the reconcile job
// picks up anything left unassigned.
func (s *Service) CreateBooking(ctx context.Context, actor Actor, b domain.Booking) (transport.BookingResponse, error) {
	b = normalizeBooking(b)
	id := uuid.New()

	entry, err := audit.NewEntry(audit.EntityAppointment, id, audit.ActionAppointmentCreated, nil, map[string]any{
		"status":          domain.StatusScheduled,
		"customerEmail":   b.CustomerEmail,
		"scheduledAt":     b.ScheduledAt,
		"referralCode":    b.ReferralCode,
		"externalEventId": b.ExternalEventID,
	})
	if err != nil {
		return transport.BookingResponse{}, err
	}
	entry.ActorID, entry.ActorRole = actor.ID, actor.Role

	appt, created, err := s.repo.Create(ctx, id, b, entry)
	if err != nil {
		return transport.BookingResponse{}, err
	}
	resp := transport.BookingResponse{Created: created}
	if !created {
		s.log.WithContext(ctx).Info("booking already recorded", "appointmentId", appt.ID)
		resp.Appointment = ToResponse(appt)
		resp.Assignment = "unchanged"
		return resp, nil
	}

	assignment, err := s.assigner.Assign(ctx, appt.ID, AssignmentSource)
	if err != nil {
		s.log.WithContext(ctx).Error("assignment failed", "appointmentId", appt.ID, "error", err)
		resp.Assignment = string(agentdomain.NoEligibleAgent)
	} else {
		resp.Assignment = string(assignment.Status)
		if assignment.AgentID != nil {
			appt.AgentID = assignment.AgentID
			appt.Status = domain.StatusConfirmed
		}
	}

	if appt.ReferralCode != nil {
		if err := s.recorder.RecordBooking(ctx, appt.ID, *appt.ReferralCode); err != nil {
			s.log.WithContext(ctx).Error("booking conversion failed", "appointmentId", appt.ID, "error", err)
		}
	}

	resp.Appointment = ToResponse(appt)
	return resp, nil
}

// Cancel cancels the appointment behind a provider event.
func (s *Service) Cancel(ctx context.Context, actor Actor, externalEventID string) (transport.AppointmentResponse, error) {
	appt, err := s.repo.Cancel(ctx, externalEventID, func(before domain.Appointment) (audit.Entry, error) {
		return s.changeEntry(actor, before, audit.ActionAppointmentCancelled, map[string]any{"status": domain.StatusCancelled})
	})
	if err != nil {
		return transport.AppointmentResponse{}, err
	}
	return ToResponse(appt), nil
}

// Reschedule moves the appointment behind a provider event.
func (s *Service) Reschedule(ctx context.Context, actor Actor, externalEventID string, start time.Time, end *time.Time) (transport.AppointmentResponse, error) {
	appt, err := s.repo.Reschedule(ctx, externalEventID, start, end, func(before domain.Appointment) (audit.Entry, error) {
		return s.changeEntry(actor, before, audit.ActionAppointmentRescheduled, map[string]any{
			"status":      domain.StatusRescheduled,
			"scheduledAt": start,
			"endsAt":      end,
		})
	})
	if err != nil {
		return transport.AppointmentResponse{}, err
	}
	return ToResponse(appt), nil
}

func (s *Service) changeEntry(actor Actor, before domain.Appointment, action string, after map[string]any) (audit.Entry, error) {
	entry, err := audit.NewEntry(audit.EntityAppointment, before.ID, action,
		map[string]any{"status": before.Status, "scheduledAt": before.ScheduledAt, "endsAt": before.EndsAt}, after)
	if err != nil {
		return audit.Entry{}, err
	}
	entry.ActorID, entry.ActorRole = actor.ID, actor.Role
	return entry, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.AppointmentResponse, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.AppointmentResponse{}, err
	}
	return ToResponse(appt), nil
}

// ListForAgent returns the closer's work queue.
func (s *Service) ListForAgent(ctx context.Context, agentID uuid.UUID, req transport.ListAppointmentsRequest) (transport.AppointmentListResponse, error) {
	page := max(req.Page, 1)
	size := req.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	size = min(size, maxPageSize)

	items, err := s.repo.ListForAgent(ctx, agentID, req.Open, size, (page-1)*size)
	if err != nil {
		return transport.AppointmentListResponse{}, err
	}
	resp := transport.AppointmentListResponse{Items: make([]transport.AppointmentResponse, 0, len(items)), Page: page, PageSize: size}
	for _, a := range items {
		resp.Items = append(resp.Items, ToResponse(a))
	}
	return resp, nil
}

// Timeline reconstructs the appointment's activity from the audit log.
func (s *Service) Timeline(ctx context.Context, id uuid.UUID) (transport.TimelineResponse, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return transport.TimelineResponse{}, err
	}
	entries, err := s.timeline.ListForEntity(ctx, audit.EntityAppointment, id)
	if err != nil {
		return transport.TimelineResponse{}, err
	}
	resp := transport.TimelineResponse{AppointmentID: id, Entries: make([]transport.TimelineEntry, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, transport.TimelineEntry{
			ID:        e.ID,
			Action:    e.Action,
			ActorID:   e.ActorID,
			ActorRole: e.ActorRole,
			Before:    e.Before,
			After:     e.After,
			CreatedAt: e.CreatedAt,
		})
	}
	return resp, nil
}

func normalizeBooking(b domain.Booking) domain.Booking {
	b.CustomerName = sanitize.Text(b.CustomerName)
	b.CustomerEmail = sanitize.Email(b.CustomerEmail)
	if e164, ok := phone.Normalize(b.CustomerPhone, phone.DefaultRegion); ok {
		b.CustomerPhone = e164
	} else {
		b.CustomerPhone = sanitize.Text(b.CustomerPhone)
	}
	b.ScheduledAt = b.ScheduledAt.UTC()
	if b.ReferralCode != nil {
		if code := sanitize.Code(*b.ReferralCode); code != "" {
			b.ReferralCode = &code
		} else {
			b.ReferralCode = nil
		}
	}
	b.UTMSource = sanitize.TextPtr(b.UTMSource)
	b.UTMMedium = sanitize.TextPtr(b.UTMMedium)
	b.UTMCampaign = sanitize.TextPtr(b.UTMCampaign)
	return b
}

// ToResponse maps an appointment to its API shape.
func ToResponse(a domain.Appointment) transport.AppointmentResponse {
	return transport.AppointmentResponse{
		ID:              a.ID,
		ExternalEventID: a.ExternalEventID,
		CustomerName:    a.CustomerName,
		CustomerEmail:   a.CustomerEmail,
		CustomerPhone:   a.CustomerPhone,
		ScheduledAt:     a.ScheduledAt,
		EndsAt:          a.EndsAt,
		Status:          string(a.Status),
		AgentID:         a.AgentID,
		Outcome:         a.Outcome,
		SaleValue:       a.SaleValue,
		AgentCommission: a.AgentCommission,
		Notes:           a.Notes,
		RecordingLink:   a.RecordingLink,
		ReferralCode:    a.ReferralCode,
		UTMSource:       a.UTMSource,
		UTMMedium:       a.UTMMedium,
		UTMCampaign:     a.UTMCampaign,
		CreatedAt:       a.CreatedAt,
	}
}

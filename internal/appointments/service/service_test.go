package service

import (
	"context"
	"errors"
	"testing"
	"time"

	agentdomain "affiliate_portal_backend/internal/agents/domain"
	"affiliate_portal_backend/internal/appointments/domain"
	"affiliate_portal_backend/internal/appointments/transport"
	"affiliate_portal_backend/internal/audit"
	"affiliate_portal_backend/platform/apperr"
	"affiliate_portal_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeRepo struct {
	byID    map[uuid.UUID]*domain.Appointment
	entries []audit.Entry
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: map[uuid.UUID]*domain.Appointment{}}
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Appointment, error) {
	a, ok := f.byID[id]
	if !ok {
		return domain.Appointment{}, apperr.NotFound("appointment not found").WithCode(apperr.CodeAppointmentNotFound)
	}
	return *a, nil
}

func (f *fakeRepo) byExternal(id string) *domain.Appointment {
	for _, a := range f.byID {
		if a.ExternalEventID != nil && *a.ExternalEventID == id {
			return a
		}
	}
	return nil
}

func (f *fakeRepo) Create(_ context.Context, id uuid.UUID, b domain.Booking, entry audit.Entry) (domain.Appointment, bool, error) {
	if b.ExternalEventID != nil {
		if existing := f.byExternal(*b.ExternalEventID); existing != nil {
			return *existing, false, nil
		}
	}
	a := &domain.Appointment{
		ID: id, ExternalEventID: b.ExternalEventID, CustomerName: b.CustomerName, CustomerEmail: b.CustomerEmail,
		CustomerPhone: b.CustomerPhone, ScheduledAt: b.ScheduledAt, EndsAt: b.EndsAt, Status: domain.StatusScheduled,
		ReferralCode: b.ReferralCode,
	}
	f.byID[id] = a
	f.entries = append(f.entries, entry)
	return *a, true, nil
}

func (f *fakeRepo) change(externalID string, entry func(domain.Appointment) (audit.Entry, error), apply func(*domain.Appointment)) (domain.Appointment, error) {
	a := f.byExternal(externalID)
	if a == nil {
		return domain.Appointment{}, apperr.NotFound("appointment not found")
	}
	if !a.Status.Open() {
		return domain.Appointment{}, apperr.Conflict("appointment is no longer open")
	}
	e, err := entry(*a)
	if err != nil {
		return domain.Appointment{}, err
	}
	apply(a)
	f.entries = append(f.entries, e)
	return *a, nil
}

func (f *fakeRepo) Cancel(_ context.Context, externalID string, entry func(domain.Appointment) (audit.Entry, error)) (domain.Appointment, error) {
	return f.change(externalID, entry, func(a *domain.Appointment) { a.Status = domain.StatusCancelled })
}

func (f *fakeRepo) Reschedule(_ context.Context, externalID string, start time.Time, end *time.Time,
	entry func(domain.Appointment) (audit.Entry, error)) (domain.Appointment, error) {
	return f.change(externalID, entry, func(a *domain.Appointment) {
		a.Status, a.ScheduledAt, a.EndsAt = domain.StatusRescheduled, start, end
	})
}

func (f *fakeRepo) ListForAgent(_ context.Context, agentID uuid.UUID, open bool, limit, _ int) ([]domain.Appointment, error) {
	out := []domain.Appointment{}
	for _, a := range f.byID {
		if a.AgentID != nil && *a.AgentID == agentID && (!open || a.Status.Open()) && len(out) < limit {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListForEntity(_ context.Context, _ string, id uuid.UUID) ([]audit.Entry, error) {
	out := []audit.Entry{}
	for _, e := range f.entries {
		if e.EntityID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeAssigner struct {
	agentID *uuid.UUID
	err     error
	calls   int
}

func (f *fakeAssigner) Assign(_ context.Context, id uuid.UUID, _ string) (agentdomain.Assignment, error) {
	f.calls++
	if f.err != nil {
		return agentdomain.Assignment{}, f.err
	}
	if f.agentID == nil {
		return agentdomain.Assignment{AppointmentID: id, Status: agentdomain.NoEligibleAgent}, nil
	}
	return agentdomain.Assignment{AppointmentID: id, AgentID: f.agentID, Status: agentdomain.Assigned}, nil
}

type fakeRecorder struct {
	codes []string
	err   error
}

func (f *fakeRecorder) RecordBooking(_ context.Context, _ uuid.UUID, code string) error {
	f.codes = append(f.codes, code)
	return f.err
}

func strPtr(s string) *string { return &s }

func booking(external string) domain.Booking {
	return domain.Booking{
		ExternalEventID: strPtr(external),
		CustomerName:    "  Jane   Doe ",
		CustomerEmail:   " Jane@Example.com ",
		CustomerPhone:   "(202) 456-1111",
		ScheduledAt:     time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC),
		ReferralCode:    strPtr(" ACME "),
	}
}

func TestCreateBookingAssignsAndCreditsPartner(t *testing.T) {
	repo := newFakeRepo()
	agentID := uuid.New()
	assigner := &fakeAssigner{agentID: &agentID}
	recorder := &fakeRecorder{}
	svc := New(repo, assigner, recorder, repo, logger.Nop())

	resp, err := svc.CreateBooking(context.Background(), Actor{Role: "system"}, booking("evt-1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !resp.Created || resp.Assignment != string(agentdomain.Assigned) {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Appointment.CustomerEmail != "jane@example.com" || resp.Appointment.CustomerName != "Jane Doe" {
		t.Fatalf("booking was not normalized: %+v", resp.Appointment)
	}
	if resp.Appointment.CustomerPhone != "+12024561111" {
		t.Fatalf("expected E.164 phone, got %q", resp.Appointment.CustomerPhone)
	}
	if len(recorder.codes) != 1 || recorder.codes[0] != "ACME" {
		t.Fatalf("expected booking credit for ACME, got %v", recorder.codes)
	}

	again, err := svc.CreateBooking(context.Background(), Actor{Role: "system"}, booking("evt-1"))
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if again.Created || assigner.calls != 1 || len(recorder.codes) != 1 {
		t.Fatalf("redelivered booking must be a no-op, got %+v", again)
	}
}

func TestCreateBookingSurvivesSideEffectFailures(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo, &fakeAssigner{err: errors.New("db down")}, &fakeRecorder{err: errors.New("db down")}, repo, logger.Nop())

	resp, err := svc.CreateBooking(context.Background(), Actor{Role: "system"}, booking("evt-2"))
	if err != nil {
		t.Fatalf("create must not fail on side effects: %v", err)
	}
	if resp.Appointment.AgentID != nil {
		t.Fatal("appointment should stay unassigned")
	}
}

func TestCancelAndRescheduleWriteTimeline(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo, &fakeAssigner{}, &fakeRecorder{}, repo, logger.Nop())
	ctx := context.Background()

	created, err := svc.CreateBooking(ctx, Actor{Role: "system"}, booking("evt-3"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	moved, err := svc.Reschedule(ctx, Actor{Role: "system"}, "evt-3", start, nil)
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if moved.Status != string(domain.StatusRescheduled) || !moved.ScheduledAt.Equal(start) {
		t.Fatalf("unexpected reschedule result %+v", moved)
	}

	if _, err := svc.Cancel(ctx, Actor{Role: "system"}, "evt-3"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := svc.Cancel(ctx, Actor{Role: "system"}, "evt-3"); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("second cancel should conflict, got %v", err)
	}
	if _, err := svc.Cancel(ctx, Actor{Role: "system"}, "missing"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	timeline, err := svc.Timeline(ctx, created.Appointment.ID)
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	want := []string{audit.ActionAppointmentCreated, audit.ActionAppointmentRescheduled, audit.ActionAppointmentCancelled}
	if len(timeline.Entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(timeline.Entries))
	}
	for i, action := range want {
		if timeline.Entries[i].Action != action {
			t.Fatalf("entry %d: got %s want %s", i, timeline.Entries[i].Action, action)
		}
	}
}

func TestListForAgentClampsPaging(t *testing.T) {
	repo := newFakeRepo()
	svc := New(repo, &fakeAssigner{}, &fakeRecorder{}, repo, logger.Nop())

	resp, err := svc.ListForAgent(context.Background(), uuid.New(), transport.ListAppointmentsRequest{PageSize: 1000})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if resp.Page != 1 || resp.PageSize != maxPageSize {
		t.Fatalf("unexpected paging %+v", resp)
	}
}

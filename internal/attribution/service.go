package attribution

import (
	"context"

	"affiliate_portal_backend/internal/audit"
	leaddomain "affiliate_portal_backend/internal/leads/domain"

	"github.com/google/uuid"
)

const candidateLimit = 25

// LeadMatch is a lead linked to a customer email.
type LeadMatch struct {
	LeadID       uuid.UUID `json:"leadId"`
	Email        string    `json:"email"`
	ReferralCode *string   `json:"referralCode,omitempty"`
	// Similar marks a diagnostic-only match that must be confirmed by hand.
	Similar bool `json:"similar"`
}

// Target is the appointment side of a match.
type Target struct {
	AppointmentID uuid.UUID
	CustomerEmail string
	ReferralCode  *string
}

// Diagnosis lists every candidate for an appointment and the attribution the
// online path would apply.
type Diagnosis struct {
	AppointmentID   uuid.UUID   `json:"appointmentId"`
	CustomerEmail   string      `json:"customerEmail"`
	AppointmentCode *string     `json:"appointmentCode,omitempty"`
	ExactMatches    []LeadMatch `json:"exactMatches"`
	SimilarMatches  []LeadMatch `json:"similarMatches"`
	ResolvedCode    *string     `json:"resolvedCode,omitempty"`
	Anomaly         *Anomaly    `json:"anomaly,omitempty"`
}

// LeadStore reads completed leads and their answers.
type LeadStore interface {
	FindCompletedByEmail(ctx context.Context, email string) ([]leaddomain.Lead, error)
	FindCompletedByEmailDomain(ctx context.Context, emailDomain string, limit int) ([]leaddomain.Lead, error)
	ListAnswers(ctx context.Context, leadID uuid.UUID) ([]leaddomain.Answer, error)
}

// TargetReader loads the appointment side of a match.
type TargetReader interface {
	AttributionTarget(ctx context.Context, appointmentID uuid.UUID) (Target, error)
}

// AnomalyLog reads recorded anomalies.
type AnomalyLog interface {
	ListByAction(ctx context.Context, action string, limit int) ([]audit.Entry, error)
}

// Service matches leads to appointments.
type Service struct {
	leads   LeadStore
	targets TargetReader
	log     AnomalyLog
}

// NewService creates an attribution service.
func NewService(leads LeadStore, targets TargetReader, log AnomalyLog) *Service {
	return &Service{leads: leads, targets: targets, log: log}
}

// MatchLead returns the newest completed lead whose resolved email exactly
// equals email, or nil. Similar matches are never returned here.
func (s *Service) MatchLead(ctx context.Context, email string) (*LeadMatch, error) {
	exact, err := s.exactCandidates(ctx, email)
	if err != nil || len(exact) == 0 {
		return nil, err
	}
	return &exact[0], nil
}

// Diagnose reports exact and similar candidates for an appointment.
func (s *Service) Diagnose(ctx context.Context, appointmentID uuid.UUID) (Diagnosis, error) {
	target, err := s.targets.AttributionTarget(ctx, appointmentID)
	if err != nil {
		return Diagnosis{}, err
	}

	exact, similar, err := s.candidates(ctx, target.CustomerEmail)
	if err != nil {
		return Diagnosis{}, err
	}

	d := Diagnosis{
		AppointmentID:   appointmentID,
		CustomerEmail:   target.CustomerEmail,
		AppointmentCode: target.ReferralCode,
		ExactMatches:    exact,
		SimilarMatches:  similar,
	}
	var leadCode *string
	if len(exact) > 0 {
		leadCode = exact[0].ReferralCode
	}
	d.ResolvedCode, d.Anomaly = ResolvePartnerCode(target.ReferralCode, leadCode)
	return d, nil
}

// ListAnomalies returns recorded code mismatches, newest first.
func (s *Service) ListAnomalies(ctx context.Context, limit int) ([]audit.Entry, error) {
	return s.log.ListByAction(ctx, audit.ActionAttributionAnomaly, limit)
}

func (s *Service) exactCandidates(ctx context.Context, email string) ([]LeadMatch, error) {
	exact := []LeadMatch{}
	if _, _, ok := splitEmail(email); !ok {
		return exact, nil
	}

	leads, err := s.leads.FindCompletedByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	for _, lead := range leads {
		m, ok, err := s.resolve(ctx, lead)
		if err != nil {
			return nil, err
		}
		if ok && EmailsMatch(email, m.Email) {
			exact = append(exact, m)
		}
	}
	return exact, nil
}

// candidates returns all exact matches plus similar ones from the newest
// completed leads on the same domain.
func (s *Service) candidates(ctx context.Context, email string) (exact, similar []LeadMatch, err error) {
	exact, err = s.exactCandidates(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	similar = []LeadMatch{}
	_, emailDomain, ok := splitEmail(email)
	if !ok {
		return exact, similar, nil
	}

	leads, err := s.leads.FindCompletedByEmailDomain(ctx, emailDomain, candidateLimit)
	if err != nil {
		return nil, nil, err
	}
	for _, lead := range leads {
		m, ok, err := s.resolve(ctx, lead)
		if err != nil {
			return nil, nil, err
		}
		if !ok || EmailsMatch(email, m.Email) || !EmailsSimilar(email, m.Email) {
			continue
		}
		m.Similar = true
		similar = append(similar, m)
	}
	return exact, similar, nil
}

func (s *Service) resolve(ctx context.Context, lead leaddomain.Lead) (LeadMatch, bool, error) {
	answers, err := s.leads.ListAnswers(ctx, lead.ID)
	if err != nil {
		return LeadMatch{}, false, err
	}
	id := leaddomain.ResolveIdentity(answers)
	if id.Email == nil {
		return LeadMatch{}, false, nil
	}
	return LeadMatch{LeadID: lead.ID, Email: *id.Email, ReferralCode: lead.ReferralCode}, true, nil
}

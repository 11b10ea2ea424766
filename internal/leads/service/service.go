// Package service implements the quiz-session workflow: start, answer,
// complete, and the lead conversion recorded for actionable sessions.
package service

import (
	"context"
	"time"

	"affiliate_portal_backend/internal/leads/domain"
	"affiliate_portal_backend/internal/leads/repository"
	"affiliate_portal_backend/internal/leads/transport"
	"affiliate_portal_backend/platform/apperr"
	"affiliate_portal_backend/platform/db"
	"affiliate_portal_backend/platform/logger"
	"affiliate_portal_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Repository is the persistence port used by the service.
type Repository interface {
	Create(ctx context.Context, lead domain.Lead) error
	GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	ListAnswers(ctx context.Context, leadID uuid.UUID) ([]domain.Answer, error)
	UpdateAnswer(ctx context.Context, leadID uuid.UUID, questionID, value string, at time.Time) (bool, error)
	InsertAnswer(ctx context.Context, leadID uuid.UUID, questionID, value string, at time.Time) error
	Complete(ctx context.Context, id uuid.UUID, completedAt time.Time, durationSeconds int) (bool, error)
	List(ctx context.Context, params repository.ListParams) ([]domain.Lead, error)
}

// ConversionRecorder records the zero-value lead conversion for a partner.
type ConversionRecorder interface {
	RecordLead(ctx context.Context, leadID uuid.UUID, referralCode string) error
}

// Service provides business logic for quiz sessions.
type Service struct {
	repo     Repository
	recorder ConversionRecorder
	log      *logger.Logger
	now      func() time.Time
}

// New creates a new leads service.
func New(repo Repository, recorder ConversionRecorder, log *logger.Logger) *Service {
	return &Service{repo: repo, recorder: recorder, log: log, now: time.Now}
}

func (s *Service) Start(ctx context.Context, req transport.StartLeadRequest) (transport.LeadResponse, error) {
	var code *string
	if req.ReferralCode != nil {
		if c := sanitize.Code(*req.ReferralCode); c != "" {
			code = &c
		}
	}

	lead := domain.Lead{
		ID:           uuid.New(),
		FunnelType:   sanitize.Text(req.FunnelType),
		Status:       domain.StatusInProgress,
		ReferralCode: code,
		StartedAt:    s.now().UTC(),
	}
	if err := s.repo.Create(ctx, lead); err != nil {
		return transport.LeadResponse{}, err
	}
	return toResponse(lead), nil
}

// SubmitAnswer stores the latest value for (lead, question). Two concurrent
// first submissions both miss the update, one insert wins, and the loser
// falls back to updating the winner's row.
func (s *Service) SubmitAnswer(ctx context.Context, leadID uuid.UUID, req transport.SubmitAnswerRequest) error {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return err
	}
	if !lead.CanComplete() {
		return apperr.Conflict("lead already completed")
	}

	value := sanitize.Text(req.Value)
	at := s.now().UTC()

	updated, err := s.repo.UpdateAnswer(ctx, leadID, req.QuestionID, value, at)
	if err != nil || updated {
		return err
	}

	err = s.repo.InsertAnswer(ctx, leadID, req.QuestionID, value, at)
	switch {
	case err == nil:
		return nil
	case db.IsForeignKeyViolation(err):
		return apperr.NotFound("question not found")
	case db.IsUniqueViolation(err):
		_, err = s.repo.UpdateAnswer(ctx, leadID, req.QuestionID, value, at)
		return err
	default:
		return err
	}
}

// Complete finishes a session. Completing twice returns the stored lead
// without side effects.
func (s *Service) Complete(ctx context.Context, leadID uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	answers, err := s.repo.ListAnswers(ctx, leadID)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	lead.Answers = answers

	if !lead.CanComplete() {
		return toResponse(lead), nil
	}

	completedAt := s.now().UTC()
	duration := int(completedAt.Sub(lead.StartedAt).Seconds())
	if duration < 0 {
		duration = 0
	}

	changed, err := s.repo.Complete(ctx, leadID, completedAt, duration)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	if !changed {
		return s.reload(ctx, leadID, answers)
	}

	lead.Status = domain.StatusCompleted
	lead.CompletedAt = &completedAt
	lead.DurationSeconds = &duration

	if lead.ReferralCode != nil && lead.Identity().Actionable() && s.recorder != nil {
		if err := s.recorder.RecordLead(ctx, lead.ID, *lead.ReferralCode); err != nil {
			s.log.WithContext(ctx).Warn("failed to record lead conversion", "leadId", lead.ID, "error", err)
		}
	}

	return toResponse(lead), nil
}

func (s *Service) Get(ctx context.Context, leadID uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	answers, err := s.repo.ListAnswers(ctx, leadID)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	lead.Answers = answers
	return toResponse(lead), nil
}

// List returns sessions for the admin views. ActionableOnly applies the
// name-and-email gate after loading answers.
func (s *Service) List(ctx context.Context, req transport.ListLeadsRequest) (transport.LeadListResponse, error) {
	params := repository.ListParams{Limit: req.Limit, Offset: req.Offset}
	if req.Status != "" {
		st := domain.Status(req.Status)
		params.Status = &st
	}
	if req.ReferralCode != "" {
		params.Referral = &req.ReferralCode
	}

	leads, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	items := make([]transport.LeadResponse, 0, len(leads))
	for _, lead := range leads {
		answers, err := s.repo.ListAnswers(ctx, lead.ID)
		if err != nil {
			return transport.LeadListResponse{}, err
		}
		lead.Answers = answers
		if req.ActionableOnly && !lead.Identity().Actionable() {
			continue
		}
		items = append(items, toResponse(lead))
	}
	return transport.LeadListResponse{Items: items}, nil
}

func (s *Service) reload(ctx context.Context, leadID uuid.UUID, answers []domain.Answer) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	lead.Answers = answers
	return toResponse(lead), nil
}

func toResponse(lead domain.Lead) transport.LeadResponse {
	id := lead.Identity()
	return transport.LeadResponse{
		ID:              lead.ID,
		FunnelType:      lead.FunnelType,
		Status:          string(lead.Status),
		ReferralCode:    lead.ReferralCode,
		StartedAt:       lead.StartedAt,
		CompletedAt:     lead.CompletedAt,
		DurationSeconds: lead.DurationSeconds,
		Name:            id.Name,
		Email:           id.Email,
		Actionable:      id.Actionable(),
	}
}

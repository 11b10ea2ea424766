package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"affiliate_portal_backend/internal/leads/domain"
	"affiliate_portal_backend/platform/apperr"
	"affiliate_portal_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const leadNotFoundMsg = "lead not found"

// Repository provides database operations for quiz sessions and answers.
type Repository struct {
	pool db.Querier
}

// New creates a new leads repository.
func New(pool db.Querier) *Repository {
	return &Repository{pool: pool}
}

// ListParams filters the admin lead list.
type ListParams struct {
	Status   *domain.Status
	Limit    int
	Offset   int
	Referral *string
}

func (r *Repository) Create(ctx context.Context, lead domain.Lead) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO rac_leads (id, funnel_type, status, referral_code, started_at)
		VALUES ($1, $2, $3, $4, $5)`,
		lead.ID, lead.FunnelType, string(lead.Status), lead.ReferralCode, lead.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	var lead domain.Lead
	var status string
	err := r.pool.QueryRow(ctx, `
		SELECT id, funnel_type, status, referral_code, started_at, completed_at, duration_seconds
		FROM rac_leads WHERE id = $1`, id,
	).Scan(&lead.ID, &lead.FunnelType, &status, &lead.ReferralCode, &lead.StartedAt, &lead.CompletedAt, &lead.DurationSeconds)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, apperr.NotFound(leadNotFoundMsg)
	}
	if err != nil {
		return domain.Lead{}, fmt.Errorf("get lead: %w", err)
	}
	lead.Status = domain.Status(status)
	return lead, nil
}

// ListAnswers returns answers joined with their question metadata in quiz order.
func (r *Repository) ListAnswers(ctx context.Context, leadID uuid.UUID) ([]domain.Answer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.question_id, q.prompt, q.question_type, a.value
		FROM rac_lead_answers a
		JOIN rac_questions q ON q.id = a.question_id
		WHERE a.lead_id = $1
		ORDER BY q.position, a.created_at`, leadID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	answers := make([]domain.Answer, 0)
	for rows.Next() {
		var a domain.Answer
		if err := rows.Scan(&a.QuestionID, &a.Prompt, &a.Type, &a.Value); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// UpdateAnswer overwrites an existing answer. It reports false when no row exists yet.
func (r *Repository) UpdateAnswer(ctx context.Context, leadID uuid.UUID, questionID, value string, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE rac_lead_answers SET value = $3, updated_at = $4
		WHERE lead_id = $1 AND question_id = $2`,
		leadID, questionID, value, at,
	)
	if err != nil {
		return false, fmt.Errorf("update answer: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// InsertAnswer creates an answer row. A concurrent insert for the same
// (lead, question) surfaces as a unique violation, checked with db.IsUniqueViolation.
func (r *Repository) InsertAnswer(ctx context.Context, leadID uuid.UUID, questionID, value string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO rac_lead_answers (id, lead_id, question_id, value, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)`,
		uuid.New(), leadID, questionID, value, at,
	)
	if err != nil {
		return fmt.Errorf("insert answer: %w", err)
	}
	return nil
}

// Complete moves an in_progress lead to completed. It reports false when the
// lead was not in_progress.
func (r *Repository) Complete(ctx context.Context, id uuid.UUID, completedAt time.Time, durationSeconds int) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE rac_leads
		SET status = 'completed', completed_at = $2, duration_seconds = $3, updated_at = $2
		WHERE id = $1 AND status = 'in_progress'`,
		id, completedAt, durationSeconds,
	)
	if err != nil {
		return false, fmt.Errorf("complete lead: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]domain.Lead, error) {
	limit := params.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var status *string
	if params.Status != nil {
		s := string(*params.Status)
		status = &s
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, funnel_type, status, referral_code, started_at, completed_at, duration_seconds
		FROM rac_leads
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::text IS NULL OR referral_code = $2)
		ORDER BY started_at DESC
		LIMIT $3 OFFSET $4`,
		status, params.Referral, limit, params.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	leads := make([]domain.Lead, 0)
	for rows.Next() {
		var lead domain.Lead
		var st string
		if err := rows.Scan(&lead.ID, &lead.FunnelType, &st, &lead.ReferralCode, &lead.StartedAt, &lead.CompletedAt, &lead.DurationSeconds); err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		lead.Status = domain.Status(st)
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// FindCompletedByEmail returns every completed lead with an email answer equal
// to the normalized address, newest first. Callers still resolve identity, since
// a lead may carry more than one email-shaped answer.
func (r *Repository) FindCompletedByEmail(ctx context.Context, email string) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT l.id, l.funnel_type, l.status, l.referral_code, l.started_at, l.completed_at, l.duration_seconds
		FROM rac_leads l
		JOIN rac_lead_answers a ON a.lead_id = l.id
		JOIN rac_questions q ON q.id = a.question_id
		WHERE l.status = 'completed'
		  AND (q.question_type = 'email' OR q.prompt ILIKE '%email%')
		  AND lower(trim(a.value)) = $1
		ORDER BY l.completed_at DESC`,
		domain.NormalizeEmail(email),
	)
	if err != nil {
		return nil, fmt.Errorf("find leads by email: %w", err)
	}
	return scanLeads(rows)
}

// FindCompletedByEmailDomain returns completed leads carrying an email-shaped
// answer at the given domain, newest first. It feeds diagnostics only.
func (r *Repository) FindCompletedByEmailDomain(ctx context.Context, emailDomain string, limit int) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT l.id, l.funnel_type, l.status, l.referral_code, l.started_at, l.completed_at, l.duration_seconds
		FROM rac_leads l
		JOIN rac_lead_answers a ON a.lead_id = l.id
		JOIN rac_questions q ON q.id = a.question_id
		WHERE l.status = 'completed'
		  AND (q.question_type = 'email' OR q.prompt ILIKE '%email%')
		  AND lower(trim(a.value)) LIKE '%@' || $1 ESCAPE '\'
		ORDER BY l.completed_at DESC
		LIMIT $2`,
		escapeLike(domain.NormalizeEmail(emailDomain)), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("find leads by email domain: %w", err)
	}
	return scanLeads(rows)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func scanLeads(rows pgx.Rows) ([]domain.Lead, error) {
	defer rows.Close()

	leads := make([]domain.Lead, 0)
	for rows.Next() {
		var lead domain.Lead
		var st string
		if err := rows.Scan(&lead.ID, &lead.FunnelType, &st, &lead.ReferralCode, &lead.StartedAt, &lead.CompletedAt, &lead.DurationSeconds); err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		lead.Status = domain.Status(st)
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

package repository

import (
	"context"
	"testing"
	"time"

	"affiliate_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteIsConditionalOnInProgress(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := New(mock)
	id := uuid.New()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE rac_leads").
		WithArgs(id, at, 95).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE rac_leads").
		WithArgs(id, at, 95).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	changed, err := repo.Complete(context.Background(), id, at, 95)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.Complete(context.Background(), id, at, 95)
	require.NoError(t, err)
	assert.False(t, changed)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAnswerReportsMissingRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := New(mock)
	id := uuid.New()
	at := time.Now()

	mock.ExpectExec("UPDATE rac_lead_answers").
		WithArgs(id, "email", "a@example.com", at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	updated, err := repo.UpdateAnswer(context.Background(), id, "email", "a@example.com", at)
	require.NoError(t, err)
	assert.False(t, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDMapsNoRowsToNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery("SELECT id, funnel_type").WithArgs(id).WillReturnError(pgx.ErrNoRows)

	_, err = New(mock).GetByID(context.Background(), id)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAnswersScansJoinedQuestions(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	rows := pgxmock.NewRows([]string{"question_id", "prompt", "question_type", "value"}).
		AddRow("q_name", "Your name", "text", "Dana").
		AddRow("q_email", "Your email", "email", "dana@example.com")
	mock.ExpectQuery("FROM rac_lead_answers").WithArgs(id).WillReturnRows(rows)

	answers, err := New(mock).ListAnswers(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, answers, 2)
	assert.Equal(t, "dana@example.com", answers[1].Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindCompletedByEmailMatchesNormalizedAddressWithoutLimit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	code := "P1"
	completed := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)
	duration := 120
	rows := pgxmock.NewRows([]string{"id", "funnel_type", "status", "referral_code", "started_at", "completed_at", "duration_seconds"}).
		AddRow(id, "solar", "completed", &code, completed.Add(-2*time.Minute), &completed, &duration)
	mock.ExpectQuery(`lower\(trim\(a\.value\)\) = \$1\s+ORDER BY l\.completed_at DESC$`).
		WithArgs("kim@gmail.com").
		WillReturnRows(rows)

	leads, err := New(mock).FindCompletedByEmail(context.Background(), "  Kim@Gmail.com ")
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, id, leads[0].ID)
	assert.Equal(t, "P1", *leads[0].ReferralCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindCompletedByEmailDomainEscapesLikeWildcards(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`LIKE '%@' \|\| \$1 ESCAPE`).
		WithArgs(`my\_co\%.com`, 25).
		WillReturnRows(pgxmock.NewRows([]string{"id", "funnel_type", "status", "referral_code", "started_at", "completed_at", "duration_seconds"}))

	leads, err := New(mock).FindCompletedByEmailDomain(context.Background(), "My_Co%.com", 25)
	require.NoError(t, err)
	assert.Empty(t, leads)
	assert.NoError(t, mock.ExpectationsWereMet())
}

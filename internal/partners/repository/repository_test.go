package repository

import (
	"context"
	"testing"
	"time"

	"affiliate_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasRecentClick(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	since := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM rac_clicks").
		WithArgs(id, "visitor", since).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	found, err := New(mock).HasRecentClick(context.Background(), id, "visitor", since)
	require.NoError(t, err)
	assert.True(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncrementClicksMissingPartner(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectExec("UPDATE rac_partners SET total_clicks").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = New(mock).IncrementClicks(context.Background(), id)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	agenttransport "affiliate_portal_backend/internal/agents/transport"
	commtransport "affiliate_portal_backend/internal/commissions/transport"
	"affiliate_portal_backend/platform/logger"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReleaser struct {
	calls atomic.Int32
	err   error
}

func (f *fakeReleaser) ReleaseDue(context.Context) (commtransport.ReleaseResponse, error) {
	f.calls.Add(1)
	return commtransport.ReleaseResponse{Released: 2}, f.err
}

type fakeReconciler struct {
	calls atomic.Int32
}

func (f *fakeReconciler) ReconcileUnassigned(context.Context) (agenttransport.ReconcileResponse, error) {
	f.calls.Add(1)
	return agenttransport.ReconcileResponse{}, nil
}

func TestMuxRoutesSweeps(t *testing.T) {
	rel := &fakeReleaser{}
	rec := &fakeReconciler{}
	mux := NewMux(NewJobs(rel, rec, logger.Nop()))

	release, err := NewCommissionsReleaseTask(time.Now())
	require.NoError(t, err)
	reconcile, err := NewReconcileUnassignedTask(time.Now())
	require.NoError(t, err)

	require.NoError(t, mux.ProcessTask(context.Background(), release))
	require.NoError(t, mux.ProcessTask(context.Background(), reconcile))

	assert.Equal(t, int32(1), rel.calls.Load())
	assert.Equal(t, int32(1), rec.calls.Load())
}

func TestMuxSkipsRetryOnMalformedPayload(t *testing.T) {
	rel := &fakeReleaser{}
	mux := NewMux(NewJobs(rel, &fakeReconciler{}, logger.Nop()))

	err := mux.ProcessTask(context.Background(), asynq.NewTask(TaskCommissionsRelease, []byte("{")))

	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Zero(t, rel.calls.Load())
}

func TestReleaseErrorsAreRetried(t *testing.T) {
	rel := &fakeReleaser{err: errors.New("db down")}
	jobs := NewJobs(rel, &fakeReconciler{}, logger.Nop())

	err := jobs.ReleaseCommissions(context.Background())

	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestPeriodicJobRunsImmediatelyAndStops(t *testing.T) {
	var runs atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	job := NewPeriodicJob("test", time.Hour, func(context.Context) error {
		if runs.Add(1) == 1 {
			cancel()
		}
		return nil
	}, logger.Nop())

	done := make(chan error, 1)
	go func() { done <- job.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("periodic job did not stop")
	}
	assert.Equal(t, int32(1), runs.Load())
}

func TestRedisClientOptAppliesInsecureTLS(t *testing.T) {
	opt, err := redisClientOpt("rediss://:secret@cache.internal:6380/2", true)
	require.NoError(t, err)

	assert.Equal(t, "cache.internal:6380", opt.Addr)
	assert.Equal(t, "secret", opt.Password)
	assert.Equal(t, 2, opt.DB)
	require.NotNil(t, opt.TLSConfig)
	assert.True(t, opt.TLSConfig.InsecureSkipVerify)
}

func TestRedisClientOptPlainURL(t *testing.T) {
	opt, err := redisClientOpt("redis://localhost:6379/0", false)
	require.NoError(t, err)

	assert.Equal(t, "localhost:6379", opt.Addr)
	assert.Nil(t, opt.TLSConfig)
}

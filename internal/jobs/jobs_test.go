package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"moviebooking/internal/analytics"
	"moviebooking/internal/shared/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReconciler struct {
	calls atomic.Int32
	err   error
}

func (f *fakeReconciler) ReconcileAll(context.Context) (int, error) {
	f.calls.Add(1)
	return 2, f.err
}

type fakePurger struct {
	mu   sync.Mutex
	ages []time.Duration
}

func (f *fakePurger) PurgeCancelled(_ context.Context, olderThan time.Duration) (*analytics.PurgeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ages = append(f.ages, olderThan)
	return &analytics.PurgeResult{}, nil
}

func jobsConfig() config.JobsConfig {
	return config.JobsConfig{
		Enabled:       true,
		RetentionCron: "0 3 * * *",
		RetentionAge:  30 * 24 * time.Hour,
	}
}

func TestNewScheduler_RejectsBadCron(t *testing.T) {
	cfg := jobsConfig()
	cfg.RetentionCron = "every tuesday"

	_, err := NewScheduler(cfg, &fakeReconciler{}, &fakePurger{})
	assert.Error(t, err)
}

func TestRunRetention_UsesConfiguredAge(t *testing.T) {
	purger := &fakePurger{}
	sched, err := NewScheduler(jobsConfig(), &fakeReconciler{}, purger)
	require.NoError(t, err)
	defer sched.Shutdown()

	sched.RunRetention(context.Background())
	assert.Equal(t, []time.Duration{30 * 24 * time.Hour}, purger.ages)
}

func TestRunReconcile_SurvivesErrors(t *testing.T) {
	reconciler := &fakeReconciler{err: errors.New("store offline")}
	sched, err := NewScheduler(jobsConfig(), reconciler, &fakePurger{})
	require.NoError(t, err)
	defer sched.Shutdown()

	sched.RunReconcile(context.Background())
	assert.Equal(t, int32(1), reconciler.calls.Load())
}

func TestScheduler_RunsReconcileOnInterval(t *testing.T) {
	cfg := jobsConfig()
	cfg.ReconcileInterval = 20 * time.Millisecond
	reconciler := &fakeReconciler{}

	sched, err := NewScheduler(cfg, reconciler, &fakePurger{})
	require.NoError(t, err)
	sched.Start()

	assert.Eventually(t, func() bool { return reconciler.calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, sched.Shutdown())
}

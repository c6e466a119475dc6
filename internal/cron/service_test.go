package cron

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lavish-fashion/lavish-backend/pkg/logger"
	"github.com/lavish-fashion/lavish-backend/pkg/metrics"
)

type fakeLock struct {
	held     bool
	released int
	err      error
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.released++
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "worker-test", Output: io.Discard})
}

func TestRunOnceRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	jobMetrics := metrics.NewJobMetrics(reg)
	ok := &testJob{name: "cart-purge"}
	failing := &testJob{name: "outbox-retention", err: errors.New("boom")}

	svc, err := NewService(ServiceParams{
		Logger:  testLogger(),
		Metrics: jobMetrics,
		Schedules: []Schedule{
			{Job: ok, Lock: &fakeLock{}},
			{Job: failing, Lock: &fakeLock{}},
		},
	})
	require.NoError(t, err)

	for _, sched := range svc.schedules {
		assert.True(t, svc.runOnce(context.Background(), sched))
	}
	assert.Equal(t, 1, ok.runs)
	assert.Equal(t, 1, failing.runs)

	expected := `
# HELP job_failure Failed background job runs.
# TYPE job_failure counter
job_failure{job="outbox-retention"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "job_failure"))
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "cart-purge"}
	lock := &fakeLock{held: true}
	svc, err := NewService(ServiceParams{
		Logger:    testLogger(),
		Schedules: []Schedule{{Job: job, Lock: lock}},
	})
	require.NoError(t, err)

	assert.False(t, svc.runOnce(context.Background(), svc.schedules[0]))
	assert.Zero(t, job.runs)
	assert.Zero(t, lock.released)
}

func TestRunOnceReleasesLock(t *testing.T) {
	job := &testJob{name: "cart-purge"}
	lock := &fakeLock{}
	svc, err := NewService(ServiceParams{
		Logger:    testLogger(),
		Schedules: []Schedule{{Job: job, Lock: lock}},
	})
	require.NoError(t, err)

	svc.runOnce(context.Background(), svc.schedules[0])
	assert.False(t, lock.held)
	assert.Equal(t, 1, lock.released)
}

func TestRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "cart-purge"}
	svc, err := NewService(ServiceParams{
		Logger:    testLogger(),
		Schedules: []Schedule{{Job: job, Lock: &fakeLock{}, Interval: time.Hour}},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, 1, job.runs)
}

func TestNewServiceValidation(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: testLogger()})
	assert.Error(t, err)

	_, err = NewService(ServiceParams{
		Logger:    testLogger(),
		Schedules: []Schedule{{Job: &testJob{name: "x"}}},
	})
	assert.Error(t, err)

	svc, err := NewService(ServiceParams{
		Logger:    testLogger(),
		Schedules: []Schedule{{Job: &testJob{name: "x"}, Lock: &fakeLock{}}},
	})
	require.NoError(t, err)
	assert.Equal(t, defaultInterval, svc.schedules[0].Interval)
}

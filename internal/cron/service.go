package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lavish-fashion/lavish-backend/pkg/logger"
	"github.com/lavish-fashion/lavish-backend/pkg/metrics"
)

const defaultInterval = time.Hour

// Job is a unit of periodic maintenance run by the worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Schedule binds a job to its cadence and the lock guarding it across instances.
type Schedule struct {
	Job      Job
	Interval time.Duration
	Lock     Lock
}

type ServiceParams struct {
	Logger    *logger.Logger
	Metrics   *metrics.JobMetrics
	Schedules []Schedule
}

// Service runs every schedule on its own ticker until the context ends.
type Service struct {
	logg      *logger.Logger
	metrics   *metrics.JobMetrics
	schedules []Schedule
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	schedules := make([]Schedule, 0, len(params.Schedules))
	for _, sched := range params.Schedules {
		if sched.Job == nil {
			continue
		}
		if sched.Lock == nil {
			return nil, fmt.Errorf("lock required for job %s", sched.Job.Name())
		}
		if sched.Interval <= 0 {
			sched.Interval = defaultInterval
		}
		schedules = append(schedules, sched)
	}
	if len(schedules) == 0 {
		return nil, errors.New("at least one job required")
	}
	return &Service{
		logg:      params.Logger,
		metrics:   params.Metrics,
		schedules: schedules,
	}, nil
}

// Run blocks until ctx is cancelled. Each job runs once immediately.
func (s *Service) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, sched := range s.schedules {
		wg.Add(1)
		go func(sched Schedule) {
			defer wg.Done()
			s.loop(ctx, sched)
		}(sched)
	}
	wg.Wait()
	s.logg.Info(ctx, "worker jobs stopped")
	return ctx.Err()
}

func (s *Service) loop(ctx context.Context, sched Schedule) {
	s.runOnce(ctx, sched)

	ticker := time.NewTicker(sched.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, sched)
		}
	}
}

// runOnce executes the job if this instance wins the lock. It reports whether the job ran.
func (s *Service) runOnce(ctx context.Context, sched Schedule) bool {
	jobCtx := s.logg.WithFields(ctx, map[string]any{
		"job":   sched.Job.Name(),
		"event": "worker.job",
	})

	locked, err := sched.Lock.Acquire(jobCtx)
	if err != nil {
		s.logg.Error(jobCtx, "job lock acquire failed", err)
		s.metrics.IncFailure(sched.Job.Name())
		return false
	}
	if !locked {
		s.logg.Debug(jobCtx, "job held by another instance")
		return false
	}
	defer func() {
		if err := sched.Lock.Release(context.WithoutCancel(jobCtx)); err != nil {
			s.logg.Error(jobCtx, "job lock release failed", err)
		}
	}()

	start := time.Now()
	err = s.metrics.Track(sched.Job.Name(), func() error {
		return sched.Job.Run(jobCtx)
	})
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", time.Since(start).Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		return true
	}
	s.logg.Info(jobCtx, "job completed")
	return true
}

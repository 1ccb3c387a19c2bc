package turntimer

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/park285/shootout-server/internal/obslog"
	"github.com/park285/shootout-server/internal/shootout"
	"go.uber.org/zap"
)

const minWorkers = 2

// Scheduler runs single-shot callbacks on a bounded gocron worker pool.
type Scheduler struct {
	cron   gocron.Scheduler
	logger *zap.Logger
}

var _ shootout.Scheduler = (*Scheduler)(nil)

// New starts a scheduler with at most workers callbacks in flight. Extra
// callbacks queue until a worker frees up.
func New(workers int) (*Scheduler, error) {
	if workers < minWorkers {
		workers = minWorkers
	}
	logger := obslog.L().Named("turntimer")
	cron, err := gocron.NewScheduler(
		gocron.WithLimitConcurrentJobs(uint(workers), gocron.LimitModeWait),
		gocron.WithLogger(cronLogger{logger.Sugar()}),
	)
	if err != nil {
		return nil, fmt.Errorf("new scheduler: %w", err)
	}
	cron.Start()
	return &Scheduler{cron: cron, logger: logger}, nil
}

// After schedules fn once, d from now.
func (s *Scheduler) After(d time.Duration, name string, fn func()) (shootout.Timer, error) {
	start := gocron.OneTimeJobStartImmediately()
	if d > 0 {
		start = gocron.OneTimeJobStartDateTime(time.Now().Add(d))
	}
	job, err := s.cron.NewJob(
		gocron.OneTimeJob(start),
		gocron.NewTask(s.run, name, fn),
		gocron.WithName(name),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule %s: %w", name, err)
	}
	return &timer{s: s, id: job.ID(), name: name}, nil
}

// Every runs fn every d until the returned timer is stopped. A run that is
// still going when the next one is due is skipped.
func (s *Scheduler) Every(d time.Duration, name string, fn func()) (shootout.Timer, error) {
	job, err := s.cron.NewJob(
		gocron.DurationJob(d),
		gocron.NewTask(s.run, name, fn),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule %s: %w", name, err)
	}
	return &timer{s: s, id: job.ID(), name: name}, nil
}

func (s *Scheduler) run(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("timer_panic", zap.String("job", name), zap.Any("panic", r))
		}
	}()
	fn()
}

// Pending is the number of jobs not yet run or removed.
func (s *Scheduler) Pending() int { return len(s.cron.Jobs()) }

// Shutdown stops the pool and waits for running callbacks.
func (s *Scheduler) Shutdown() error { return s.cron.Shutdown() }

type timer struct {
	s    *Scheduler
	id   uuid.UUID
	name string
	once sync.Once
}

func (t *timer) Stop() {
	t.once.Do(func() {
		if err := t.s.cron.RemoveJob(t.id); err != nil && !errors.Is(err, gocron.ErrJobNotFound) {
			t.s.logger.Warn("timer_stop_error", zap.String("job", t.name), zap.Error(err))
		}
	})
}

// cronLogger routes gocron's logging through zap.
type cronLogger struct{ z *zap.SugaredLogger }

func (l cronLogger) Debug(msg string, args ...any) { l.z.Debugw(msg, args...) }
func (l cronLogger) Error(msg string, args ...any) { l.z.Errorw(msg, args...) }
func (l cronLogger) Info(msg string, args ...any)  { l.z.Infow(msg, args...) }
func (l cronLogger) Warn(msg string, args ...any)  { l.z.Warnw(msg, args...) }

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"RiskPulse/pkg/errtrack"
	applogger "RiskPulse/pkg/logger"
)

// CycleRecorder receives one observation per finished run.
type CycleRecorder interface {
	RecordCycle(job, result string, seconds float64)
}

// Scheduler runs each registered job on its own ticker.
type Scheduler struct {
	jobs    []Job
	log     *applogger.Logger
	tracker errtrack.Tracker
	metrics CycleRecorder
	now     func() time.Time

	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

func WithLogger(l *applogger.Logger) Option { return func(s *Scheduler) { s.log = l } }
func WithTracker(t errtrack.Tracker) Option { return func(s *Scheduler) { s.tracker = t } }
func WithRecorder(m CycleRecorder) Option   { return func(s *Scheduler) { s.metrics = m } }
func WithClock(now func() time.Time) Option { return func(s *Scheduler) { s.now = now } }

func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		log:     applogger.Nop(),
		tracker: errtrack.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a job. Jobs registered after Start are ignored.
func (s *Scheduler) Register(j Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		s.log.Warn("cannot register job after scheduler start", applogger.String("job", j.Name()))
		return
	}
	s.jobs = append(s.jobs, j)
	s.log.Info("job registered",
		applogger.String("job", j.Name()),
		applogger.Duration("interval_ms", j.Interval()),
	)
}

// Start launches every enabled job. Each runs once immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("scheduler already started")
	}
	for _, j := range s.jobs {
		if j.Enabled() && j.Interval() <= 0 {
			return fmt.Errorf("job %s: interval must be positive", j.Name())
		}
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)

	for _, j := range s.jobs {
		if !j.Enabled() {
			s.log.Info("skipping disabled job", applogger.String("job", j.Name()))
			continue
		}
		s.wg.Add(1)
		go s.loop(j)
	}
	return nil
}

// Stop cancels running cycles and waits for the loops to exit.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.cancel()
	s.started = false
	s.mu.Unlock()

	done := make(chan struct{})
	go func() { s.wg.Wait(); close(done) }()
	select {
	case <-done:
		s.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Health reports the run history of jobs that track it.
func (s *Scheduler) Health() map[string]Health {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Health, len(s.jobs))
	for _, j := range s.jobs {
		if hr, ok := j.(healthReporter); ok {
			out[j.Name()] = hr.Health()
		}
	}
	return out
}

func (s *Scheduler) loop(j Job) {
	defer s.wg.Done()
	ticker := time.NewTicker(j.Interval())
	defer ticker.Stop()

	s.RunOnce(s.ctx, j)
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(s.ctx, j)
		}
	}
}

// RunOnce executes a single cycle of j under its deadline and recovers panics.
func (s *Scheduler) RunOnce(ctx context.Context, j Job) (err error) {
	start := s.now()
	cycle := NewCycle(start, j.Interval())
	maxDur := j.MaxDuration()
	if maxDur <= 0 {
		maxDur = j.Interval()
	}
	runCtx, cancel := context.WithTimeout(ctx, maxDur)
	defer cancel()

	log := s.log.With(applogger.String("job", j.Name()), applogger.String("cycle", cycle.ID))
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panic: %v", r)
		}
		elapsed := time.Since(start)
		result := "ok"
		if err != nil {
			result = "error"
			log.Error("cycle failed", applogger.Error(err), applogger.Duration("duration_ms", elapsed))
			s.tracker.CaptureError(ctx, err, map[string]string{"job": j.Name(), "cycle": cycle.ID})
		} else {
			log.Info("cycle completed", applogger.Duration("duration_ms", elapsed))
		}
		if s.metrics != nil {
			s.metrics.RecordCycle(j.Name(), result, elapsed.Seconds())
		}
		if hr, ok := j.(healthReporter); ok {
			hr.Record(cycle.ID, err, elapsed)
		}
	}()

	log.Debug("cycle started")
	return j.Run(runCtx, cycle)
}

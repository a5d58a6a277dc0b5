package scheduler

import (
	"context"
	"sync"
	"time"
)

// Job is one periodic unit of work. Run handles a single cycle and returns.
type Job interface {
	Name() string
	Interval() time.Duration
	// MaxDuration bounds a single run. Zero means the interval.
	MaxDuration() time.Duration
	Enabled() bool
	Run(ctx context.Context, c Cycle) error
}

// Health is the run history of a job.
type Health struct {
	LastRun     time.Time     `json:"last_run"`
	LastCycle   string        `json:"last_cycle"`
	LastError   string        `json:"last_error,omitempty"`
	RunCount    int64         `json:"run_count"`
	ErrorCount  int64         `json:"error_count"`
	AvgDuration time.Duration `json:"avg_duration"`
}

// BaseJob carries the static part of a Job and its run history.
// Embed it and implement Run.
type BaseJob struct {
	name        string
	interval    time.Duration
	maxDuration time.Duration
	enabled     bool

	mu            sync.RWMutex
	lastRun       time.Time
	lastCycle     string
	lastError     error
	runCount      int64
	errorCount    int64
	totalDuration time.Duration
}

func NewBaseJob(name string, interval, maxDuration time.Duration, enabled bool) *BaseJob {
	return &BaseJob{name: name, interval: interval, maxDuration: maxDuration, enabled: enabled}
}

func (j *BaseJob) Name() string               { return j.name }
func (j *BaseJob) Interval() time.Duration    { return j.interval }
func (j *BaseJob) MaxDuration() time.Duration { return j.maxDuration }

func (j *BaseJob) Enabled() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.enabled
}

func (j *BaseJob) SetEnabled(enabled bool) {
	j.mu.Lock()
	j.enabled = enabled
	j.mu.Unlock()
}

// Record stores the outcome of one run.
func (j *BaseJob) Record(cycleID string, err error, d time.Duration) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.lastRun = time.Now()
	j.lastCycle = cycleID
	j.lastError = err
	j.runCount++
	j.totalDuration += d
	if err != nil {
		j.errorCount++
	}
}

func (j *BaseJob) Health() Health {
	j.mu.RLock()
	defer j.mu.RUnlock()
	h := Health{
		LastRun:    j.lastRun,
		LastCycle:  j.lastCycle,
		RunCount:   j.runCount,
		ErrorCount: j.errorCount,
	}
	if j.lastError != nil {
		h.LastError = j.lastError.Error()
	}
	if j.runCount > 0 {
		h.AvgDuration = time.Duration(int64(j.totalDuration) / j.runCount)
	}
	return h
}

type healthReporter interface {
	Health() Health
	Record(cycleID string, err error, d time.Duration)
}

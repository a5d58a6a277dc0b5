package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Cycle identifies one run of a job. ID is stable for every run that starts
// inside the same interval, so re-runs share dedup keys.
type Cycle struct {
	ID       string
	Start    time.Time
	Boundary time.Time
	Interval time.Duration
}

// NewCycle truncates start to the interval boundary (UTC).
func NewCycle(start time.Time, interval time.Duration) Cycle {
	start = start.UTC()
	boundary := start
	if interval > 0 {
		boundary = start.Truncate(interval)
	}
	return Cycle{
		ID:       boundary.Format(time.RFC3339),
		Start:    start,
		Boundary: boundary,
		Interval: interval,
	}
}

// Outcome is the result of one subject in a fan-out.
type Outcome[T any] struct {
	Subject   string
	Value     T
	Err       error
	Cancelled bool
}

// FanOut runs fn for every subject with at most workers goroutines. Subjects
// not started before ctx is done, and subjects whose fn gave up because ctx
// ended, are reported as Cancelled. Results of subjects that did run are
// always returned. Output order is not defined.
func FanOut[T any](ctx context.Context, subjects []string, workers int, fn func(ctx context.Context, subject string) (T, error)) []Outcome[T] {
	if workers <= 0 {
		workers = 1
	}
	out := make(chan Outcome[T], len(subjects))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for _, subject := range subjects {
		select {
		case <-ctx.Done():
			out <- Outcome[T]{Subject: subject, Err: ctx.Err(), Cancelled: true}
			continue
		case sem <- struct{}{}:
		}
		// re-check: both cases may have been ready
		if ctx.Err() != nil {
			<-sem
			out <- Outcome[T]{Subject: subject, Err: ctx.Err(), Cancelled: true}
			continue
		}

		wg.Add(1)
		go func(subject string) {
			defer wg.Done()
			defer func() { <-sem }()
			v, err := fn(ctx, subject)
			out <- Outcome[T]{Subject: subject, Value: v, Err: err, Cancelled: interrupted(ctx, err)}
		}(subject)
	}

	go func() { wg.Wait(); close(out) }()

	results := make([]Outcome[T], 0, len(subjects))
	for o := range out {
		results = append(results, o)
	}
	return results
}

// interrupted reports whether err is ctx ending rather than a subject failure.
func interrupted(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

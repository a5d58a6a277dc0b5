package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJob struct {
	*BaseJob
	runs   int32
	runFn  func(ctx context.Context, c Cycle) error
	cycles chan Cycle
}

func newFakeJob(name string, interval time.Duration) *fakeJob {
	return &fakeJob{
		BaseJob: NewBaseJob(name, interval, 0, true),
		cycles:  make(chan Cycle, 100),
	}
}

func (f *fakeJob) Run(ctx context.Context, c Cycle) error {
	atomic.AddInt32(&f.runs, 1)
	f.cycles <- c
	if f.runFn != nil {
		return f.runFn(ctx, c)
	}
	return nil
}

type cycleCounter struct {
	mu      sync.Mutex
	results map[string]int
}

func (c *cycleCounter) RecordCycle(job, result string, _ float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.results == nil {
		c.results = map[string]int{}
	}
	c.results[job+"/"+result]++
}

func TestNewCycleTruncatesToInterval(t *testing.T) {
	start := time.Date(2024, 3, 1, 14, 37, 12, 0, time.UTC)

	c := NewCycle(start, time.Hour)
	assert.Equal(t, "2024-03-01T14:00:00Z", c.ID)
	assert.Equal(t, start, c.Start)
	assert.Equal(t, time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC), c.Boundary)

	c = NewCycle(start, 10*time.Minute)
	assert.Equal(t, "2024-03-01T14:30:00Z", c.ID)

	// a re-run inside the same interval shares the id
	assert.Equal(t, c.ID, NewCycle(start.Add(2*time.Minute), 10*time.Minute).ID)
}

func TestSchedulerRunsImmediatelyAndOnTicks(t *testing.T) {
	s := New()
	job := newFakeJob("risk", 50*time.Millisecond)
	s.Register(job)

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	time.Sleep(130 * time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
	assert.False(t, s.IsRunning())

	assert.GreaterOrEqual(t, int(atomic.LoadInt32(&job.runs)), 2)
	assert.GreaterOrEqual(t, job.Health().RunCount, int64(2))
}

func TestSchedulerSkipsDisabledJobs(t *testing.T) {
	s := New()
	job := newFakeJob("off", 10*time.Millisecond)
	job.SetEnabled(false)
	s.Register(job)

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))

	assert.Equal(t, int32(0), atomic.LoadInt32(&job.runs))
}

func TestRunOnceRecoversPanic(t *testing.T) {
	rec := &cycleCounter{}
	s := New(WithRecorder(rec))
	job := newFakeJob("boom", time.Hour)
	job.runFn = func(context.Context, Cycle) error { panic("kaboom") }

	err := s.RunOnce(context.Background(), job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
	assert.Equal(t, 1, rec.results["boom/error"])
	assert.Equal(t, int64(1), job.Health().ErrorCount)
}

func TestRunOnceAppliesDeadline(t *testing.T) {
	s := New(WithClock(func() time.Time { return time.Date(2024, 1, 1, 10, 5, 0, 0, time.UTC) }))
	job := newFakeJob("slow", time.Hour)
	job.BaseJob = NewBaseJob("slow", time.Hour, 20*time.Millisecond, true)
	job.runFn = func(ctx context.Context, c Cycle) error {
		<-ctx.Done()
		return ctx.Err()
	}

	err := s.RunOnce(context.Background(), job)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	c := <-job.cycles
	assert.Equal(t, "2024-01-01T10:00:00Z", c.ID)
}

func TestFanOutBoundsConcurrency(t *testing.T) {
	subjects := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	var inFlight, peak int32

	outcomes := FanOut(context.Background(), subjects, 3, func(ctx context.Context, s string) (string, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		if s == "c" {
			return "", errors.New("bad subject")
		}
		return s + "!", nil
	})

	require.Len(t, outcomes, len(subjects))
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))

	var ok []string
	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			continue
		}
		ok = append(ok, o.Value)
	}
	sort.Strings(ok)
	assert.Equal(t, 1, failed)
	assert.Equal(t, []string{"a!", "b!", "d!", "e!", "f!", "g!", "h!"}, ok)
}

func TestFanOutCancelledSubjectsAreCounted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	subjects := []string{"a", "b", "c", "d"}
	release := make(chan struct{})

	done := make(chan []Outcome[int])
	go func() {
		done <- FanOut(ctx, subjects, 1, func(ctx context.Context, s string) (int, error) {
			<-release
			return 1, nil
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	close(release)
	outcomes := <-done

	require.Len(t, outcomes, 4)
	completed, cancelled := 0, 0
	for _, o := range outcomes {
		if o.Cancelled {
			cancelled++
		} else {
			completed++
		}
	}
	assert.Equal(t, 1, completed)
	assert.Equal(t, 3, cancelled)
}

func TestFanOutDeadlineDuringSubjectIsCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	outcomes := FanOut(ctx, []string{"slow", "broken"}, 2, func(ctx context.Context, s string) (int, error) {
		if s == "broken" {
			return 0, errors.New("bad subject")
		}
		<-ctx.Done()
		return 0, fmt.Errorf("price history %s: %w", s, ctx.Err())
	})

	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		switch o.Subject {
		case "slow":
			assert.True(t, o.Cancelled)
			assert.ErrorIs(t, o.Err, context.DeadlineExceeded)
		case "broken":
			assert.False(t, o.Cancelled)
			assert.Error(t, o.Err)
		}
	}
}

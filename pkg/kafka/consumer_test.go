package kafka

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	SetConsumerMetricsRegisterer(prometheus.NewRegistry())
}

type countingHandler struct {
	calls int
	fail  int
	err   error
}

func (h *countingHandler) Topic() string { return "prices" }

func (h *countingHandler) Handle(context.Context, []byte) error {
	h.calls++
	if h.calls <= h.fail {
		return h.err
	}
	return nil
}

func newTestConsumer(t *testing.T) *Consumer {
	t.Helper()
	c, err := NewConsumer(
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(2, time.Millisecond, 2*time.Millisecond),
	)
	require.NoError(t, err)
	return c
}

func TestProcessRetriesTransientErrors(t *testing.T) {
	c := newTestConsumer(t)
	h := &countingHandler{fail: 2, err: errors.New("clickhouse down")}
	c.process(h, &message{topic: "prices", data: []byte(`{}`)})
	assert.Equal(t, 3, h.calls)
}

func TestProcessGivesUpAfterRetryMax(t *testing.T) {
	c := newTestConsumer(t)
	var errs []error
	c.WithConsumerHook(HookFuncs{Err: func(_ context.Context, _ string, _ kafka.Message, _ []byte, err error) {
		errs = append(errs, err)
	}})
	h := &countingHandler{fail: 100, err: errors.New("still down")}
	c.process(h, &message{topic: "prices"})
	assert.Equal(t, 3, h.calls)
	assert.Len(t, errs, 3, "two per-attempt notifications and one final")
}

func TestProcessStopsOnPermanentError(t *testing.T) {
	c := newTestConsumer(t)
	h := &countingHandler{fail: 100, err: fmt.Errorf("decode: %w", ErrPermanent)}
	c.process(h, &message{topic: "prices"})
	assert.Equal(t, 1, h.calls)
}

func TestProcessRecoversPanics(t *testing.T) {
	c := newTestConsumer(t)
	assert.NotPanics(t, func() {
		c.process(panicHandler{}, &message{topic: "prices"})
	})
}

type panicHandler struct{}

func (panicHandler) Topic() string                        { return "prices" }
func (panicHandler) Handle(context.Context, []byte) error { panic("boom") }

func TestHookChainOrderAndPanicSafety(t *testing.T) {
	var order []string
	mk := func(name string) ConsumerHook {
		return HookFuncs{
			Before: func(ctx context.Context, _ string, km kafka.Message, d []byte) (context.Context, kafka.Message, []byte, error) {
				order = append(order, "before:"+name)
				return ctx, km, d, nil
			},
			After: func(context.Context, string, kafka.Message, []byte, error) {
				order = append(order, "after:"+name)
			},
		}
	}
	chain := NewHookChain(mk("a"), nil, mk("b"))
	ctx, km, data, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, []byte("x"))
	require.NoError(t, err)
	chain.AfterHandle(ctx, "t", km, data, nil)
	assert.Equal(t, []string{"before:a", "before:b", "after:b", "after:a"}, order)

	boom := HookFuncs{Before: func(context.Context, string, kafka.Message, []byte) (context.Context, kafka.Message, []byte, error) {
		panic("bad hook")
	}}
	_, _, _, err = NewHookChain(boom).BeforeHandle(context.Background(), "t", kafka.Message{}, nil)
	var he *HookError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, "ERR_PANIC", he.Code)
}

func TestTracingHook(t *testing.T) {
	km := kafka.Message{Headers: []kafka.Header{{Key: "trace_id", Value: []byte("abc")}}}
	ctx, _, _, err := TracingHook().BeforeHandle(context.Background(), "t", km, nil)
	require.NoError(t, err)
	assert.Equal(t, "abc", TraceID(ctx))
	_, ok := StartTime(ctx)
	assert.True(t, ok)
}

func TestBackoffWithJitterBounds(t *testing.T) {
	for attempt := 1; attempt <= 10; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, 80*time.Millisecond, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 80*time.Millisecond)
	}
}

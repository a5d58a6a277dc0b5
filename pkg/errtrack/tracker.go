// Package errtrack reports errors to Sentry.
package errtrack

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// Tracker captures errors with tags.
type Tracker interface {
	CaptureError(ctx context.Context, err error, tags map[string]string)
	Flush(timeout time.Duration) bool
}

// Config holds Sentry client options.
type Config struct {
	DSN              string
	Environment      string
	Release          string
	Debug            bool
	TracesSampleRate float64
}

// New returns a Sentry-backed tracker, or a no-op tracker when DSN is empty.
func New(cfg Config) (Tracker, error) {
	if cfg.DSN == "" {
		return Nop(), nil
	}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		Debug:            cfg.Debug,
		TracesSampleRate: cfg.TracesSampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("sentry init: %w", err)
	}
	return &SentryTracker{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

// SentryTracker implements Tracker via a dedicated Sentry hub.
type SentryTracker struct {
	hub *sentry.Hub
}

// CaptureError sends err with tags on a cloned hub so concurrent callers do not share scope.
func (t *SentryTracker) CaptureError(ctx context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}
	hub := t.hub.Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		if ctx != nil {
			if deadline, ok := ctx.Deadline(); ok {
				scope.SetExtra("deadline", deadline.Format(time.RFC3339))
			}
		}
	})
	hub.CaptureException(err)
}

// Flush waits up to timeout for buffered events.
func (t *SentryTracker) Flush(timeout time.Duration) bool {
	return t.hub.Flush(timeout)
}

type nopTracker struct{}

// Nop returns a tracker that drops everything.
func Nop() Tracker { return nopTracker{} }

func (nopTracker) CaptureError(context.Context, error, map[string]string) {}

func (nopTracker) Flush(time.Duration) bool { return true }

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"RiskPulse/internal/domain/models"
	domrepo "RiskPulse/internal/domain/repository"
	"RiskPulse/pkg/cache"
	applogger "RiskPulse/pkg/logger"
)

// NamedSink pairs an alert sink with a name for logs.
type NamedSink struct {
	Name string
	Sink domrepo.AlertSink
}

// MultiAlertSink delivers every alert to all sinks. It fails only when no sink accepted the alert.
type MultiAlertSink struct {
	sinks []NamedSink
	l     *applogger.Logger
}

func NewMultiAlertSink(l *applogger.Logger, sinks ...NamedSink) *MultiAlertSink {
	if l == nil {
		l = applogger.Nop()
	}
	out := make([]NamedSink, 0, len(sinks))
	for _, s := range sinks {
		if s.Sink != nil {
			out = append(out, s)
		}
	}
	return &MultiAlertSink{sinks: out, l: l}
}

var _ domrepo.AlertSink = (*MultiAlertSink)(nil)

func (m *MultiAlertSink) EmitAlert(ctx context.Context, a models.Alert) error {
	if len(m.sinks) == 0 {
		return errors.New("no alert sinks configured")
	}
	var errs []error
	for _, s := range m.sinks {
		if err := s.Sink.EmitAlert(ctx, a); err != nil {
			m.l.Warn("alert sink failed",
				applogger.String("sink", s.Name),
				applogger.String("alert_id", a.ID),
				applogger.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	if len(errs) == len(m.sinks) {
		return fmt.Errorf("all alert sinks failed: %w", errors.Join(errs...))
	}
	return nil
}

// CacheDedup claims dedup keys with cache.Service locks (SETNX on Redis).
type CacheDedup struct {
	c cache.Service
}

func NewCacheDedup(c cache.Service) *CacheDedup {
	return &CacheDedup{c: c}
}

var _ domrepo.DedupStore = (*CacheDedup)(nil)

func (d *CacheDedup) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := d.c.TryLock(ctx, key, ttl)
	if err != nil {
		return false, fmt.Errorf("dedup claim %s: %w", key, err)
	}
	return ok, nil
}

func (d *CacheDedup) Release(ctx context.Context, key string) error {
	if err := d.c.Unlock(ctx, key); err != nil {
		return fmt.Errorf("dedup release %s: %w", key, err)
	}
	return nil
}

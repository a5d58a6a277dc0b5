package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"RiskPulse/internal/domain/models"
	domrepo "RiskPulse/internal/domain/repository"
	applogger "RiskPulse/pkg/logger"
)

// AlertKey is the dedup key of one alert per subject, type and cycle.
func AlertKey(cycleID string, t models.AlertType, subject string) string {
	return fmt.Sprintf("alert:%s:%s:%s", cycleID, t, subject)
}

// AlertEmitter delivers alerts at most once per (cycle, type, subject).
type AlertEmitter struct {
	dedup   domrepo.DedupStore
	sink    domrepo.AlertSink
	metrics domrepo.Metrics
	l       *applogger.Logger
	now     func() time.Time
}

func NewAlertEmitter(dedup domrepo.DedupStore, sink domrepo.AlertSink, metrics domrepo.Metrics, l *applogger.Logger) *AlertEmitter {
	if l == nil {
		l = applogger.Nop()
	}
	return &AlertEmitter{dedup: dedup, sink: sink, metrics: metrics, l: l, now: time.Now}
}

// AlertInput is what a cycle knows about a threshold crossing.
type AlertInput struct {
	Type    models.AlertType
	Subject string
	Level   models.AlertLevel
	Message string
	Metric  float64
}

// Emit claims the dedup key for ttl and sends the alert. It returns false
// when the alert was already sent in this cycle. A failed delivery releases
// the key so a re-run can retry.
func (e *AlertEmitter) Emit(ctx context.Context, cycleID string, ttl time.Duration, in AlertInput) (bool, error) {
	key := AlertKey(cycleID, in.Type, in.Subject)
	ok, err := e.dedup.Claim(ctx, key, ttl)
	if err != nil {
		return false, err
	}
	if !ok {
		e.l.Debug("alert already emitted", applogger.String("key", key))
		return false, nil
	}

	a := models.Alert{
		ID:          uuid.NewString(),
		CycleID:     cycleID,
		Type:        in.Type,
		SubjectID:   in.Subject,
		Level:       in.Level,
		Message:     in.Message,
		MetricValue: decimal.NewFromFloat(in.Metric),
		CreatedAt:   e.now().UTC(),
	}
	if err := e.sink.EmitAlert(ctx, a); err != nil {
		// the cycle context may be done already
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if rerr := e.dedup.Release(relCtx, key); rerr != nil {
			e.l.Warn("release alert key", applogger.String("key", key), applogger.Error(rerr))
		}
		return false, fmt.Errorf("emit %s alert for %s: %w", in.Type, in.Subject, err)
	}

	e.metrics.RecordAlert(string(a.Type), string(a.Level))
	e.l.Info("alert emitted",
		applogger.String("alert_id", a.ID),
		applogger.String("type", string(a.Type)),
		applogger.String("subject", a.SubjectID),
		applogger.String("level", string(a.Level)),
		applogger.Float64("metric", in.Metric),
	)
	return true, nil
}

func assetAlertLevel(score float64) models.AlertLevel {
	if score > 90 {
		return models.LevelExtreme
	}
	return models.LevelHigh
}

func portfolioAlertLevel(ratio float64) models.AlertLevel {
	switch {
	case ratio > 0.30:
		return models.LevelExtreme
	case ratio > 0.20:
		return models.LevelHigh
	default:
		return models.LevelMedium
	}
}

func marketAlertLevel(index float64) models.AlertLevel {
	if index > 80 {
		return models.LevelExtreme
	}
	return models.LevelHigh
}

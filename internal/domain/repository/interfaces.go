package repository

import (
	"context"
	"time"

	"RiskPulse/internal/domain/models"
)

// Ingestor persists feed rows consumed from Kafka.
type Ingestor interface {
	StorePrice(ctx context.Context, p models.PricePoint) error
	StoreLiquidity(ctx context.Context, s models.LiquiditySample) error
	StoreTrade(ctx context.Context, p models.Position) error
	StoreText(ctx context.Context, t models.TextItem) error
}

// SnapshotSink receives derived snapshots. Each call appends; nothing is updated in place.
type SnapshotSink interface {
	SaveRiskProfiles(ctx context.Context, profiles []models.RiskProfile) error
	SavePortfolioSnapshots(ctx context.Context, snaps []models.PortfolioRiskSnapshot) error
	SaveMarketSnapshot(ctx context.Context, snap models.MarketRiskSnapshot) error
	SaveSentimentSnapshots(ctx context.Context, snaps []models.SentimentSnapshot) error
}

// AlertSink receives alerts that passed deduplication.
type AlertSink interface {
	EmitAlert(ctx context.Context, a models.Alert) error
}

// AlertReader lists recent alerts for the API.
type AlertReader interface {
	RecentAlerts(ctx context.Context, alertType string, limit int) ([]models.Alert, error)
}

// DedupStore claims a key once. Claim returns false if the key was already claimed.
type DedupStore interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Metrics records operational metrics.
type Metrics interface {
	RecordCycle(job, result string, seconds float64)
	RecordSubject(job, result string)
	RecordAlert(alertType, level string)
	RecordVolatilityIndex(v float64)
	RecordMessageIngested(topic string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}

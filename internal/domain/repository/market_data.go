package repository

import (
	"context"
	"time"

	"RiskPulse/internal/domain/models"
)

// MarketDataSource provides read-only access to the history the calculators need.
// Rows are returned in chronological order.
type MarketDataSource interface {
	PriceHistory(ctx context.Context, symbol string, from, to time.Time) ([]models.PricePoint, error)
	LiquiditySamples(ctx context.Context, symbol string, from, to time.Time) ([]models.LiquiditySample, error)
	TradeHistory(ctx context.Context, userID string, from, to time.Time) ([]models.Position, error)
	// ActiveAssets lists symbols with price data refreshed in [since, until).
	ActiveAssets(ctx context.Context, since, until time.Time) ([]string, error)
	// ActiveUsers lists users with trades in [since, until).
	ActiveUsers(ctx context.Context, since, until time.Time) ([]string, error)
}

// TextSource provides text items for sentiment aggregation.
type TextSource interface {
	TextItems(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.TextItem, error)
	ActiveTextSymbols(ctx context.Context, since, until time.Time) ([]string, error)
}

// LexiconSource loads the current keyword lexicon.
type LexiconSource interface {
	Load(ctx context.Context) (*models.KeywordLexicon, error)
}

// HistoryStore answers trailing-average questions over stored snapshots.
// Averages cover [from, to); n is the number of snapshots found.
type HistoryStore interface {
	AverageRiskScore(ctx context.Context, symbol string, from, to time.Time) (avg float64, n int, err error)
	AverageVolatilityIndex(ctx context.Context, from, to time.Time) (avg float64, n int, err error)
}

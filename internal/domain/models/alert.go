package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertType identifies the threshold that was crossed.
type AlertType string

const (
	AlertAssetRiskSpike      AlertType = "asset_risk_spike"
	AlertPortfolioRiskBreach AlertType = "portfolio_risk_breach"
	AlertMarketRiskSpike     AlertType = "market_risk_spike"
	AlertSentiment           AlertType = "sentiment_alert"
)

// AlertLevel is the severity of an alert.
type AlertLevel string

const (
	LevelLow     AlertLevel = "low"
	LevelMedium  AlertLevel = "medium"
	LevelHigh    AlertLevel = "high"
	LevelExtreme AlertLevel = "extreme"
)

// MarketSubject is the subject id used for market-wide alerts.
const MarketSubject = "market"

// Alert is an append-only record of a threshold crossing.
type Alert struct {
	ID          string          `json:"id"`
	CycleID     string          `json:"cycle_id"`
	Type        AlertType       `json:"alert_type"`
	SubjectID   string          `json:"subject_id"`
	Level       AlertLevel      `json:"level"`
	Message     string          `json:"message"`
	MetricValue decimal.Decimal `json:"metric_value"`
	CreatedAt   time.Time       `json:"created_at"`
}

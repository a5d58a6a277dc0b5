package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is one daily close for an asset.
type PricePoint struct {
	Symbol string          `json:"symbol"`
	Date   time.Time       `json:"date"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"volume"`
}

// LiquiditySample is a volume/spread observation for an asset.
type LiquiditySample struct {
	Symbol    string          `json:"symbol"`
	Timestamp time.Time       `json:"timestamp"`
	Volume24h decimal.Decimal `json:"volume_24h"`
	Spread    float64         `json:"spread"`
}

// Position is a single trade event of a user.
type Position struct {
	UserID            string          `json:"user_id"`
	Symbol            string          `json:"symbol"`
	Amount            decimal.Decimal `json:"amount"`
	ProfitLossPercent decimal.Decimal `json:"pnl_percent"` // 5 means +5%
	TradeDate         time.Time       `json:"trade_date"`
	Sector            string          `json:"sector,omitempty"`
}

// RiskLevel is the four-band level used by concentration and liquidity.
type RiskLevel string

const (
	RiskLow     RiskLevel = "low"
	RiskMedium  RiskLevel = "medium"
	RiskHigh    RiskLevel = "high"
	RiskExtreme RiskLevel = "extreme"
)

// RiskBand categorises a 0-100 risk score.
type RiskBand string

const (
	BandVeryLow  RiskBand = "very_low"
	BandLow      RiskBand = "low"
	BandMedium   RiskBand = "medium"
	BandHigh     RiskBand = "high"
	BandVeryHigh RiskBand = "very_high"
)

// Liquidity is the output of the liquidity assessor.
type Liquidity struct {
	AvgVolume float64      `json:"avg_volume"`
	AvgSpread float64      `json:"avg_spread"`
	Level     RiskLevel    `json:"liquidity_risk_level"`
	Samples   int          `json:"samples"`
	Status    ResultStatus `json:"status"`
}

// Concentration is the output of the concentration analyzer.
type Concentration struct {
	HHI             float64   `json:"hhi"`
	TopAssetWeight  float64   `json:"top_asset_weight"`
	Top3Weight      float64   `json:"top_3_weight"`
	Diversification Metric    `json:"diversification_score"`
	Level           RiskLevel `json:"risk_level"`
	Assets          int       `json:"assets"`
}

// VaRResult is a historical-simulation VaR estimate.
type VaRResult struct {
	Confidence        float64         `json:"confidence"`
	Value             decimal.Decimal `json:"value"`
	ExpectedShortfall decimal.Decimal `json:"expected_shortfall"`
	Percentile        float64         `json:"percentile_return"`
	PortfolioValue    decimal.Decimal `json:"portfolio_value"`
	Days              int             `json:"days"`
	Status            ResultStatus    `json:"status"`
}

// Performance holds return-based statistics of an asset.
type Performance struct {
	MaxDrawdown float64 `json:"max_drawdown"`
	Sharpe      float64 `json:"sharpe"`
	Sortino     float64 `json:"sortino"`
}

// RiskProfile is a point-in-time risk snapshot for one asset.
type RiskProfile struct {
	ID          string       `json:"id"`
	CycleID     string       `json:"cycle_id,omitempty"`
	Symbol      string       `json:"symbol"`
	Volatility  Metric       `json:"volatility_30d"`
	Liquidity   Liquidity    `json:"liquidity"`
	Performance Performance  `json:"performance"`
	RiskScore   float64      `json:"risk_score"`
	RiskBand    RiskBand     `json:"risk_level"`
	Status      ResultStatus `json:"status"`
	ComputedAt  time.Time    `json:"computed_at"`
}

// PortfolioRiskSnapshot is a point-in-time risk snapshot for one user.
type PortfolioRiskSnapshot struct {
	ID             string          `json:"id"`
	CycleID        string          `json:"cycle_id,omitempty"`
	UserID         string          `json:"user_id"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"`
	VaR95          VaRResult       `json:"var_95"`
	VaR99          VaRResult       `json:"var_99"`
	Concentration  *Concentration  `json:"concentration,omitempty"`
	Status         ResultStatus    `json:"status"`
	ComputedAt     time.Time       `json:"computed_at"`
}

// MarketRiskSnapshot stores the market-wide volatility index of a cycle.
type MarketRiskSnapshot struct {
	CycleID         string    `json:"cycle_id"`
	VolatilityIndex float64   `json:"volatility_index"`
	Assets          int       `json:"assets"`
	ComputedAt      time.Time `json:"computed_at"`
}

// StressScenario applies relative shocks to holdings. Keys of Shocks are
// "all", a symbol, a sector, or "others".
type StressScenario struct {
	Name        string             `json:"name" yaml:"name"`
	Description string             `json:"description" yaml:"description"`
	Shocks      map[string]float64 `json:"shocks" yaml:"shocks"`
}

// ScenarioOutcome is the result of one stress scenario.
type ScenarioOutcome struct {
	Name        string          `json:"name"`
	ValueBefore decimal.Decimal `json:"value_before"`
	ValueAfter  decimal.Decimal `json:"value_after"`
	Loss        decimal.Decimal `json:"loss"`
	LossPercent float64         `json:"loss_percent"`
}

// StressReport aggregates all scenario outcomes.
type StressReport struct {
	Scenarios  []ScenarioOutcome `json:"scenarios"`
	Worst      string            `json:"worst_case_scenario"`
	Resilience float64           `json:"resilience_score"`
}

// Diversification grades the average pairwise correlation of a portfolio.
type Diversification string

const (
	DiversificationExcellent Diversification = "excellent"
	DiversificationGood      Diversification = "good"
	DiversificationModerate  Diversification = "moderate"
	DiversificationPoor      Diversification = "poor"
	DiversificationVeryPoor  Diversification = "very_poor"
)

// CorrelatedPair is a pair of held assets whose returns move together.
type CorrelatedPair struct {
	AssetA      string  `json:"asset_1"`
	AssetB      string  `json:"asset_2"`
	Correlation float64 `json:"correlation"`
}

// CorrelationAnalysis describes how the held assets of a portfolio co-move.
// Matrix rows and columns follow Symbols.
type CorrelationAnalysis struct {
	Symbols              []string         `json:"symbols"`
	Matrix               [][]float64      `json:"correlation_matrix,omitempty"`
	Average              float64          `json:"average_correlation"`
	Max                  float64          `json:"max_correlation"`
	Min                  float64          `json:"min_correlation"`
	PortfolioVolatility  float64          `json:"portfolio_volatility"`
	DiversificationRatio float64          `json:"diversification_ratio"`
	Level                Diversification  `json:"diversification_level,omitempty"`
	HighlyCorrelated     []CorrelatedPair `json:"highly_correlated_pairs"`
	Samples              int              `json:"samples"`
	Status               ResultStatus     `json:"status"`
}

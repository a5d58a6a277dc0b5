package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"RiskPulse/internal/domain/models"
	domrepo "RiskPulse/internal/domain/repository"
	"RiskPulse/internal/services/risk"
)

// RiskConfig holds the windows and thresholds of the risk pipeline.
type RiskConfig struct {
	VolatilityDays    int
	VaRDays           int
	LiquidityDays     int
	ConcentrationDays int
	VaRMinDays        int
	Workers           int

	AssetScore        float64
	AssetRatio        float64
	AssetTrailing     time.Duration
	PortfolioVaRRatio float64
	MarketIndex       float64
	MarketRatio       float64
	MarketTrailing    time.Duration
}

// DefaultRiskConfig returns the stock windows and thresholds.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		VolatilityDays:    30,
		VaRDays:           90,
		LiquidityDays:     7,
		ConcentrationDays: 90,
		VaRMinDays:        risk.DefaultMinVaRDays,
		Workers:           8,
		AssetScore:        75,
		AssetRatio:        1.2,
		AssetTrailing:     24 * time.Hour,
		PortfolioVaRRatio: 0.15,
		MarketIndex:       60,
		MarketRatio:       1.5,
		MarketTrailing:    7 * 24 * time.Hour,
	}
}

func days(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }

// RiskAssessor builds risk snapshots from market data. It is shared by the
// scheduled cycle and the on-demand API.
type RiskAssessor struct {
	data domrepo.MarketDataSource
	cfg  RiskConfig
}

func NewRiskAssessor(data domrepo.MarketDataSource, cfg RiskConfig) *RiskAssessor {
	return &RiskAssessor{data: data, cfg: cfg}
}

func (a *RiskAssessor) Config() RiskConfig { return a.cfg }

// AssetProfile computes the profile of symbol as of asOf. volDays overrides
// the volatility window when positive. A symbol with neither prices nor
// liquidity samples is ErrUnknownSubject.
func (a *RiskAssessor) AssetProfile(ctx context.Context, symbol string, asOf time.Time, volDays int) (models.RiskProfile, error) {
	if volDays <= 0 {
		volDays = a.cfg.VolatilityDays
	}
	prices, err := a.data.PriceHistory(ctx, symbol, asOf.Add(-days(volDays)), asOf)
	if err != nil {
		return models.RiskProfile{}, fmt.Errorf("price history %s: %w", symbol, err)
	}
	samples, err := a.data.LiquiditySamples(ctx, symbol, asOf.Add(-days(a.cfg.LiquidityDays)), asOf)
	if err != nil {
		return models.RiskProfile{}, fmt.Errorf("liquidity samples %s: %w", symbol, err)
	}
	if len(prices) == 0 && len(samples) == 0 {
		return models.RiskProfile{}, fmt.Errorf("asset %s: %w", symbol, models.ErrUnknownSubject)
	}

	returns := risk.DailyReturns(prices)
	vol := risk.VolatilityFromReturns(returns)
	liq := risk.AssessLiquidity(samples)
	score := risk.AssetRiskScore(vol.Value, liq.Level)

	// A missing liquidity window defaults the level to Extreme, so the
	// score is only a placeholder and must not drive alerts.
	status := models.StatusOK
	if vol.Status != models.StatusOK || liq.Status != models.StatusOK {
		status = models.StatusInsufficientData
	}

	return models.RiskProfile{
		ID:          uuid.NewString(),
		Symbol:      symbol,
		Volatility:  vol,
		Liquidity:   liq,
		Performance: risk.PerformanceOf(returns),
		RiskScore:   score,
		RiskBand:    risk.Band(score),
		Status:      status,
		ComputedAt:  asOf.UTC(),
	}, nil
}

// PortfolioSnapshot computes VaR95, VaR99 and concentration for userID.
// lookback overrides the VaR window when positive.
func (a *RiskAssessor) PortfolioSnapshot(ctx context.Context, userID string, asOf time.Time, lookback int) (models.PortfolioRiskSnapshot, []models.Position, error) {
	if lookback <= 0 {
		lookback = a.cfg.VaRDays
	}
	window := lookback
	if a.cfg.ConcentrationDays > window {
		window = a.cfg.ConcentrationDays
	}
	all, err := a.data.TradeHistory(ctx, userID, asOf.Add(-days(window)), asOf)
	if err != nil {
		return models.PortfolioRiskSnapshot{}, nil, fmt.Errorf("trade history %s: %w", userID, err)
	}
	if len(all) == 0 {
		return models.PortfolioRiskSnapshot{}, nil, fmt.Errorf("user %s: %w", userID, models.ErrUnknownSubject)
	}

	varPositions := since(all, asOf.Add(-days(lookback)))
	daily := risk.DailyPortfolioReturns(varPositions)
	var95, err := risk.VaRFromDaily(daily, 0.95, a.cfg.VaRMinDays)
	if err != nil {
		return models.PortfolioRiskSnapshot{}, nil, err
	}
	var99, err := risk.VaRFromDaily(daily, 0.99, a.cfg.VaRMinDays)
	if err != nil {
		return models.PortfolioRiskSnapshot{}, nil, err
	}

	snap := models.PortfolioRiskSnapshot{
		ID:             uuid.NewString(),
		UserID:         userID,
		PortfolioValue: var95.PortfolioValue,
		VaR95:          var95,
		VaR99:          var99,
		Status:         var95.Status,
		ComputedAt:     asOf.UTC(),
	}
	conc, err := risk.ConcentrationFromPositions(since(all, asOf.Add(-days(a.cfg.ConcentrationDays))))
	switch {
	case err == nil:
		snap.Concentration = &conc
	case errors.Is(err, models.ErrEmptyPortfolio):
	default:
		return models.PortfolioRiskSnapshot{}, nil, fmt.Errorf("concentration %s: %w", userID, err)
	}
	return snap, varPositions, nil
}

// PortfolioCorrelation correlates the daily returns of the assets held in
// positions over the lookback window. lookback defaults to the VaR window.
func (a *RiskAssessor) PortfolioCorrelation(ctx context.Context, positions []models.Position, asOf time.Time, lookback int) (models.CorrelationAnalysis, error) {
	if lookback <= 0 {
		lookback = a.cfg.VaRDays
	}
	weights, err := risk.WeightsFromPositions(positions)
	if err != nil {
		return risk.Correlation(nil, nil, nil), nil
	}
	series := make(map[string][]models.PricePoint, len(weights))
	for sym := range weights {
		points, err := a.data.PriceHistory(ctx, sym, asOf.Add(-days(lookback)), asOf)
		if err != nil {
			return models.CorrelationAnalysis{}, fmt.Errorf("price history %s: %w", sym, err)
		}
		series[sym] = points
	}
	symbols, columns := risk.AlignReturns(series)
	return risk.Correlation(symbols, columns, weights), nil
}

// HighRiskAssets lists the held symbols whose reliable profile lands in the
// high or very_high band. Symbols without data are skipped.
func (a *RiskAssessor) HighRiskAssets(ctx context.Context, positions []models.Position, asOf time.Time) ([]string, error) {
	totals := risk.AssetTotals(positions)
	symbols := make([]string, 0, len(totals))
	for sym := range totals {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	var out []string
	for _, sym := range symbols {
		p, err := a.AssetProfile(ctx, sym, asOf, 0)
		if errors.Is(err, models.ErrUnknownSubject) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if p.Status.Reliable() && (p.RiskBand == models.BandHigh || p.RiskBand == models.BandVeryHigh) {
			out = append(out, sym)
		}
	}
	return out, nil
}

func since(positions []models.Position, from time.Time) []models.Position {
	out := make([]models.Position, 0, len(positions))
	for _, p := range positions {
		if !p.TradeDate.Before(from) {
			out = append(out, p)
		}
	}
	return out
}

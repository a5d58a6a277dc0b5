package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RiskPulse/internal/domain/models"
	"RiskPulse/internal/repository"
	"RiskPulse/internal/scheduler"
	"RiskPulse/pkg/cache"
)

type riskFixture struct {
	market  *fakeMarket
	sink    *fakeSink
	alerts  *alertRecorder
	history fakeHistory
	cycle   *RiskCycle
}

func newRiskFixture(t *testing.T) *riskFixture {
	t.Helper()
	f := &riskFixture{
		market: newFakeMarket(),
		sink:   &fakeSink{},
		alerts: &alertRecorder{},
		history: fakeHistory{
			riskAvg:  map[string]float64{"HOT": 50, "CALM": 10},
			indexAvg: 40,
			indexN:   6,
		},
	}
	f.market.addCloses("HOT", t0, 100, 150, 90, 160, 80, 170)
	f.market.addCloses("CALM", t0, 100, 100.5, 100, 100.5)
	f.market.addLiquidity("HOT", t0, 6, 50_000, 0.2)
	f.market.addLiquidity("CALM", t0, 6, 50_000_000, 0.001)
	f.market.addDailyTrades("u1", t0, 12, 1000, -20)
	f.market.addDailyTrades("u2", t0, 12, 1000, 1)

	mc := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })
	emitter := NewAlertEmitter(repository.NewCacheDedup(mc), f.alerts, nopMetrics{}, nil)

	f.cycle = NewRiskCycle(scheduler.NewBaseJob(RiskJobName, time.Hour, 50*time.Minute, true), RiskCycleDeps{
		Assessor: NewRiskAssessor(f.market, DefaultRiskConfig()),
		Data:     f.market,
		Sink:     f.sink,
		History:  f.history,
		Alerts:   emitter,
		Metrics:  nopMetrics{},
	})
	return f
}

func TestRiskCycleComputesAndAlerts(t *testing.T) {
	f := newRiskFixture(t)
	rep, err := f.cycle.Execute(context.Background(), scheduler.NewCycle(t0, time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Assets)
	assert.Equal(t, 2, rep.Users)
	assert.Len(t, f.sink.profiles, 2)
	assert.Len(t, f.sink.portfolios, 2)
	require.Len(t, f.sink.markets, 1)
	assert.Equal(t, 2, f.sink.markets[0].Assets)

	asset := f.alerts.byType(models.AlertAssetRiskSpike)
	require.Len(t, asset, 1)
	assert.Equal(t, "HOT", asset[0].SubjectID)
	assert.Equal(t, models.LevelExtreme, asset[0].Level)
	assert.Equal(t, rep.CycleID, asset[0].CycleID)

	portfolio := f.alerts.byType(models.AlertPortfolioRiskBreach)
	require.Len(t, portfolio, 1)
	assert.Equal(t, "u1", portfolio[0].SubjectID)
	assert.Equal(t, models.LevelMedium, portfolio[0].Level)
	assert.InDelta(t, 0.2, portfolio[0].MetricValue.InexactFloat64(), 1e-9)

	market := f.alerts.byType(models.AlertMarketRiskSpike)
	require.Len(t, market, 1)
	assert.Equal(t, models.MarketSubject, market[0].SubjectID)
	assert.Equal(t, models.LevelExtreme, market[0].Level)
	assert.Equal(t, 3, rep.Alerts)
}

func TestRiskCycleRerunDoesNotDuplicateAlerts(t *testing.T) {
	f := newRiskFixture(t)
	ctx := context.Background()

	_, err := f.cycle.Execute(ctx, scheduler.NewCycle(t0, time.Hour))
	require.NoError(t, err)
	rep, err := f.cycle.Execute(ctx, scheduler.NewCycle(t0.Add(5*time.Minute), time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 0, rep.Alerts)
	assert.Len(t, f.alerts.alerts, 3)
	assert.Len(t, f.sink.profiles, 4, "snapshots are appended on every run")

	// next interval is a new cycle
	_, err = f.cycle.Execute(ctx, scheduler.NewCycle(t0.Add(time.Hour), time.Hour))
	require.NoError(t, err)
	assert.Len(t, f.alerts.alerts, 6)
}

func TestRiskCycleNoHistoryNoRatioAlerts(t *testing.T) {
	f := newRiskFixture(t)
	f.cycle.history = fakeHistory{}

	rep, err := f.cycle.Execute(context.Background(), scheduler.NewCycle(t0, time.Hour))
	require.NoError(t, err)
	assert.Empty(t, f.alerts.byType(models.AlertAssetRiskSpike))
	assert.Empty(t, f.alerts.byType(models.AlertMarketRiskSpike))
	assert.Len(t, f.alerts.byType(models.AlertPortfolioRiskBreach), 1)
	assert.Equal(t, 1, rep.Alerts)
}

func TestRiskCycleIsolatesSubjectFailures(t *testing.T) {
	f := newRiskFixture(t)
	f.market.failing["BAD"] = true

	rep, err := f.cycle.Execute(context.Background(), scheduler.NewCycle(t0, time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Assets)
	assert.Equal(t, 1, rep.Failed)
	assert.Len(t, rep.Profiles, 2)
}

func TestRiskCycleListingFailureIsFatal(t *testing.T) {
	f := newRiskFixture(t)
	f.market.listErr = errors.New("timeout")

	_, err := f.cycle.Execute(context.Background(), scheduler.NewCycle(t0, time.Hour))
	require.Error(t, err)
	assert.Empty(t, f.sink.markets)
}

func TestRiskCycleSinkFailureAllowsRetry(t *testing.T) {
	f := newRiskFixture(t)
	f.alerts.fail = true
	ctx := context.Background()

	rep, err := f.cycle.Execute(ctx, scheduler.NewCycle(t0, time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Alerts)

	f.alerts.fail = false
	rep, err = f.cycle.Execute(ctx, scheduler.NewCycle(t0.Add(time.Minute), time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Alerts)
}

func TestRiskCycleCancelledSubjects(t *testing.T) {
	f := newRiskFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := f.cycle.Execute(ctx, scheduler.NewCycle(t0, time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 4, rep.Cancelled)
	assert.Empty(t, rep.Profiles)
	require.Len(t, f.sink.markets, 1)
	assert.Equal(t, 0.0, f.sink.markets[0].VolatilityIndex)
}

func TestRiskCycleMissingLiquidityRaisesNoAssetAlert(t *testing.T) {
	f := newRiskFixture(t)
	f.market.liquidity = map[string][]models.LiquiditySample{}

	_, err := f.cycle.Execute(context.Background(), scheduler.NewCycle(t0, time.Hour))
	require.NoError(t, err)

	require.Len(t, f.sink.profiles, 2)
	for _, p := range f.sink.profiles {
		assert.Equal(t, models.StatusInsufficientData, p.Status, p.Symbol)
	}
	assert.Empty(t, f.alerts.byType(models.AlertAssetRiskSpike))
}

func TestMarketSnapshotIgnoresUnreliableVolatility(t *testing.T) {
	profiles := []models.RiskProfile{
		{Volatility: models.OK(0.4, 29)},
		{Volatility: models.OK(0.8, 29)},
		{Volatility: models.Insufficient(1)},
	}
	snap := MarketSnapshot("c1", profiles, t0)
	assert.Equal(t, 2, snap.Assets)
	assert.InDelta(t, 60.0, snap.VolatilityIndex, 1e-9)
}

func TestAssetProfile(t *testing.T) {
	m := newFakeMarket()
	m.addCloses("BTC", t0, 100, 105, 103, 108)
	a := NewRiskAssessor(m, DefaultRiskConfig())

	p, err := a.AssetProfile(context.Background(), "BTC", t0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.7537099374540033, p.Volatility.Value, 1e-9)
	assert.Equal(t, models.RiskExtreme, p.Liquidity.Level)
	assert.Equal(t, models.StatusInsufficientData, p.Liquidity.Status)
	assert.Equal(t, models.StatusInsufficientData, p.Status)
	assert.InDelta(t, 0.7*75.37099374540033+0.3*100, p.RiskScore, 1e-6)
	assert.Equal(t, models.BandVeryHigh, p.RiskBand)
	assert.NotEmpty(t, p.ID)

	m.addLiquidity("BTC", t0, 4, 50_000_000, 0.001)
	p, err = a.AssetProfile(context.Background(), "BTC", t0, 0)
	require.NoError(t, err)
	assert.Equal(t, models.RiskLow, p.Liquidity.Level)
	assert.Equal(t, models.StatusOK, p.Status)
	assert.InDelta(t, 0.7*75.37099374540033+0.3*10, p.RiskScore, 1e-6)

	_, err = a.AssetProfile(context.Background(), "NONE", t0, 0)
	assert.ErrorIs(t, err, models.ErrUnknownSubject)
}

func TestPortfolioSnapshot(t *testing.T) {
	m := newFakeMarket()
	m.addDailyTrades("u1", t0, 5, 1000, -10)
	a := NewRiskAssessor(m, DefaultRiskConfig())

	snap, positions, err := a.PortfolioSnapshot(context.Background(), "u1", t0, 0)
	require.NoError(t, err)
	assert.Len(t, positions, 5)
	assert.Equal(t, models.StatusLowSample, snap.Status)
	assert.InDelta(t, 100, snap.VaR95.Value.InexactFloat64(), 1e-9)
	require.NotNil(t, snap.Concentration)
	assert.InDelta(t, 1.0, snap.Concentration.HHI, 1e-12)

	_, _, err = a.PortfolioSnapshot(context.Background(), "ghost", t0, 0)
	assert.ErrorIs(t, err, models.ErrUnknownSubject)
}

func TestRiskQueryCachesResponses(t *testing.T) {
	m := newFakeMarket()
	m.addCloses("BTC", t0, 100, 105, 103, 108)
	m.addDailyTrades("u1", t0, 12, 500, 2)
	mc := cache.NewMemoryCache()
	defer mc.Close()

	q := NewRiskQuery(NewRiskAssessor(m, DefaultRiskConfig()), mc, time.Minute, nil)
	q.now = func() time.Time { return t0 }
	ctx := context.Background()

	first, err := q.AssetRisk(ctx, "BTC", 30)
	require.NoError(t, err)
	calls := m.calls
	second, err := q.AssetRisk(ctx, "BTC", 30)
	require.NoError(t, err)
	assert.Equal(t, calls, m.calls)
	assert.Equal(t, first.ID, second.ID)

	pr, err := q.PortfolioRisk(ctx, "u1", 90, true)
	require.NoError(t, err)
	require.NotNil(t, pr.Stress)
	assert.Equal(t, "crypto_winter", pr.Stress.Worst)
	assert.Len(t, pr.Stress.Scenarios, 5)
}

func TestRiskQuerySharedComputationOutlivesCaller(t *testing.T) {
	m := newFakeMarket()
	m.addCloses("BTC", t0, 100, 105, 103, 108)
	m.gate = make(chan struct{})
	mc := cache.NewMemoryCache()
	defer mc.Close()

	q := NewRiskQuery(NewRiskAssessor(m, DefaultRiskConfig()), mc, time.Minute, nil)
	q.now = func() time.Time { return t0 }

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := q.AssetRisk(ctx, "BTC", 30)
		firstErr <- err
	}()
	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(m.gate)
	p, err := q.AssetRisk(context.Background(), "BTC", 30)
	require.NoError(t, err)
	assert.Equal(t, "BTC", p.Symbol)
	assert.Equal(t, 1, m.calls)
}

func TestRiskQueryPortfolioCorrelationAndAdvice(t *testing.T) {
	m := newFakeMarket()
	closesA := []float64{100, 104, 101, 107, 103, 110, 106, 112, 108, 115, 111, 118}
	closesB := make([]float64, len(closesA))
	for i, c := range closesA {
		closesB[i] = c / 2
	}
	m.addCloses("AAA", t0, closesA...)
	m.addCloses("BBB", t0, closesB...)
	for i := 1; i <= 12; i++ {
		for _, sym := range []string{"AAA", "BBB"} {
			m.trades["u1"] = append(m.trades["u1"], models.Position{
				UserID:            "u1",
				Symbol:            sym,
				Amount:            decimal.NewFromInt(500),
				ProfitLossPercent: decimal.NewFromInt(1),
				TradeDate:         t0.AddDate(0, 0, -i),
			})
		}
	}

	q := NewRiskQuery(NewRiskAssessor(m, DefaultRiskConfig()), nil, 0, nil)
	q.now = func() time.Time { return t0 }

	pr, err := q.PortfolioRisk(context.Background(), "u1", 30, false)
	require.NoError(t, err)
	c := pr.Correlation
	require.Equal(t, models.StatusOK, c.Status)
	assert.Equal(t, []string{"AAA", "BBB"}, c.Symbols)
	assert.Equal(t, 11, c.Samples)
	assert.InDelta(t, 1.0, c.Average, 1e-9)
	assert.Equal(t, models.DiversificationVeryPoor, c.Level)
	require.Len(t, c.HighlyCorrelated, 1)
	assert.InDelta(t, 1.0, c.DiversificationRatio, 1e-9)
	assert.Contains(t, pr.Recommendations, "High correlation between assets, consider adding uncorrelated assets")
	assert.Contains(t, pr.Recommendations, "Consider reducing position sizes to lower overall portfolio risk")
}

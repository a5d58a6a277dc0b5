package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"RiskPulse/internal/domain/models"
)

var t0 = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeMarket struct {
	mu        sync.Mutex
	prices    map[string][]models.PricePoint
	liquidity map[string][]models.LiquiditySample
	trades    map[string][]models.Position
	failing   map[string]bool
	calls     int
	listErr   error
	// gate, when set, holds PriceHistory until it is closed.
	gate chan struct{}
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		prices:    map[string][]models.PricePoint{},
		liquidity: map[string][]models.LiquiditySample{},
		trades:    map[string][]models.Position{},
		failing:   map[string]bool{},
	}
}

func (f *fakeMarket) addCloses(symbol string, end time.Time, closes ...float64) {
	start := end.AddDate(0, 0, -len(closes))
	for i, c := range closes {
		f.prices[symbol] = append(f.prices[symbol], models.PricePoint{
			Symbol: symbol,
			Date:   start.AddDate(0, 0, i),
			Close:  decimal.NewFromFloat(c),
			Volume: decimal.NewFromInt(1000),
		})
	}
}

// addLiquidity records n hourly samples ending just before end.
func (f *fakeMarket) addLiquidity(symbol string, end time.Time, n int, volume, spread float64) {
	for i := 1; i <= n; i++ {
		f.liquidity[symbol] = append(f.liquidity[symbol], models.LiquiditySample{
			Symbol:    symbol,
			Timestamp: end.Add(-time.Duration(i) * time.Hour),
			Volume24h: decimal.NewFromFloat(volume),
			Spread:    spread,
		})
	}
}

func (f *fakeMarket) addDailyTrades(user string, end time.Time, n int, amount, pnl float64) {
	for i := 1; i <= n; i++ {
		f.trades[user] = append(f.trades[user], models.Position{
			UserID:            user,
			Symbol:            "BTC",
			Amount:            decimal.NewFromFloat(amount),
			ProfitLossPercent: decimal.NewFromFloat(pnl),
			TradeDate:         end.AddDate(0, 0, -i),
		})
	}
}

func (f *fakeMarket) PriceHistory(ctx context.Context, symbol string, from, to time.Time) ([]models.PricePoint, error) {
	if f.gate != nil {
		<-f.gate
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failing[symbol] {
		return nil, errors.New("clickhouse unavailable")
	}
	var out []models.PricePoint
	for _, p := range f.prices[symbol] {
		if !p.Date.Before(from) && p.Date.Before(to) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeMarket) LiquiditySamples(_ context.Context, symbol string, from, to time.Time) ([]models.LiquiditySample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.LiquiditySample
	for _, s := range f.liquidity[symbol] {
		if !s.Timestamp.Before(from) && s.Timestamp.Before(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeMarket) TradeHistory(_ context.Context, user string, from, to time.Time) ([]models.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	var out []models.Position
	for _, p := range f.trades[user] {
		if !p.TradeDate.Before(from) && p.TradeDate.Before(to) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeMarket) ActiveAssets(context.Context, time.Time, time.Time) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []string
	for s := range f.prices {
		out = append(out, s)
	}
	for s := range f.failing {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeMarket) ActiveUsers(context.Context, time.Time, time.Time) ([]string, error) {
	var out []string
	for u := range f.trades {
		out = append(out, u)
	}
	return out, nil
}

type fakeSink struct {
	mu         sync.Mutex
	profiles   []models.RiskProfile
	portfolios []models.PortfolioRiskSnapshot
	markets    []models.MarketRiskSnapshot
	sentiments []models.SentimentSnapshot
}

func (s *fakeSink) SaveRiskProfiles(_ context.Context, p []models.RiskProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles = append(s.profiles, p...)
	return nil
}

func (s *fakeSink) SavePortfolioSnapshots(_ context.Context, p []models.PortfolioRiskSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.portfolios = append(s.portfolios, p...)
	return nil
}

func (s *fakeSink) SaveMarketSnapshot(_ context.Context, m models.MarketRiskSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markets = append(s.markets, m)
	return nil
}

func (s *fakeSink) SaveSentimentSnapshots(_ context.Context, snaps []models.SentimentSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sentiments = append(s.sentiments, snaps...)
	return nil
}

type fakeHistory struct {
	riskAvg  map[string]float64
	indexAvg float64
	indexN   int
}

func (h fakeHistory) AverageRiskScore(_ context.Context, symbol string, _, _ time.Time) (float64, int, error) {
	avg, ok := h.riskAvg[symbol]
	if !ok {
		return 0, 0, nil
	}
	return avg, 3, nil
}

func (h fakeHistory) AverageVolatilityIndex(context.Context, time.Time, time.Time) (float64, int, error) {
	return h.indexAvg, h.indexN, nil
}

type alertRecorder struct {
	mu     sync.Mutex
	alerts []models.Alert
	fail   bool
}

func (r *alertRecorder) EmitAlert(_ context.Context, a models.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("broker down")
	}
	r.alerts = append(r.alerts, a)
	return nil
}

func (r *alertRecorder) byType(t models.AlertType) []models.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Alert
	for _, a := range r.alerts {
		if a.Type == t {
			out = append(out, a)
		}
	}
	return out
}

type nopMetrics struct{}

func (nopMetrics) RecordCycle(string, string, float64) {}
func (nopMetrics) RecordSubject(string, string) {}
func (nopMetrics) RecordAlert(string, string) {}
func (nopMetrics) RecordVolatilityIndex(float64) {}
func (nopMetrics) RecordMessageIngested(string) {}
func (nopMetrics) RecordError(string) {}
func (nopMetrics) RecordLatency(string, float64) {}

type memIngestor struct {
	prices    []models.PricePoint
	liquidity []models.LiquiditySample
	trades    []models.Position
	texts     []models.TextItem
	err       error
}

func (m *memIngestor) StorePrice(_ context.Context, p models.PricePoint) error {
	if m.err != nil {
		return m.err
	}
	m.prices = append(m.prices, p)
	return nil
}

func (m *memIngestor) StoreLiquidity(_ context.Context, s models.LiquiditySample) error {
	m.liquidity = append(m.liquidity, s)
	return nil
}

func (m *memIngestor) StoreTrade(_ context.Context, p models.Position) error {
	m.trades = append(m.trades, p)
	return nil
}

func (m *memIngestor) StoreText(_ context.Context, t models.TextItem) error {
	m.texts = append(m.texts, t)
	return nil
}

type fakeTexts struct {
	items map[string][]models.TextItem
}

func (f fakeTexts) TextItems(_ context.Context, symbol string, _, _ time.Time, limit int) ([]models.TextItem, error) {
	items := f.items[symbol]
	if len(items) > limit {
		items = items[len(items)-limit:]
	}
	return items, nil
}

func (f fakeTexts) ActiveTextSymbols(context.Context, time.Time, time.Time) ([]string, error) {
	var out []string
	for s := range f.items {
		out = append(out, s)
	}
	return out, nil
}

type staticLexicon struct {
	lex *models.KeywordLexicon
	err error
}

func (s staticLexicon) Load(context.Context) (*models.KeywordLexicon, error) { return s.lex, s.err }

type fakeFearGreed struct {
	reading models.FearGreedReading
	err     error
}

func (f fakeFearGreed) Latest(context.Context) (models.FearGreedReading, error) { return f.reading, f.err }

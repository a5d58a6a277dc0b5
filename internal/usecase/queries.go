package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"RiskPulse/internal/domain/models"
	domrepo "RiskPulse/internal/domain/repository"
	"RiskPulse/internal/services/risk"
	"RiskPulse/internal/services/sentiment"
	"RiskPulse/pkg/cache"
	applogger "RiskPulse/pkg/logger"
)

// RiskQuery serves on-demand risk requests with a response cache.
// Concurrent misses on one key share a single computation.
type RiskQuery struct {
	assessor  *RiskAssessor
	cache     cache.Service
	ttl       time.Duration
	scenarios []models.StressScenario
	l         *applogger.Logger
	now       func() time.Time
	timeout   time.Duration
	flight    singleflight.Group
}

// queryTimeout bounds one shared computation.
const queryTimeout = 30 * time.Second

func NewRiskQuery(assessor *RiskAssessor, c cache.Service, ttl time.Duration, l *applogger.Logger) *RiskQuery {
	if l == nil {
		l = applogger.Nop()
	}
	return &RiskQuery{
		assessor:  assessor,
		cache:     c,
		ttl:       ttl,
		scenarios: risk.DefaultScenarios(),
		l:         l,
		now:       time.Now,
		timeout:   queryTimeout,
	}
}

// PortfolioRisk is the API view of a portfolio: the snapshot, an optional
// stress report, the correlation of held assets and advice.
type PortfolioRisk struct {
	models.PortfolioRiskSnapshot
	Stress          *models.StressReport       `json:"stress_test,omitempty"`
	Correlation     models.CorrelationAnalysis `json:"correlation_analysis"`
	HighRiskAssets  []string                   `json:"high_risk_assets,omitempty"`
	Recommendations []string                   `json:"recommendations"`
}

func (q *RiskQuery) AssetRisk(ctx context.Context, symbol string, days int) (models.RiskProfile, error) {
	return cached(ctx, q, cache.Key("risk:asset", symbol, days), func(ctx context.Context) (models.RiskProfile, error) {
		return q.assessor.AssetProfile(ctx, symbol, q.now(), days)
	})
}

func (q *RiskQuery) PortfolioRisk(ctx context.Context, userID string, days int, withStress bool) (PortfolioRisk, error) {
	return cached(ctx, q, cache.Key("risk:portfolio", userID, days, withStress), func(ctx context.Context) (PortfolioRisk, error) {
		now := q.now()
		snap, positions, err := q.assessor.PortfolioSnapshot(ctx, userID, now, days)
		if err != nil {
			return PortfolioRisk{}, err
		}
		out := PortfolioRisk{PortfolioRiskSnapshot: snap}
		if withStress {
			rep := risk.StressTest(risk.HoldingsFromPositions(positions), q.scenarios)
			out.Stress = &rep
		}
		if out.Correlation, err = q.assessor.PortfolioCorrelation(ctx, positions, now, days); err != nil {
			return PortfolioRisk{}, err
		}
		if out.HighRiskAssets, err = q.assessor.HighRiskAssets(ctx, positions, now); err != nil {
			return PortfolioRisk{}, err
		}
		out.Recommendations = risk.Recommendations(risk.RecommendationInput{
			Concentration:  snap.Concentration,
			VaR95:          snap.VaR95,
			Correlation:    &out.Correlation,
			Stress:         out.Stress,
			HighRiskAssets: out.HighRiskAssets,
		})
		return out, nil
	})
}

func cached[T any](ctx context.Context, q *RiskQuery, key string, compute func(context.Context) (T, error)) (T, error) {
	var v T
	if q.load(ctx, key, &v) {
		return v, nil
	}
	// The computation is shared by every caller of key, so it must outlive
	// the caller that happened to start it.
	ch := q.flight.DoChan(key, func() (interface{}, error) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), q.timeout)
		defer cancel()
		v, err := compute(cctx)
		if err != nil {
			return nil, err
		}
		q.store(cctx, key, v)
		return v, nil
	})
	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		if res.Shared {
			q.l.Debug("risk query shared", applogger.String("key", key))
		}
		return res.Val.(T), nil
	}
}

func (q *RiskQuery) load(ctx context.Context, key string, dest interface{}) bool {
	if q.cache == nil {
		return false
	}
	err := q.cache.Get(ctx, key, dest)
	if err == nil {
		return true
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		q.l.Warn("cache get failed", applogger.String("key", key), applogger.Error(err))
	}
	return false
}

func (q *RiskQuery) store(ctx context.Context, key string, v interface{}) {
	if q.cache == nil || q.ttl <= 0 {
		return
	}
	if err := q.cache.Set(ctx, key, v, q.ttl); err != nil {
		q.l.Warn("cache set failed", applogger.String("key", key), applogger.Error(err))
	}
}

// SentimentQuery scores ad-hoc text and aggregates stored items.
type SentimentQuery struct {
	texts  domrepo.TextSource
	holder *sentiment.LexiconHolder
	scorer *sentiment.Scorer
	market func() *MarketSentiment
}

func NewSentimentQuery(texts domrepo.TextSource, holder *sentiment.LexiconHolder, scorer *sentiment.Scorer, cycle *SentimentCycle) *SentimentQuery {
	q := &SentimentQuery{texts: texts, holder: holder, scorer: scorer}
	if cycle != nil {
		q.market = cycle.Market
	}
	return q
}

// ScoreText scores text with the current lexicon. matcher overrides the
// configured matcher when set.
func (q *SentimentQuery) ScoreText(text string, engagement float64, matcher string) (models.SentimentResult, error) {
	scorer := q.scorer
	if matcher != "" && matcher != scorer.Matcher().Name() {
		m, err := sentiment.NewMatcher(matcher)
		if err != nil {
			return models.SentimentResult{}, err
		}
		scorer = sentiment.NewScorer(m)
	}
	return scorer.Score(text, q.holder.Current(), engagement), nil
}

// SymbolSentiment aggregates stored items of symbol in [from, to).
func (q *SentimentQuery) SymbolSentiment(ctx context.Context, symbol string, from, to time.Time, limit int) (models.SentimentSnapshot, error) {
	items, err := q.texts.TextItems(ctx, symbol, from, to, limit)
	if err != nil {
		return models.SentimentSnapshot{}, fmt.Errorf("text items %s: %w", symbol, err)
	}
	if len(items) == 0 {
		return models.SentimentSnapshot{}, fmt.Errorf("symbol %s: %w", symbol, models.ErrUnknownSubject)
	}
	lex := q.holder.Current()
	scored := make([]sentiment.Scored, len(items))
	for i, it := range items {
		scored[i] = sentiment.Scored{Item: it, Result: q.scorer.ScoreItem(it, lex)}
	}
	return sentiment.Aggregate(symbol, scored, from, to), nil
}

// Market returns the latest market blend, or nil before the first cycle.
func (q *SentimentQuery) Market() *MarketSentiment {
	if q.market == nil {
		return nil
	}
	return q.market()
}

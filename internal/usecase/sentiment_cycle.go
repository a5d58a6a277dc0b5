package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"RiskPulse/internal/domain/models"
	domrepo "RiskPulse/internal/domain/repository"
	"RiskPulse/internal/domain/service"
	"RiskPulse/internal/scheduler"
	"RiskPulse/internal/services/sentiment"
	"RiskPulse/pkg/errtrack"
	applogger "RiskPulse/pkg/logger"
)

const SentimentJobName = "sentiment_cycle"

type SentimentConfig struct {
	Window        time.Duration
	ItemLimit     int
	Workers       int
	AlertMinItems int
}

func DefaultSentimentConfig() SentimentConfig {
	return SentimentConfig{Window: time.Hour, ItemLimit: 5000, Workers: 8, AlertMinItems: 5}
}

// MarketSentiment is the last source-weighted blend of a sentiment cycle.
type MarketSentiment struct {
	CycleID    string                   `json:"cycle_id"`
	Blend      models.BlendedSentiment  `json:"blend"`
	FearGreed  *models.FearGreedReading `json:"fear_greed_index,omitempty"`
	ComputedAt time.Time                `json:"computed_at"`
}

// SentimentCycle scores recent text items per symbol, stores snapshots and
// raises alerts on extreme readings.
type SentimentCycle struct {
	*scheduler.BaseJob

	cfg       SentimentConfig
	texts     domrepo.TextSource
	lexicons  domrepo.LexiconSource
	holder    *sentiment.LexiconHolder
	scorer    *sentiment.Scorer
	sink      domrepo.SnapshotSink
	alerts    *AlertEmitter
	fearGreed service.FearGreedSource
	metrics   domrepo.Metrics
	tracker   errtrack.Tracker
	l         *applogger.Logger

	market atomic.Pointer[MarketSentiment]
}

type SentimentCycleDeps struct {
	Config    SentimentConfig
	Texts     domrepo.TextSource
	Lexicons  domrepo.LexiconSource
	Holder    *sentiment.LexiconHolder
	Scorer    *sentiment.Scorer
	Sink      domrepo.SnapshotSink
	Alerts    *AlertEmitter
	FearGreed service.FearGreedSource // optional
	Metrics   domrepo.Metrics
	Tracker   errtrack.Tracker
	Logger    *applogger.Logger
}

func NewSentimentCycle(base *scheduler.BaseJob, d SentimentCycleDeps) *SentimentCycle {
	l := d.Logger
	if l == nil {
		l = applogger.Nop()
	}
	tr := d.Tracker
	if tr == nil {
		tr = errtrack.Nop()
	}
	return &SentimentCycle{
		BaseJob:   base,
		cfg:       d.Config,
		texts:     d.Texts,
		lexicons:  d.Lexicons,
		holder:    d.Holder,
		scorer:    d.Scorer,
		sink:      d.Sink,
		alerts:    d.Alerts,
		fearGreed: d.FearGreed,
		metrics:   d.Metrics,
		tracker:   tr,
		l:         l.With(applogger.String("job", base.Name())),
	}
}

var _ scheduler.Job = (*SentimentCycle)(nil)

// Market returns the blend of the last finished cycle, or nil.
func (s *SentimentCycle) Market() *MarketSentiment { return s.market.Load() }

type SentimentCycleReport struct {
	CycleID   string
	Symbols   int
	Failed    int
	Cancelled int
	Alerts    int
	Snapshots []models.SentimentSnapshot
}

func (s *SentimentCycle) Run(ctx context.Context, c scheduler.Cycle) error {
	_, err := s.Execute(ctx, c)
	return err
}

type symbolResult struct {
	snap   models.SentimentSnapshot
	scored []sentiment.Scored
}

func (s *SentimentCycle) Execute(ctx context.Context, c scheduler.Cycle) (*SentimentCycleReport, error) {
	lex, err := s.lexicons.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load lexicon: %w", err)
	}
	if err := s.holder.Store(lex); err != nil {
		return nil, fmt.Errorf("load lexicon: %w", err)
	}
	// every symbol of this cycle scores against the same snapshot
	lex = s.holder.Current()

	to := c.Start
	from := to.Add(-s.cfg.Window)
	symbols, err := s.texts.ActiveTextSymbols(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list text symbols: %w", err)
	}
	rep := &SentimentCycleReport{CycleID: c.ID, Symbols: len(symbols)}

	outcomes := scheduler.FanOut(ctx, symbols, s.cfg.Workers, func(ctx context.Context, symbol string) (symbolResult, error) {
		items, err := s.texts.TextItems(ctx, symbol, from, to, s.cfg.ItemLimit)
		if err != nil {
			return symbolResult{}, fmt.Errorf("text items %s: %w", symbol, err)
		}
		scored := make([]sentiment.Scored, len(items))
		for i, it := range items {
			scored[i] = sentiment.Scored{Item: it, Result: s.scorer.ScoreItem(it, lex)}
		}
		snap := sentiment.Aggregate(symbol, scored, from, to)
		snap.CycleID = c.ID
		snap.ComputedAt = c.Start
		return symbolResult{snap: snap, scored: scored}, nil
	})

	var all []sentiment.Scored
	for _, o := range outcomes {
		switch {
		case o.Cancelled:
			rep.Cancelled++
			s.metrics.RecordSubject(s.Name(), "cancelled")
		case o.Err != nil:
			rep.Failed++
			s.metrics.RecordSubject(s.Name(), "failed")
			s.l.Error("symbol failed", applogger.String("cycle", c.ID), applogger.String("symbol", o.Subject), applogger.Error(o.Err))
			s.tracker.CaptureError(ctx, o.Err, map[string]string{"job": s.Name(), "cycle": c.ID, "subject": o.Subject})
		default:
			s.metrics.RecordSubject(s.Name(), "ok")
			rep.Snapshots = append(rep.Snapshots, o.Value.snap)
			all = append(all, o.Value.scored...)
		}
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	var errs []error
	if len(rep.Snapshots) > 0 {
		if err := s.sink.SaveSentimentSnapshots(saveCtx, rep.Snapshots); err != nil {
			errs = append(errs, fmt.Errorf("save sentiment snapshots: %w", err))
		}
	}

	ttl := 2 * c.Interval
	for _, snap := range rep.Snapshots {
		if !isExtreme(snap.FearGreed) || snap.Status != models.StatusOK || snap.Items < s.cfg.AlertMinItems {
			continue
		}
		ok, err := s.alerts.Emit(saveCtx, c.ID, ttl, AlertInput{
			Type:    models.AlertSentiment,
			Subject: snap.Symbol,
			Level:   models.LevelHigh,
			Message: fmt.Sprintf("%s sentiment is %s (mean %.2f over %d items)", snap.Symbol, snap.FearGreed, snap.MeanScore, snap.Items),
			Metric:  snap.MeanScore,
		})
		if err != nil {
			s.l.Error("alert failed", applogger.String("symbol", snap.Symbol), applogger.Error(err))
			s.tracker.CaptureError(ctx, err, map[string]string{"job": s.Name(), "cycle": c.ID, "subject": snap.Symbol})
			continue
		}
		if ok {
			rep.Alerts++
		}
	}

	s.blend(saveCtx, c, all)

	s.l.Info("sentiment cycle finished",
		applogger.String("cycle", c.ID),
		applogger.String("lexicon_version", lex.Version),
		applogger.Int("symbols", rep.Symbols),
		applogger.Int("failed", rep.Failed),
		applogger.Int("cancelled", rep.Cancelled),
		applogger.Int("alerts", rep.Alerts),
	)
	return rep, errors.Join(errs...)
}

func (s *SentimentCycle) blend(ctx context.Context, c scheduler.Cycle, scored []sentiment.Scored) {
	sources := sentiment.SourceMeans(scored)
	ms := &MarketSentiment{CycleID: c.ID, ComputedAt: c.Start}
	if s.fearGreed != nil {
		reading, err := s.fearGreed.Latest(ctx)
		if err != nil {
			s.metrics.RecordError("fear_greed_fetch")
			s.l.Warn("fear and greed fetch failed", applogger.Error(err))
		} else {
			sources["fear_greed"] = sentiment.FearGreedScore(reading)
			ms.FearGreed = &reading
		}
	}
	ms.Blend = sentiment.BlendSources(sources, nil)
	s.market.Store(ms)
}

func isExtreme(fg models.FearGreed) bool {
	return fg == models.ExtremeFear || fg == models.ExtremeGreed
}

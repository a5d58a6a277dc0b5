package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"RiskPulse/internal/domain/models"
	domrepo "RiskPulse/internal/domain/repository"
	"RiskPulse/internal/scheduler"
	"RiskPulse/pkg/errtrack"
	applogger "RiskPulse/pkg/logger"
)

const RiskJobName = "risk_cycle"

// RiskCycle is the hourly job: it profiles active assets and portfolios,
// stores the snapshots and raises threshold alerts.
type RiskCycle struct {
	*scheduler.BaseJob

	assessor *RiskAssessor
	data     domrepo.MarketDataSource
	sink     domrepo.SnapshotSink
	history  domrepo.HistoryStore
	alerts   *AlertEmitter
	metrics  domrepo.Metrics
	tracker  errtrack.Tracker
	l        *applogger.Logger
}

type RiskCycleDeps struct {
	Assessor *RiskAssessor
	Data     domrepo.MarketDataSource
	Sink     domrepo.SnapshotSink
	History  domrepo.HistoryStore
	Alerts   *AlertEmitter
	Metrics  domrepo.Metrics
	Tracker  errtrack.Tracker
	Logger   *applogger.Logger
}

func NewRiskCycle(base *scheduler.BaseJob, d RiskCycleDeps) *RiskCycle {
	l := d.Logger
	if l == nil {
		l = applogger.Nop()
	}
	tr := d.Tracker
	if tr == nil {
		tr = errtrack.Nop()
	}
	return &RiskCycle{
		BaseJob:  base,
		assessor: d.Assessor,
		data:     d.Data,
		sink:     d.Sink,
		history:  d.History,
		alerts:   d.Alerts,
		metrics:  d.Metrics,
		tracker:  tr,
		l:        l.With(applogger.String("job", base.Name())),
	}
}

var _ scheduler.Job = (*RiskCycle)(nil)

// RiskCycleReport summarizes one run.
type RiskCycleReport struct {
	CycleID    string
	Assets     int
	Users      int
	Failed     int
	Cancelled  int
	Alerts     int
	Market     models.MarketRiskSnapshot
	Profiles   []models.RiskProfile
	Portfolios []models.PortfolioRiskSnapshot
}

func (r *RiskCycle) Run(ctx context.Context, c scheduler.Cycle) error {
	_, err := r.Execute(ctx, c)
	return err
}

// Execute runs one cycle and returns what it computed. Listing failures
// abort the cycle; per-subject failures are logged and skipped.
func (r *RiskCycle) Execute(ctx context.Context, c scheduler.Cycle) (*RiskCycleReport, error) {
	cfg := r.assessor.Config()
	asOf := c.Start
	from := asOf.Add(-c.Interval)

	assets, err := r.data.ActiveAssets(ctx, from, asOf)
	if err != nil {
		return nil, fmt.Errorf("list active assets: %w", err)
	}
	users, err := r.data.ActiveUsers(ctx, from, asOf)
	if err != nil {
		return nil, fmt.Errorf("list active users: %w", err)
	}
	rep := &RiskCycleReport{CycleID: c.ID, Assets: len(assets), Users: len(users)}

	profileOut := scheduler.FanOut(ctx, assets, cfg.Workers, func(ctx context.Context, symbol string) (models.RiskProfile, error) {
		return r.assessor.AssetProfile(ctx, symbol, asOf, 0)
	})
	for _, o := range profileOut {
		if !r.collect(ctx, c, "asset", o.Subject, o.Err, o.Cancelled, rep) {
			continue
		}
		p := o.Value
		p.CycleID = c.ID
		rep.Profiles = append(rep.Profiles, p)
	}

	portfolioOut := scheduler.FanOut(ctx, users, cfg.Workers, func(ctx context.Context, userID string) (models.PortfolioRiskSnapshot, error) {
		snap, _, err := r.assessor.PortfolioSnapshot(ctx, userID, asOf, 0)
		return snap, err
	})
	for _, o := range portfolioOut {
		if !r.collect(ctx, c, "portfolio", o.Subject, o.Err, o.Cancelled, rep) {
			continue
		}
		s := o.Value
		s.CycleID = c.ID
		rep.Portfolios = append(rep.Portfolios, s)
	}

	rep.Market = MarketSnapshot(c.ID, rep.Profiles, asOf)
	r.metrics.RecordVolatilityIndex(rep.Market.VolatilityIndex)

	// persistence must outlive a cycle deadline that hit during fan-out
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	var errs []error
	if len(rep.Profiles) > 0 {
		if err := r.sink.SaveRiskProfiles(saveCtx, rep.Profiles); err != nil {
			errs = append(errs, fmt.Errorf("save risk profiles: %w", err))
		}
	}
	if len(rep.Portfolios) > 0 {
		if err := r.sink.SavePortfolioSnapshots(saveCtx, rep.Portfolios); err != nil {
			errs = append(errs, fmt.Errorf("save portfolio snapshots: %w", err))
		}
	}
	if err := r.sink.SaveMarketSnapshot(saveCtx, rep.Market); err != nil {
		errs = append(errs, fmt.Errorf("save market snapshot: %w", err))
	}

	rep.Alerts = r.evaluate(saveCtx, c, rep)

	r.l.Info("risk cycle finished",
		applogger.String("cycle", c.ID),
		applogger.Int("assets", rep.Assets),
		applogger.Int("users", rep.Users),
		applogger.Int("failed", rep.Failed),
		applogger.Int("cancelled", rep.Cancelled),
		applogger.Int("alerts", rep.Alerts),
		applogger.Float64("volatility_index", rep.Market.VolatilityIndex),
	)
	return rep, errors.Join(errs...)
}

// collect records the per-subject outcome and reports whether it succeeded.
func (r *RiskCycle) collect(ctx context.Context, c scheduler.Cycle, kind, subject string, err error, cancelled bool, rep *RiskCycleReport) bool {
	switch {
	case cancelled:
		rep.Cancelled++
		r.metrics.RecordSubject(r.Name(), "cancelled")
		return false
	case err != nil:
		rep.Failed++
		r.metrics.RecordSubject(r.Name(), "failed")
		if errors.Is(err, models.ErrUnknownSubject) {
			r.l.Warn("subject has no data", applogger.String("kind", kind), applogger.String("subject", subject))
			return false
		}
		r.l.Error("subject failed",
			applogger.String("cycle", c.ID),
			applogger.String("kind", kind),
			applogger.String("subject", subject),
			applogger.Error(err),
		)
		r.tracker.CaptureError(ctx, err, map[string]string{"job": r.Name(), "cycle": c.ID, "subject": subject})
		return false
	default:
		r.metrics.RecordSubject(r.Name(), "ok")
		return true
	}
}

// MarketSnapshot averages the annualized volatility of assets whose
// volatility status is ok and scales it to an index (x100).
func MarketSnapshot(cycleID string, profiles []models.RiskProfile, at time.Time) models.MarketRiskSnapshot {
	snap := models.MarketRiskSnapshot{CycleID: cycleID, ComputedAt: at.UTC()}
	var sum float64
	for _, p := range profiles {
		if p.Volatility.Status != models.StatusOK {
			continue
		}
		sum += p.Volatility.Value
		snap.Assets++
	}
	if snap.Assets > 0 {
		snap.VolatilityIndex = sum / float64(snap.Assets) * 100
	}
	return snap
}

func (r *RiskCycle) evaluate(ctx context.Context, c scheduler.Cycle, rep *RiskCycleReport) int {
	cfg := r.assessor.Config()
	ttl := 2 * c.Interval
	emitted := 0
	emit := func(in AlertInput) {
		ok, err := r.alerts.Emit(ctx, c.ID, ttl, in)
		if err != nil {
			r.l.Error("alert failed", applogger.String("subject", in.Subject), applogger.Error(err))
			r.tracker.CaptureError(ctx, err, map[string]string{"job": r.Name(), "cycle": c.ID, "subject": in.Subject})
			return
		}
		if ok {
			emitted++
		}
	}

	for _, p := range rep.Profiles {
		if !p.Status.Reliable() || p.RiskScore <= cfg.AssetScore {
			continue
		}
		avg, n, err := r.history.AverageRiskScore(ctx, p.Symbol, c.Boundary.Add(-cfg.AssetTrailing), c.Boundary)
		if err != nil {
			r.l.Warn("trailing risk score", applogger.String("symbol", p.Symbol), applogger.Error(err))
			continue
		}
		if n == 0 || p.RiskScore <= cfg.AssetRatio*avg {
			continue
		}
		emit(AlertInput{
			Type:    models.AlertAssetRiskSpike,
			Subject: p.Symbol,
			Level:   assetAlertLevel(p.RiskScore),
			Message: fmt.Sprintf("%s risk score %.1f exceeds %.1fx trailing average %.1f", p.Symbol, p.RiskScore, cfg.AssetRatio, avg),
			Metric:  p.RiskScore,
		})
	}

	for _, s := range rep.Portfolios {
		if !s.VaR95.Status.Reliable() || !s.PortfolioValue.IsPositive() {
			continue
		}
		ratio := s.VaR95.Value.Div(s.PortfolioValue).InexactFloat64()
		if ratio <= cfg.PortfolioVaRRatio {
			continue
		}
		emit(AlertInput{
			Type:    models.AlertPortfolioRiskBreach,
			Subject: s.UserID,
			Level:   portfolioAlertLevel(ratio),
			Message: fmt.Sprintf("VaR95 is %.1f%% of portfolio value", ratio*100),
			Metric:  ratio,
		})
	}

	m := rep.Market
	if m.Assets > 0 && m.VolatilityIndex > cfg.MarketIndex {
		avg, n, err := r.history.AverageVolatilityIndex(ctx, c.Boundary.Add(-cfg.MarketTrailing), c.Boundary)
		switch {
		case err != nil:
			r.l.Warn("trailing volatility index", applogger.Error(err))
		case n > 0 && m.VolatilityIndex > cfg.MarketRatio*avg:
			emit(AlertInput{
				Type:    models.AlertMarketRiskSpike,
				Subject: models.MarketSubject,
				Level:   marketAlertLevel(m.VolatilityIndex),
				Message: fmt.Sprintf("market volatility index %.1f exceeds %.1fx trailing average %.1f", m.VolatilityIndex, cfg.MarketRatio, avg),
				Metric:  m.VolatilityIndex,
			})
		}
	}
	return emitted
}

package repository

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"RiskPulse/internal/domain/models"
	domrepo "RiskPulse/internal/domain/repository"
	pkgch "RiskPulse/pkg/clickhouse"
	applogger "RiskPulse/pkg/logger"
)

// CHSnapshots appends derived snapshots and alerts, and answers history queries over them.
type CHSnapshots struct {
	ch *pkgch.Client
	db string
	l  *applogger.Logger
}

func NewCHSnapshots(ch *pkgch.Client, database string, l *applogger.Logger) *CHSnapshots {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHSnapshots{ch: ch, db: database, l: l}
}

var (
	_ domrepo.SnapshotSink = (*CHSnapshots)(nil)
	_ domrepo.AlertSink    = (*CHSnapshots)(nil)
	_ domrepo.AlertReader  = (*CHSnapshots)(nil)
	_ domrepo.HistoryStore = (*CHSnapshots)(nil)
)

var (
	riskProfileColumns = []string{
		"id", "cycle_id", "symbol", "volatility", "volatility_status", "avg_volume", "avg_spread",
		"liquidity_level", "max_drawdown", "sharpe", "sortino", "risk_score", "risk_band", "status", "computed_at",
	}
	portfolioColumns = []string{
		"id", "cycle_id", "user_id", "portfolio_value", "var_95", "es_95", "var_99", "var_days", "var_status",
		"hhi", "top_asset_weight", "diversification", "concentration_level", "status", "computed_at",
	}
	sentimentColumns = []string{
		"cycle_id", "symbol", "items", "matched", "mean_score", "fear_greed", "distribution", "trend",
		"lexicon_version", "status", "window_from", "window_to", "computed_at",
	}
	alertColumns = []string{
		"id", "cycle_id", "alert_type", "subject_id", "level", "message", "metric_value", "created_at",
	}
)

func insertQuery(table string, columns []string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", "))
}

func riskProfileRow(p models.RiskProfile) []any {
	return []any{
		p.ID, p.CycleID, p.Symbol, p.Volatility.Value, string(p.Volatility.Status),
		p.Liquidity.AvgVolume, p.Liquidity.AvgSpread, string(p.Liquidity.Level),
		finite(p.Performance.MaxDrawdown), finite(p.Performance.Sharpe), finite(p.Performance.Sortino),
		p.RiskScore, string(p.RiskBand), string(p.Status), p.ComputedAt.UTC(),
	}
}

func portfolioRow(s models.PortfolioRiskSnapshot) []any {
	var hhi, top, div float64
	level := ""
	if c := s.Concentration; c != nil {
		hhi, top, div, level = c.HHI, c.TopAssetWeight, c.Diversification.Value, string(c.Level)
	}
	return []any{
		s.ID, s.CycleID, s.UserID, s.PortfolioValue, s.VaR95.Value, s.VaR95.ExpectedShortfall, s.VaR99.Value,
		uint32(s.VaR95.Days), string(s.VaR95.Status), hhi, top, div, level, string(s.Status), s.ComputedAt.UTC(),
	}
}

func sentimentRow(s models.SentimentSnapshot) []any {
	dist := make(map[string]float64, len(s.Distribution))
	for k, v := range s.Distribution {
		dist[string(k)] = v
	}
	return []any{
		s.CycleID, s.Symbol, uint32(s.Items), uint32(s.Matched), s.MeanScore, string(s.FearGreed), dist,
		string(s.Trend), s.LexiconVersion, string(s.Status), s.From.UTC(), s.To.UTC(), s.ComputedAt.UTC(),
	}
}

func alertRow(a models.Alert) []any {
	return []any{
		a.ID, a.CycleID, string(a.Type), a.SubjectID, string(a.Level), a.Message, a.MetricValue, a.CreatedAt.UTC(),
	}
}

// finite maps NaN and Inf to 0.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func (s *CHSnapshots) insert(ctx context.Context, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	start := time.Now()
	if err := s.ch.InsertBatch(ctx, insertQuery(s.db+"."+table, columns), rows); err != nil {
		s.l.Error("clickhouse batch insert error",
			applogger.String("table", table),
			applogger.Int("rows", len(rows)),
			applogger.Error(err),
		)
		return fmt.Errorf("insert %s: %w", table, err)
	}
	s.l.Debug("clickhouse batch insert ok",
		applogger.String("table", table),
		applogger.Int("rows", len(rows)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func (s *CHSnapshots) SaveRiskProfiles(ctx context.Context, profiles []models.RiskProfile) error {
	rows := make([][]any, 0, len(profiles))
	for _, p := range profiles {
		rows = append(rows, riskProfileRow(p))
	}
	return s.insert(ctx, "risk_profiles", riskProfileColumns, rows)
}

func (s *CHSnapshots) SavePortfolioSnapshots(ctx context.Context, snaps []models.PortfolioRiskSnapshot) error {
	rows := make([][]any, 0, len(snaps))
	for _, sn := range snaps {
		rows = append(rows, portfolioRow(sn))
	}
	return s.insert(ctx, "portfolio_risk", portfolioColumns, rows)
}

func (s *CHSnapshots) SaveMarketSnapshot(ctx context.Context, snap models.MarketRiskSnapshot) error {
	return s.insert(ctx, "market_risk", []string{"cycle_id", "volatility_index", "assets", "computed_at"},
		[][]any{{snap.CycleID, snap.VolatilityIndex, uint32(snap.Assets), snap.ComputedAt.UTC()}})
}

func (s *CHSnapshots) SaveSentimentSnapshots(ctx context.Context, snaps []models.SentimentSnapshot) error {
	rows := make([][]any, 0, len(snaps))
	for _, sn := range snaps {
		rows = append(rows, sentimentRow(sn))
	}
	return s.insert(ctx, "sentiment_snapshots", sentimentColumns, rows)
}

func (s *CHSnapshots) EmitAlert(ctx context.Context, a models.Alert) error {
	return s.insert(ctx, "alerts", alertColumns, [][]any{alertRow(a)})
}

// RecentAlerts lists the newest alerts, optionally filtered by type.
func (s *CHSnapshots) RecentAlerts(ctx context.Context, alertType string, limit int) ([]models.Alert, error) {
	q := fmt.Sprintf("SELECT %s FROM %s.alerts", strings.Join(alertColumns, ", "), s.db)
	args := []any{}
	if alertType != "" {
		q += " WHERE alert_type = ?"
		args = append(args, alertType)
	}
	q += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.ch.DB().QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("clickhouse recent_alerts query error", applogger.Error(err))
		return nil, fmt.Errorf("recent alerts: %w", err)
	}
	defer rows.Close()

	out := make([]models.Alert, 0, limit)
	for rows.Next() {
		var (
			a          models.Alert
			typ, level string
			metric     decimal.Decimal
		)
		if err := rows.Scan(&a.ID, &a.CycleID, &typ, &a.SubjectID, &level, &a.Message, &metric, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.Type, a.Level, a.MetricValue = models.AlertType(typ), models.AlertLevel(level), metric
		out = append(out, a)
	}
	return out, rows.Err()
}

// AverageRiskScore averages stored scores of reliable profiles in [from, to).
func (s *CHSnapshots) AverageRiskScore(ctx context.Context, symbol string, from, to time.Time) (float64, int, error) {
	q := fmt.Sprintf(`
		SELECT avg(risk_score), count()
		FROM %s.risk_profiles
		WHERE symbol = ? AND computed_at >= ? AND computed_at < ? AND status IN ('ok', 'low_sample')`, s.db)
	return s.average(ctx, "avg_risk_score", q, symbol, from, to)
}

func (s *CHSnapshots) AverageVolatilityIndex(ctx context.Context, from, to time.Time) (float64, int, error) {
	q := fmt.Sprintf(`
		SELECT avg(volatility_index), count()
		FROM %s.market_risk
		WHERE computed_at >= ? AND computed_at < ? AND assets > 0`, s.db)
	return s.average(ctx, "avg_volatility_index", q, from, to)
}

func (s *CHSnapshots) average(ctx context.Context, op, q string, args ...any) (float64, int, error) {
	var (
		avg float64
		n   uint64
	)
	if err := s.ch.DB().QueryRowContext(ctx, q, args...).Scan(&avg, &n); err != nil {
		s.l.Error("clickhouse history query error", applogger.String("op", op), applogger.Error(err))
		return 0, 0, fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 || math.IsNaN(avg) {
		return 0, 0, nil
	}
	return avg, int(n), nil
}

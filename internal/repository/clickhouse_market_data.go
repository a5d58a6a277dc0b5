package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"RiskPulse/internal/domain/models"
	domrepo "RiskPulse/internal/domain/repository"
	pkgch "RiskPulse/pkg/clickhouse"
	applogger "RiskPulse/pkg/logger"
)

// CHMarketData reads and writes the feed tables in ClickHouse.
type CHMarketData struct {
	ch *pkgch.Client
	db string
	l  *applogger.Logger
}

func NewCHMarketData(ch *pkgch.Client, database string, l *applogger.Logger) *CHMarketData {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHMarketData{ch: ch, db: database, l: l}
}

var (
	_ domrepo.MarketDataSource = (*CHMarketData)(nil)
	_ domrepo.TextSource       = (*CHMarketData)(nil)
	_ domrepo.Ingestor         = (*CHMarketData)(nil)
)

func (s *CHMarketData) table(name string) string { return s.db + "." + name }

func (s *CHMarketData) query(ctx context.Context, op string, q string, args ...any) (*sql.Rows, error) {
	rows, err := s.ch.DB().QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("clickhouse query error", applogger.String("op", op), applogger.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rows, nil
}

func (s *CHMarketData) done(op string, start time.Time, n int, fields ...applogger.Field) {
	fields = append(fields,
		applogger.String("op", op),
		applogger.Int("rows", n),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	s.l.Debug("clickhouse query ok", fields...)
}

// PriceHistory returns one close per UTC day: the last tick of that day.
func (s *CHMarketData) PriceHistory(ctx context.Context, symbol string, from, to time.Time) ([]models.PricePoint, error) {
	start := time.Now()
	q := fmt.Sprintf(`
		SELECT toStartOfDay(ts) AS day, argMax(close, ts), argMax(volume, ts)
		FROM %s
		WHERE symbol = ? AND ts >= ? AND ts <= ?
		GROUP BY day
		ORDER BY day ASC`, s.table("price_points"))
	rows, err := s.query(ctx, "price_history", q, symbol, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.PricePoint, 0, 128)
	for rows.Next() {
		p := models.PricePoint{Symbol: symbol}
		if err := rows.Scan(&p.Date, &p.Close, &p.Volume); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		p.Date = p.Date.UTC()
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("price rows: %w", err)
	}
	s.done("price_history", start, len(out), applogger.String("symbol", symbol))
	return out, nil
}

func (s *CHMarketData) LiquiditySamples(ctx context.Context, symbol string, from, to time.Time) ([]models.LiquiditySample, error) {
	start := time.Now()
	q := fmt.Sprintf(`
		SELECT ts, volume_24h, spread
		FROM %s
		WHERE symbol = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC`, s.table("liquidity_samples"))
	rows, err := s.query(ctx, "liquidity_samples", q, symbol, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.LiquiditySample
	for rows.Next() {
		ls := models.LiquiditySample{Symbol: symbol}
		if err := rows.Scan(&ls.Timestamp, &ls.Volume24h, &ls.Spread); err != nil {
			return nil, fmt.Errorf("scan liquidity: %w", err)
		}
		out = append(out, ls)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("liquidity rows: %w", err)
	}
	s.done("liquidity_samples", start, len(out), applogger.String("symbol", symbol))
	return out, nil
}

func (s *CHMarketData) TradeHistory(ctx context.Context, userID string, from, to time.Time) ([]models.Position, error) {
	start := time.Now()
	q := fmt.Sprintf(`
		SELECT symbol, amount, pnl_percent, sector, trade_date
		FROM %s
		WHERE user_id = ? AND trade_date >= ? AND trade_date <= ?
		ORDER BY trade_date ASC`, s.table("trades"))
	rows, err := s.query(ctx, "trade_history", q, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Position
	for rows.Next() {
		p := models.Position{UserID: userID}
		if err := rows.Scan(&p.Symbol, &p.Amount, &p.ProfitLossPercent, &p.Sector, &p.TradeDate); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("trade rows: %w", err)
	}
	s.done("trade_history", start, len(out), applogger.String("user_id", userID))
	return out, nil
}

func (s *CHMarketData) ActiveAssets(ctx context.Context, since, until time.Time) ([]string, error) {
	q := fmt.Sprintf("SELECT DISTINCT symbol FROM %s WHERE ts >= ? AND ts < ? ORDER BY symbol", s.table("price_points"))
	return s.distinct(ctx, "active_assets", q, since, until)
}

func (s *CHMarketData) ActiveUsers(ctx context.Context, since, until time.Time) ([]string, error) {
	q := fmt.Sprintf("SELECT DISTINCT user_id FROM %s WHERE trade_date >= ? AND trade_date < ? ORDER BY user_id", s.table("trades"))
	return s.distinct(ctx, "active_users", q, since, until)
}

func (s *CHMarketData) ActiveTextSymbols(ctx context.Context, since, until time.Time) ([]string, error) {
	q := fmt.Sprintf("SELECT DISTINCT symbol FROM %s WHERE published_at >= ? AND published_at < ? ORDER BY symbol", s.table("text_items"))
	return s.distinct(ctx, "active_text_symbols", q, since, until)
}

func (s *CHMarketData) distinct(ctx context.Context, op, q string, since, until time.Time) ([]string, error) {
	start := time.Now()
	rows, err := s.query(ctx, op, q, since, until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan %s: %w", op, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s rows: %w", op, err)
	}
	s.done(op, start, len(out))
	return out, nil
}

// TextItems returns the newest limit items in the window, oldest first.
func (s *CHMarketData) TextItems(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.TextItem, error) {
	start := time.Now()
	q := fmt.Sprintf(`
		SELECT id, source, text, engagement, reliability, published_at
		FROM %s
		WHERE symbol = ? AND published_at >= ? AND published_at <= ?
		ORDER BY published_at DESC
		LIMIT ?`, s.table("text_items"))
	rows, err := s.query(ctx, "text_items", q, symbol, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.TextItem, 0, limit)
	for rows.Next() {
		t := models.TextItem{Symbol: symbol}
		if err := rows.Scan(&t.ID, &t.Source, &t.Text, &t.EngagementWeight, &t.SourceReliability, &t.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan text: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("text rows: %w", err)
	}
	// reverse to ASC
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	s.done("text_items", start, len(out), applogger.String("symbol", symbol))
	return out, nil
}

func (s *CHMarketData) StorePrice(ctx context.Context, p models.PricePoint) error {
	q := fmt.Sprintf("INSERT INTO %s (symbol, ts, close, volume) VALUES (?, ?, ?, ?)", s.table("price_points"))
	return s.exec(ctx, "store_price", q, p.Symbol, p.Date.UTC(), p.Close, p.Volume)
}

func (s *CHMarketData) StoreLiquidity(ctx context.Context, ls models.LiquiditySample) error {
	q := fmt.Sprintf("INSERT INTO %s (symbol, ts, volume_24h, spread) VALUES (?, ?, ?, ?)", s.table("liquidity_samples"))
	return s.exec(ctx, "store_liquidity", q, ls.Symbol, ls.Timestamp.UTC(), ls.Volume24h, ls.Spread)
}

func (s *CHMarketData) StoreTrade(ctx context.Context, p models.Position) error {
	q := fmt.Sprintf("INSERT INTO %s (user_id, symbol, amount, pnl_percent, sector, trade_date) VALUES (?, ?, ?, ?, ?, ?)", s.table("trades"))
	return s.exec(ctx, "store_trade", q, p.UserID, p.Symbol, p.Amount, p.ProfitLossPercent, p.Sector, p.TradeDate.UTC())
}

func (s *CHMarketData) StoreText(ctx context.Context, t models.TextItem) error {
	q := fmt.Sprintf("INSERT INTO %s (id, symbol, source, text, engagement, reliability, published_at) VALUES (?, ?, ?, ?, ?, ?, ?)", s.table("text_items"))
	return s.exec(ctx, "store_text", q, t.ID, t.Symbol, t.Source, t.Text, t.EngagementWeight, t.SourceReliability, t.PublishedAt.UTC())
}

func (s *CHMarketData) exec(ctx context.Context, op, q string, args ...any) error {
	if _, err := s.ch.DB().ExecContext(ctx, q, args...); err != nil {
		s.l.Error("clickhouse insert error", applogger.String("op", op), applogger.Error(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

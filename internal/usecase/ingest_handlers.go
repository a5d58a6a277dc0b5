package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"RiskPulse/internal/domain/models"
	domrepo "RiskPulse/internal/domain/repository"
	pkgkafka "RiskPulse/pkg/kafka"
	"RiskPulse/pkg/util"
)

func permanent(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), pkgkafka.ErrPermanent)
}

type ingestBase struct {
	topic   string
	store   domrepo.Ingestor
	metrics domrepo.Metrics
}

func (b ingestBase) Topic() string { return b.topic }

func (b ingestBase) decode(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		b.metrics.RecordError("consumer_unmarshal")
		return permanent("decode %s message: %v", b.topic, err)
	}
	return nil
}

func (b ingestBase) done(at, start time.Time, err error) error {
	b.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		b.metrics.RecordError("consumer_store")
		return err
	}
	b.metrics.RecordLatency("ingest_e2e_seconds", time.Since(at).Seconds())
	b.metrics.RecordMessageIngested(b.topic)
	return nil
}

// PriceHandler persists price ticks. A tick carrying a spread also yields a
// liquidity sample.
type PriceHandler struct{ ingestBase }

func NewPriceHandler(topic string, store domrepo.Ingestor, metrics domrepo.Metrics) *PriceHandler {
	return &PriceHandler{ingestBase{topic: topic, store: store, metrics: metrics}}
}

// incoming message schema: {symbol, t, close, volume, spread?}
func (h *PriceHandler) Handle(ctx context.Context, data []byte) error {
	var m struct {
		Symbol string          `json:"symbol"`
		T      int64           `json:"t"`
		Close  decimal.Decimal `json:"close"`
		Volume decimal.Decimal `json:"volume"`
		Spread *float64        `json:"spread"`
	}
	if err := h.decode(data, &m); err != nil {
		return err
	}
	m.Symbol = util.NormalizeSymbol(m.Symbol)
	if m.Symbol == "" || m.T <= 0 {
		return permanent("price message: symbol and t are required")
	}
	if !m.Close.IsPositive() || m.Volume.IsNegative() {
		return permanent("price message %s: close must be positive and volume non-negative", m.Symbol)
	}
	if m.Spread != nil && *m.Spread < 0 {
		return permanent("price message %s: negative spread", m.Symbol)
	}
	at := util.FromUnix(m.T)

	start := time.Now()
	err := h.store.StorePrice(ctx, models.PricePoint{Symbol: m.Symbol, Date: at, Close: m.Close, Volume: m.Volume})
	if err == nil && m.Spread != nil {
		err = h.store.StoreLiquidity(ctx, models.LiquiditySample{
			Symbol:    m.Symbol,
			Timestamp: at,
			Volume24h: m.Volume,
			Spread:    *m.Spread,
		})
	}
	return h.done(at, start, err)
}

// TradeHandler persists user trade events.
type TradeHandler struct{ ingestBase }

func NewTradeHandler(topic string, store domrepo.Ingestor, metrics domrepo.Metrics) *TradeHandler {
	return &TradeHandler{ingestBase{topic: topic, store: store, metrics: metrics}}
}

// incoming message schema: {user_id, symbol, amount, pnl_percent, t, sector?}
func (h *TradeHandler) Handle(ctx context.Context, data []byte) error {
	var m struct {
		UserID     string          `json:"user_id"`
		Symbol     string          `json:"symbol"`
		Amount     decimal.Decimal `json:"amount"`
		PnLPercent decimal.Decimal `json:"pnl_percent"`
		T          int64           `json:"t"`
		Sector     string          `json:"sector"`
	}
	if err := h.decode(data, &m); err != nil {
		return err
	}
	m.Symbol = util.NormalizeSymbol(m.Symbol)
	if m.UserID == "" || m.Symbol == "" || m.T <= 0 {
		return permanent("trade message: user_id, symbol and t are required")
	}
	at := util.FromUnix(m.T)

	start := time.Now()
	err := h.store.StoreTrade(ctx, models.Position{
		UserID:            m.UserID,
		Symbol:            m.Symbol,
		Amount:            m.Amount,
		ProfitLossPercent: m.PnLPercent,
		TradeDate:         at,
		Sector:            m.Sector,
	})
	return h.done(at, start, err)
}

// TextHandler persists social posts and headlines.
type TextHandler struct{ ingestBase }

func NewTextHandler(topic string, store domrepo.Ingestor, metrics domrepo.Metrics) *TextHandler {
	return &TextHandler{ingestBase{topic: topic, store: store, metrics: metrics}}
}

// incoming message schema: {id?, symbol, source, text, engagement?, reliability?, t}
func (h *TextHandler) Handle(ctx context.Context, data []byte) error {
	var m struct {
		ID          string  `json:"id"`
		Symbol      string  `json:"symbol"`
		Source      string  `json:"source"`
		Text        string  `json:"text"`
		Engagement  float64 `json:"engagement"`
		Reliability float64 `json:"reliability"`
		T           int64   `json:"t"`
	}
	if err := h.decode(data, &m); err != nil {
		return err
	}
	m.Symbol = util.NormalizeSymbol(m.Symbol)
	m.Source = strings.ToLower(strings.TrimSpace(m.Source))
	if m.Symbol == "" || m.Source == "" || strings.TrimSpace(m.Text) == "" || m.T <= 0 {
		return permanent("text message: symbol, source, text and t are required")
	}
	if m.Engagement < 0 {
		m.Engagement = 0
	}
	at := util.FromUnix(m.T)
	if m.ID == "" {
		m.ID = TextID(m.Source, m.Symbol, at, m.Text)
	}

	start := time.Now()
	err := h.store.StoreText(ctx, models.TextItem{
		ID:                m.ID,
		Symbol:            m.Symbol,
		Source:            m.Source,
		Text:              m.Text,
		EngagementWeight:  m.Engagement,
		SourceReliability: m.Reliability,
		PublishedAt:       at,
	})
	return h.done(at, start, err)
}

// TextID derives a stable id so redelivered items collapse in storage.
func TextID(source, symbol string, at time.Time, text string) string {
	name := source + "|" + symbol + "|" + strconv.FormatInt(at.Unix(), 10) + "|" + text
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

var (
	_ pkgkafka.MessageHandler = (*PriceHandler)(nil)
	_ pkgkafka.MessageHandler = (*TradeHandler)(nil)
	_ pkgkafka.MessageHandler = (*TextHandler)(nil)
)

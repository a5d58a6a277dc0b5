package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgkafka "RiskPulse/pkg/kafka"
)

func TestPriceHandler(t *testing.T) {
	store := &memIngestor{}
	h := NewPriceHandler("prices", store, nopMetrics{})
	assert.Equal(t, "prices", h.Topic())

	err := h.Handle(context.Background(), []byte(`{"symbol":"btc","t":1710072000000,"close":"67000.5","volume":1200,"spread":0.002}`))
	require.NoError(t, err)
	require.Len(t, store.prices, 1)
	p := store.prices[0]
	assert.Equal(t, "BTC", p.Symbol)
	assert.Equal(t, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC), p.Date)
	assert.Equal(t, "67000.5", p.Close.String())
	require.Len(t, store.liquidity, 1)
	assert.Equal(t, 0.002, store.liquidity[0].Spread)

	require.NoError(t, h.Handle(context.Background(), []byte(`{"symbol":"ETH","t":1710072000,"close":3000,"volume":10}`)))
	assert.Len(t, store.prices, 2)
	assert.Len(t, store.liquidity, 1, "no spread, no liquidity sample")
}

func TestPriceHandlerRejectsBadPayloads(t *testing.T) {
	h := NewPriceHandler("prices", &memIngestor{}, nopMetrics{})
	for _, raw := range []string{
		`not json`,
		`{"t":1710072000,"close":1}`,
		`{"symbol":"BTC","t":1710072000,"close":0}`,
		`{"symbol":"BTC","t":1710072000,"close":1,"spread":-1}`,
	} {
		err := h.Handle(context.Background(), []byte(raw))
		assert.True(t, errors.Is(err, pkgkafka.ErrPermanent), raw)
	}
}

func TestPriceHandlerStoreErrorIsRetryable(t *testing.T) {
	h := NewPriceHandler("prices", &memIngestor{err: errors.New("ch down")}, nopMetrics{})
	err := h.Handle(context.Background(), []byte(`{"symbol":"BTC","t":1710072000,"close":1}`))
	require.Error(t, err)
	assert.False(t, errors.Is(err, pkgkafka.ErrPermanent))
}

func TestTradeHandler(t *testing.T) {
	store := &memIngestor{}
	h := NewTradeHandler("trades", store, nopMetrics{})

	require.NoError(t, h.Handle(context.Background(), []byte(`{"user_id":"u1","symbol":"sol","amount":-250,"pnl_percent":4.5,"t":1710072000,"sector":"L1"}`)))
	require.Len(t, store.trades, 1)
	assert.Equal(t, "SOL", store.trades[0].Symbol)
	assert.Equal(t, "-250", store.trades[0].Amount.String())
	assert.Equal(t, "L1", store.trades[0].Sector)

	err := h.Handle(context.Background(), []byte(`{"symbol":"SOL","t":1710072000}`))
	assert.ErrorIs(t, err, pkgkafka.ErrPermanent)
}

func TestTextHandlerDerivesStableID(t *testing.T) {
	store := &memIngestor{}
	h := NewTextHandler("texts", store, nopMetrics{})
	raw := []byte(`{"symbol":"DOGE","source":" Twitter ","text":"to the moon","engagement":12,"t":1710072000}`)

	require.NoError(t, h.Handle(context.Background(), raw))
	require.NoError(t, h.Handle(context.Background(), raw))
	require.Len(t, store.texts, 2)
	assert.Equal(t, "twitter", store.texts[0].Source)
	assert.NotEmpty(t, store.texts[0].ID)
	assert.Equal(t, store.texts[0].ID, store.texts[1].ID)

	require.NoError(t, h.Handle(context.Background(), []byte(`{"id":"abc","symbol":"DOGE","source":"news","text":"x","t":1710072000}`)))
	assert.Equal(t, "abc", store.texts[2].ID)

	err := h.Handle(context.Background(), []byte(`{"symbol":"DOGE","source":"news","text":"  ","t":1710072000}`))
	assert.ErrorIs(t, err, pkgkafka.ErrPermanent)
}

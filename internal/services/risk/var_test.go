package risk

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RiskPulse/internal/domain/models"
)

func trade(sym string, day int, amount, pnl float64) models.Position {
	return models.Position{
		UserID:            "u1",
		Symbol:            sym,
		Amount:            decimal.NewFromFloat(amount),
		ProfitLossPercent: decimal.NewFromFloat(pnl),
		TradeDate:         day0.AddDate(0, 0, day).Add(3 * time.Hour),
	}
}

func TestDailyPortfolioReturnsWeightsByAmount(t *testing.T) {
	days := DailyPortfolioReturns([]models.Position{
		trade("BTC", 0, 100, 10),
		trade("ETH", 0, 300, -2),
		trade("BTC", 1, 0, 50),
	})
	require.Len(t, days, 1, "zero-amount day is dropped")
	assert.InDelta(t, 0.01, days[0].Return, 1e-12)
	assert.True(t, days[0].Total.Equal(decimal.NewFromInt(400)))
}

func TestHistoricalVaREmptyHistory(t *testing.T) {
	res, err := HistoricalVaR(nil, 0.95, DefaultMinVaRDays)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInsufficientData, res.Status)
	assert.True(t, res.Value.IsZero())
	assert.Equal(t, 0, res.Days)
}

func TestHistoricalVaR(t *testing.T) {
	pnl := []float64{-5, -2, 1, 3, 4, -1, 2, 0, -3, 5, 6}
	var positions []models.Position
	for i, p := range pnl {
		amount := 1000.0
		if i == len(pnl)-1 {
			amount = 2000
		}
		positions = append(positions, trade("BTC", i, amount, p))
	}

	v95, err := HistoricalVaR(positions, 0.95, DefaultMinVaRDays)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOK, v95.Status)
	assert.Equal(t, 11, v95.Days)
	assert.InDelta(t, -0.04, v95.Percentile, 1e-12)
	assert.InDelta(t, 80, v95.Value.InexactFloat64(), 1e-9)
	assert.InDelta(t, 100, v95.ExpectedShortfall.InexactFloat64(), 1e-9)
	assert.True(t, v95.PortfolioValue.Equal(decimal.NewFromInt(2000)))

	v99, err := HistoricalVaR(positions, 0.99, DefaultMinVaRDays)
	require.NoError(t, err)
	assert.InDelta(t, 96, v99.Value.InexactFloat64(), 1e-9)
	assert.True(t, v99.Value.GreaterThanOrEqual(v95.Value))
}

func TestHistoricalVaRLowSample(t *testing.T) {
	res, err := HistoricalVaR([]models.Position{
		trade("BTC", 0, 1000, -4),
		trade("BTC", 1, 1000, 2),
		trade("BTC", 2, 1000, 1),
	}, 0.95, DefaultMinVaRDays)
	require.NoError(t, err)
	assert.Equal(t, models.StatusLowSample, res.Status)
	assert.True(t, res.Value.IsPositive())
}

func TestHistoricalVaRRejectsBadConfidence(t *testing.T) {
	for _, c := range []float64{0, 1, -0.5, 1.5} {
		_, err := HistoricalVaR(nil, c, DefaultMinVaRDays)
		assert.True(t, errors.Is(err, models.ErrInvalidConfidence), "confidence %v", c)
	}
}

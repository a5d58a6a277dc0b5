package risk

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RiskPulse/internal/domain/models"
)

func symbolSeries(symbol string, start time.Time, closes ...float64) []models.PricePoint {
	out := make([]models.PricePoint, len(closes))
	for i, c := range closes {
		out[i] = models.PricePoint{Symbol: symbol, Date: start.AddDate(0, 0, i), Close: decimal.NewFromFloat(c)}
	}
	return out
}

func TestPearson(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5}
	assert.InDelta(t, 1.0, Pearson(xs, []float64{2, 4, 6, 8, 10}), 1e-12)
	assert.InDelta(t, -1.0, Pearson(xs, []float64{5, 4, 3, 2, 1}), 1e-12)
	assert.Equal(t, 0.0, Pearson(xs, []float64{3, 3, 3, 3, 3}))
	assert.Equal(t, 0.0, Pearson([]float64{1}, []float64{2}))
}

func TestAlignReturnsKeepsSharedDays(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	a := symbolSeries("A", start, 100, 110, 121, 133.1)
	// B misses the third day, so only days 2 and 4 carry a return for both.
	b := []models.PricePoint{
		{Symbol: "B", Date: start, Close: decimal.NewFromInt(50)},
		{Symbol: "B", Date: start.AddDate(0, 0, 1), Close: decimal.NewFromInt(55)},
		{Symbol: "B", Date: start.AddDate(0, 0, 3), Close: decimal.NewFromInt(66)},
	}

	symbols, cols := AlignReturns(map[string][]models.PricePoint{"B": b, "A": a})
	assert.Equal(t, []string{"A", "B"}, symbols)
	require.Len(t, cols, 2)
	require.Len(t, cols[0], 2)
	assert.InDelta(t, 0.1, cols[0][0], 1e-12)
	assert.InDelta(t, 0.1, cols[1][0], 1e-12)
	assert.InDelta(t, 0.1, cols[0][1], 1e-12)
	assert.InDelta(t, 0.2, cols[1][1], 1e-12)
}

func TestCorrelationAnalysis(t *testing.T) {
	up := []float64{0.01, -0.02, 0.03, 0.01, -0.01, 0.02, -0.03, 0.02, 0.01, -0.02}
	same := append([]float64(nil), up...)
	inverse := make([]float64, len(up))
	for i, r := range up {
		inverse[i] = -r
	}

	c := Correlation([]string{"A", "B", "C"}, [][]float64{up, same, inverse}, map[string]float64{"A": 1, "B": 1, "C": 2})
	require.Equal(t, models.StatusOK, c.Status)
	assert.Equal(t, 10, c.Samples)
	assert.InDelta(t, 1.0, c.Max, 1e-12)
	assert.InDelta(t, -1.0, c.Min, 1e-12)
	assert.InDelta(t, -1.0/3, c.Average, 1e-12)
	assert.Equal(t, models.DiversificationExcellent, c.Level)
	for i := range c.Matrix {
		assert.Equal(t, 1.0, c.Matrix[i][i])
	}
	assert.Len(t, c.HighlyCorrelated, 3)

	// Half the weight is in C, which exactly offsets A and B.
	assert.InDelta(t, 0.0, c.PortfolioVolatility, 1e-12)
	assert.Equal(t, 1.0, c.DiversificationRatio)
}

func TestCorrelationDiversificationRatio(t *testing.T) {
	a := []float64{0.01, -0.01, 0.01, -0.01, 0.01, -0.01, 0.01, -0.01, 0.01, -0.01}
	b := []float64{0.01, 0.01, -0.01, -0.01, 0.01, 0.01, -0.01, -0.01, 0.01, 0.01}

	c := Correlation([]string{"A", "B"}, [][]float64{a, b}, nil)
	require.Equal(t, models.StatusOK, c.Status)
	rho := Pearson(a, b)
	sa, sb := SampleStdDev(a), SampleStdDev(b)
	portfolio := math.Sqrt(0.25*sa*sa + 0.25*sb*sb + 0.5*rho*sa*sb)
	assert.InDelta(t, (0.5*sa+0.5*sb)/portfolio, c.DiversificationRatio, 1e-9)
	assert.InDelta(t, portfolio*math.Sqrt(DaysPerYear), c.PortfolioVolatility, 1e-9)
	assert.Empty(t, c.HighlyCorrelated)
}

func TestCorrelationNeedsTwoAssetsAndSamples(t *testing.T) {
	assert.Equal(t, models.StatusNotApplicable, Correlation([]string{"A"}, [][]float64{{0.1, 0.2}}, nil).Status)
	assert.Equal(t, models.StatusNotApplicable, Correlation(nil, nil, nil).Status)

	short := []float64{0.01, 0.02, 0.03}
	c := Correlation([]string{"A", "B"}, [][]float64{short, short}, nil)
	assert.Equal(t, models.StatusInsufficientData, c.Status)
	assert.Equal(t, 3, c.Samples)
	assert.NotNil(t, c.HighlyCorrelated)
}

func TestDiversificationLevel(t *testing.T) {
	assert.Equal(t, models.DiversificationExcellent, DiversificationLevel(0.19))
	assert.Equal(t, models.DiversificationGood, DiversificationLevel(0.2))
	assert.Equal(t, models.DiversificationModerate, DiversificationLevel(0.4))
	assert.Equal(t, models.DiversificationPoor, DiversificationLevel(0.6))
	assert.Equal(t, models.DiversificationVeryPoor, DiversificationLevel(0.8))
}

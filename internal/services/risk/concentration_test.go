package risk

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RiskPulse/internal/domain/models"
)

func TestConcentrationThreeAssets(t *testing.T) {
	c, err := Concentration([]float64{0.25, 0.6, 0.15})
	require.NoError(t, err)
	assert.InDelta(t, 0.445, c.HHI, 1e-12)
	assert.InDelta(t, 0.6, c.TopAssetWeight, 1e-12)
	assert.InDelta(t, 1.0, c.Top3Weight, 1e-12)
	assert.Equal(t, models.RiskExtreme, c.Level)
	assert.Equal(t, models.StatusOK, c.Diversification.Status)
	assert.InDelta(t, 1/0.445, c.Diversification.Value, 1e-9)
	assert.Equal(t, 3, c.Assets)
}

func TestConcentrationEqualWeights(t *testing.T) {
	for n := 1; n <= 8; n++ {
		w := make([]float64, n)
		for i := range w {
			w[i] = 1 / float64(n)
		}
		c, err := Concentration(w)
		require.NoError(t, err)
		assert.InDelta(t, 1/float64(n), c.HHI, 1e-12, "n=%d", n)
		assert.InDelta(t, float64(n), c.Diversification.Value, 1e-9, "n=%d", n)
		assert.LessOrEqual(t, c.HHI, 1.0)
	}
}

func TestConcentrationEmpty(t *testing.T) {
	_, err := Concentration(nil)
	assert.True(t, errors.Is(err, models.ErrEmptyPortfolio))

	_, err = ConcentrationFromPositions(nil)
	assert.True(t, errors.Is(err, models.ErrEmptyPortfolio))

	_, err = ConcentrationFromPositions([]models.Position{trade("BTC", 0, 0, 1)})
	assert.True(t, errors.Is(err, models.ErrEmptyPortfolio))
}

func TestConcentrationFromPositionsUsesAbsoluteAmounts(t *testing.T) {
	c, err := ConcentrationFromPositions([]models.Position{
		trade("BTC", 0, 300, 1),
		trade("BTC", 1, -300, 1),
		trade("ETH", 0, 400, 1),
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.6, c.TopAssetWeight, 1e-12)
	assert.Equal(t, 2, c.Assets)
}

func TestConcentrationLevelBoundaries(t *testing.T) {
	cases := map[float64]models.RiskLevel{
		0.51: models.RiskExtreme,
		0.5:  models.RiskHigh,
		0.31: models.RiskHigh,
		0.3:  models.RiskMedium,
		0.21: models.RiskMedium,
		0.2:  models.RiskLow,
		0.05: models.RiskLow,
	}
	for top, want := range cases {
		assert.Equal(t, want, ConcentrationLevel(top), "top=%v", top)
	}
}

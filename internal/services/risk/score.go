package risk

import (
	"math"

	"RiskPulse/internal/domain/models"
)

const (
	volatilityScoreWeight = 0.7
	liquidityScoreWeight  = 0.3
)

var liquidityComponent = map[models.RiskLevel]float64{
	models.RiskLow:     10,
	models.RiskMedium:  40,
	models.RiskHigh:    70,
	models.RiskExtreme: 100,
}

// AssetRiskScore blends annualized volatility and liquidity level into 0-100.
func AssetRiskScore(volatility float64, liquidity models.RiskLevel) float64 {
	volScore := math.Min(100, volatility*100)
	score := volatilityScoreWeight*volScore + liquidityScoreWeight*liquidityComponent[liquidity]
	return math.Max(0, math.Min(100, score))
}

// Band categorises a 0-100 score.
func Band(score float64) models.RiskBand {
	switch {
	case score < 20:
		return models.BandVeryLow
	case score < 40:
		return models.BandLow
	case score < 60:
		return models.BandMedium
	case score < 80:
		return models.BandHigh
	default:
		return models.BandVeryHigh
	}
}

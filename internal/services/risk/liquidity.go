package risk

import "RiskPulse/internal/domain/models"

// Liquidity bands, evaluated in order. First match wins.
const (
	lowRiskVolume    = 10_000_000
	lowRiskSpread    = 0.01
	mediumRiskVolume = 1_000_000
	mediumRiskSpread = 0.05
	highRiskVolume   = 100_000
)

// ClassifyLiquidity maps average volume and spread to a level. Every input pair
// maps to exactly one level.
func ClassifyLiquidity(avgVolume, avgSpread float64) models.RiskLevel {
	switch {
	case avgVolume > lowRiskVolume && avgSpread < lowRiskSpread:
		return models.RiskLow
	case avgVolume > mediumRiskVolume && avgSpread < mediumRiskSpread:
		return models.RiskMedium
	case avgVolume > highRiskVolume:
		return models.RiskHigh
	default:
		return models.RiskExtreme
	}
}

// AssessLiquidity averages volume and spread over the samples and classifies them.
func AssessLiquidity(samples []models.LiquiditySample) models.Liquidity {
	if len(samples) == 0 {
		return models.Liquidity{
			Level:  ClassifyLiquidity(0, 0),
			Status: models.StatusInsufficientData,
		}
	}
	var volSum, spreadSum float64
	for _, s := range samples {
		volSum += s.Volume24h.InexactFloat64()
		spreadSum += s.Spread
	}
	n := float64(len(samples))
	avgVol := volSum / n
	avgSpread := spreadSum / n
	return models.Liquidity{
		AvgVolume: avgVol,
		AvgSpread: avgSpread,
		Level:     ClassifyLiquidity(avgVol, avgSpread),
		Samples:   len(samples),
		Status:    models.StatusOK,
	}
}

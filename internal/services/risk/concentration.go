package risk

import (
	"sort"

	"github.com/shopspring/decimal"

	"RiskPulse/internal/domain/models"
)

// Concentration level thresholds on the top asset weight.
const (
	concentrationExtreme = 0.5
	concentrationHigh    = 0.3
	concentrationMedium  = 0.2
)

// AssetTotals sums absolute traded amounts per symbol.
func AssetTotals(positions []models.Position) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, p := range positions {
		totals[p.Symbol] = totals[p.Symbol].Add(p.Amount.Abs())
	}
	return totals
}

// WeightsFromPositions turns per-asset traded amounts into weights summing to 1.
func WeightsFromPositions(positions []models.Position) (map[string]float64, error) {
	totals := AssetTotals(positions)
	sum := decimal.Zero
	for _, v := range totals {
		sum = sum.Add(v)
	}
	if len(totals) == 0 || !sum.IsPositive() {
		return nil, models.ErrEmptyPortfolio
	}
	weights := make(map[string]float64, len(totals))
	for sym, v := range totals {
		if v.IsZero() {
			continue
		}
		weights[sym] = v.Div(sum).InexactFloat64()
	}
	return weights, nil
}

// Concentration computes HHI and related metrics over weights that sum to 1.
func Concentration(weights []float64) (models.Concentration, error) {
	if len(weights) == 0 {
		return models.Concentration{}, models.ErrEmptyPortfolio
	}
	sorted := append([]float64(nil), weights...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	hhi := 0.0
	for _, w := range sorted {
		hhi += w * w
	}
	top3 := 0.0
	for i := 0; i < len(sorted) && i < 3; i++ {
		top3 += sorted[i]
	}

	c := models.Concentration{
		HHI:            hhi,
		TopAssetWeight: sorted[0],
		Top3Weight:     top3,
		Level:          ConcentrationLevel(sorted[0]),
		Assets:         len(sorted),
	}
	if hhi == 0 {
		c.Diversification = models.NotApplicable()
	} else {
		c.Diversification = models.OK(1/hhi, len(sorted))
	}
	return c, nil
}

// ConcentrationFromPositions is Concentration over positions grouped by asset.
func ConcentrationFromPositions(positions []models.Position) (models.Concentration, error) {
	byAsset, err := WeightsFromPositions(positions)
	if err != nil {
		return models.Concentration{}, err
	}
	weights := make([]float64, 0, len(byAsset))
	for _, w := range byAsset {
		weights = append(weights, w)
	}
	return Concentration(weights)
}

// ConcentrationLevel maps the top asset weight to a level, highest band first.
func ConcentrationLevel(top float64) models.RiskLevel {
	switch {
	case top > concentrationExtreme:
		return models.RiskExtreme
	case top > concentrationHigh:
		return models.RiskHigh
	case top > concentrationMedium:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

package risk

import (
	"math"
	"sort"

	"RiskPulse/internal/domain/models"
)

// DaysPerYear annualizes daily statistics. Each row counts as one calendar day.
const DaysPerYear = 365

// SortByDate returns a copy of points in chronological order.
func SortByDate(points []models.PricePoint) []models.PricePoint {
	out := append([]models.PricePoint(nil), points...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// DailyReturns computes r_t = (C_t - C_{t-1}) / C_{t-1} over consecutive points.
// The first point has no return. Pairs with a non-positive prior close are skipped.
func DailyReturns(points []models.PricePoint) []float64 {
	if len(points) < 2 {
		return nil
	}
	sorted := SortByDate(points)
	out := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		prev := sorted[i-1].Close.InexactFloat64()
		cur := sorted[i].Close.InexactFloat64()
		if prev <= 0 {
			continue
		}
		out = append(out, (cur-prev)/prev)
	}
	return out
}

// Volatility is the annualized sample standard deviation of daily returns.
// Fewer than two returns yields 0 flagged insufficient_data.
func Volatility(points []models.PricePoint) models.Metric {
	return VolatilityFromReturns(DailyReturns(points))
}

// VolatilityFromReturns annualizes the sample standard deviation of returns.
func VolatilityFromReturns(returns []float64) models.Metric {
	if len(returns) < 2 {
		return models.Insufficient(len(returns))
	}
	return models.OK(SampleStdDev(returns)*math.Sqrt(DaysPerYear), len(returns))
}

package risk

import "RiskPulse/internal/domain/models"

// RiskFreeRate is the annual risk-free rate used by Sharpe and Sortino.
const RiskFreeRate = 0.02

// MaxDrawdown is the largest peak-to-trough decline of the compounded return path,
// as a positive fraction.
func MaxDrawdown(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	cum, peak, worst := 1.0, 0.0, 0.0
	for _, r := range returns {
		cum *= 1 + r
		if cum > peak {
			peak = cum
		}
		if peak <= 0 {
			continue
		}
		if dd := (cum - peak) / peak; dd < worst {
			worst = dd
		}
	}
	return -worst
}

// Sharpe is the daily excess return over its population standard deviation.
func Sharpe(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	sd := PopulationStdDev(returns)
	if sd == 0 {
		return 0
	}
	return (Mean(returns) - RiskFreeRate/DaysPerYear) / sd
}

// Sortino is like Sharpe but divides by the deviation of negative returns only,
// falling back to all returns when none are negative.
func Sortino(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	downside := make([]float64, 0, len(returns))
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	sd := PopulationStdDev(returns)
	if len(downside) > 0 {
		sd = PopulationStdDev(downside)
	}
	if sd == 0 {
		return 0
	}
	return (Mean(returns) - RiskFreeRate/DaysPerYear) / sd
}

// PerformanceOf bundles the return statistics of one series.
func PerformanceOf(returns []float64) models.Performance {
	return models.Performance{
		MaxDrawdown: MaxDrawdown(returns),
		Sharpe:      Sharpe(returns),
		Sortino:     Sortino(returns),
	}
}

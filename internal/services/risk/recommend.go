package risk

import (
	"strings"

	"RiskPulse/internal/domain/models"
)

// Advice triggers.
const (
	adviceVolatility  = 1.0
	adviceCorrelation = 0.7
	adviceVaRPercent  = 10
	adviceResilience  = 30
)

// AcceptableRisk is the only recommendation when no rule fires.
const AcceptableRisk = "Portfolio risk appears to be within acceptable levels"

// RecommendationInput gathers the portfolio facts the advice rules read.
// Nil sections are skipped.
type RecommendationInput struct {
	Concentration  *models.Concentration
	VaR95          models.VaRResult
	Correlation    *models.CorrelationAnalysis
	Stress         *models.StressReport
	HighRiskAssets []string
}

// VaRPercent is the VaR as a percentage of the portfolio value, or 0 when
// the value is not positive.
func VaRPercent(v models.VaRResult) float64 {
	if !v.PortfolioValue.IsPositive() {
		return 0
	}
	return v.Value.Div(v.PortfolioValue).InexactFloat64() * 100
}

// Recommendations turns a portfolio assessment into plain-language advice,
// in rule order. It never returns an empty list.
func Recommendations(in RecommendationInput) []string {
	var out []string
	if c := in.Concentration; c != nil && (c.Level == models.RiskHigh || c.Level == models.RiskExtreme) {
		out = append(out,
			"Consider reducing position sizes to lower overall portfolio risk",
			"Implement stop-loss orders to limit downside exposure",
		)
	}
	if c := in.Correlation; c != nil && c.Status == models.StatusOK {
		if c.PortfolioVolatility > adviceVolatility {
			out = append(out, "Portfolio exhibits very high volatility, consider diversification")
		}
		if c.Average > adviceCorrelation {
			out = append(out, "High correlation between assets, consider adding uncorrelated assets")
		}
	}
	if in.VaR95.Status.Reliable() && VaRPercent(in.VaR95) > adviceVaRPercent {
		out = append(out, "High Value at Risk detected, consider hedging strategies")
	}
	if in.Stress != nil && len(in.Stress.Scenarios) > 0 && in.Stress.Resilience < adviceResilience {
		out = append(out, "Portfolio shows low resilience to stress scenarios")
	}
	if len(in.HighRiskAssets) > 0 {
		out = append(out, "High-risk assets detected: "+strings.Join(in.HighRiskAssets, ", "))
	}
	if len(out) == 0 {
		return []string{AcceptableRisk}
	}
	return out
}

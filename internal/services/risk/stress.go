package risk

import (
	"github.com/shopspring/decimal"

	"RiskPulse/internal/domain/models"
)

// Holding is the current exposure to one asset.
type Holding struct {
	Symbol string
	Sector string
	Value  decimal.Decimal
}

// DefaultScenarios returns the built-in stress scenarios.
func DefaultScenarios() []models.StressScenario {
	return []models.StressScenario{
		{Name: "market_crash", Description: "Severe market crash", Shocks: map[string]float64{"all": -0.5}},
		{Name: "crypto_winter", Description: "Extended bear market", Shocks: map[string]float64{"all": -0.8}},
		{Name: "bitcoin_crash", Description: "Bitcoin-specific crash", Shocks: map[string]float64{"BTC": -0.6, "others": -0.3}},
		{Name: "defi_collapse", Description: "DeFi sector collapse", Shocks: map[string]float64{"DeFi": -0.7, "others": -0.2}},
		{Name: "regulatory_crackdown", Description: "Major regulatory restrictions", Shocks: map[string]float64{"all": -0.4}},
	}
}

// HoldingsFromPositions aggregates positions into one holding per symbol.
func HoldingsFromPositions(positions []models.Position) []Holding {
	idx := make(map[string]int)
	var out []Holding
	for _, p := range positions {
		i, ok := idx[p.Symbol]
		if !ok {
			idx[p.Symbol] = len(out)
			out = append(out, Holding{Symbol: p.Symbol, Sector: p.Sector, Value: decimal.Zero})
			i = len(out) - 1
		}
		out[i].Value = out[i].Value.Add(p.Amount.Abs())
		if out[i].Sector == "" {
			out[i].Sector = p.Sector
		}
	}
	return out
}

func shockFor(h Holding, shocks map[string]float64) float64 {
	if s, ok := shocks["all"]; ok {
		return s
	}
	if s, ok := shocks[h.Symbol]; ok {
		return s
	}
	if h.Sector != "" {
		if s, ok := shocks[h.Sector]; ok {
			return s
		}
	}
	return shocks["others"]
}

// StressTest applies each scenario to the holdings. Resilience is
// max(0, 100 - mean loss percent).
func StressTest(holdings []Holding, scenarios []models.StressScenario) models.StressReport {
	before := decimal.Zero
	for _, h := range holdings {
		before = before.Add(h.Value)
	}

	report := models.StressReport{Scenarios: make([]models.ScenarioOutcome, 0, len(scenarios))}
	if len(scenarios) == 0 {
		report.Resilience = 100
		return report
	}

	var lossSum float64
	var worstAfter decimal.Decimal
	for i, sc := range scenarios {
		after := decimal.Zero
		for _, h := range holdings {
			shock := decimal.NewFromInt(1).Add(decimal.NewFromFloat(shockFor(h, sc.Shocks)))
			after = after.Add(h.Value.Mul(shock))
		}
		loss := before.Sub(after)
		pct := 0.0
		if before.IsPositive() {
			pct = loss.Div(before).InexactFloat64() * 100
		}
		report.Scenarios = append(report.Scenarios, models.ScenarioOutcome{
			Name:        sc.Name,
			ValueBefore: before,
			ValueAfter:  after,
			Loss:        loss,
			LossPercent: pct,
		})
		lossSum += pct
		if i == 0 || after.LessThan(worstAfter) {
			worstAfter = after
			report.Worst = sc.Name
		}
	}

	report.Resilience = 100 - lossSum/float64(len(scenarios))
	if report.Resilience < 0 {
		report.Resilience = 0
	}
	return report
}

package risk

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"RiskPulse/internal/domain/models"
)

// DefaultMinVaRDays is the number of days below which a VaR estimate is flagged low_sample.
const DefaultMinVaRDays = 10

// DailyReturn is the amount-weighted return of one calendar day.
type DailyReturn struct {
	Day    time.Time
	Return float64
	Total  decimal.Decimal
}

// DailyPortfolioReturns groups positions by UTC calendar day and weights each
// trade's return by its amount. Days with a zero total are dropped.
func DailyPortfolioReturns(positions []models.Position) []DailyReturn {
	type acc struct {
		weighted float64
		total    decimal.Decimal
	}
	days := make(map[time.Time]*acc)
	for _, p := range positions {
		day := p.TradeDate.UTC().Truncate(24 * time.Hour)
		a, ok := days[day]
		if !ok {
			a = &acc{total: decimal.Zero}
			days[day] = a
		}
		amount := p.Amount.Abs()
		ret := p.ProfitLossPercent.InexactFloat64() / 100
		a.weighted += ret * amount.InexactFloat64()
		a.total = a.total.Add(amount)
	}

	out := make([]DailyReturn, 0, len(days))
	for day, a := range days {
		if a.total.IsZero() {
			continue
		}
		out = append(out, DailyReturn{
			Day:    day,
			Return: a.weighted / a.total.InexactFloat64(),
			Total:  a.total,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out
}

// HistoricalVaR estimates VaR at the given confidence by historical simulation:
// the (1-c) empirical percentile of daily weighted returns, scaled by the
// latest day's total. An empty history yields a zero value flagged
// insufficient_data; fewer than minDays days is flagged low_sample.
func HistoricalVaR(positions []models.Position, confidence float64, minDays int) (models.VaRResult, error) {
	return VaRFromDaily(DailyPortfolioReturns(positions), confidence, minDays)
}

// VaRFromDaily is HistoricalVaR over already grouped days.
func VaRFromDaily(days []DailyReturn, confidence float64, minDays int) (models.VaRResult, error) {
	res := models.VaRResult{
		Confidence:        confidence,
		Value:             decimal.Zero,
		ExpectedShortfall: decimal.Zero,
		PortfolioValue:    decimal.Zero,
		Days:              len(days),
	}
	if confidence <= 0 || confidence >= 1 {
		return res, models.ErrInvalidConfidence
	}
	if len(days) == 0 {
		res.Status = models.StatusInsufficientData
		return res, nil
	}

	returns := make([]float64, len(days))
	for i, d := range days {
		returns[i] = d.Return
	}
	pct := Percentile(returns, 1-confidence)

	tail := make([]float64, 0, len(returns))
	for _, r := range returns {
		if r <= pct {
			tail = append(tail, r)
		}
	}
	es := pct
	if len(tail) > 0 {
		es = Mean(tail)
	}

	latest := days[len(days)-1].Total
	res.Percentile = pct
	res.PortfolioValue = latest
	res.Value = decimal.NewFromFloat(math.Abs(pct)).Mul(latest)
	res.ExpectedShortfall = decimal.NewFromFloat(math.Abs(es)).Mul(latest)
	res.Status = models.StatusOK
	if len(days) < minDays {
		res.Status = models.StatusLowSample
	}
	return res, nil
}

package risk

import (
	"math"
	"sort"
	"time"

	"RiskPulse/internal/domain/models"
)

const (
	// MinCorrelationSamples is the fewest aligned return days a correlation
	// analysis accepts.
	MinCorrelationSamples = 10

	highCorrelation = 0.8
)

// AlignReturns computes daily returns per symbol and keeps only the UTC days
// on which every symbol has a return. Symbols come back sorted and columns[i]
// holds the returns of symbols[i] in day order.
func AlignReturns(series map[string][]models.PricePoint) ([]string, [][]float64) {
	symbols := make([]string, 0, len(series))
	byDay := make(map[string]map[time.Time]float64, len(series))
	for sym, points := range series {
		symbols = append(symbols, sym)
		byDay[sym] = returnsByDay(points)
	}
	sort.Strings(symbols)
	if len(symbols) == 0 {
		return nil, nil
	}

	var shared []time.Time
	for d := range byDay[symbols[0]] {
		inAll := true
		for _, sym := range symbols[1:] {
			if _, ok := byDay[sym][d]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			shared = append(shared, d)
		}
	}
	sort.Slice(shared, func(i, j int) bool { return shared[i].Before(shared[j]) })

	columns := make([][]float64, len(symbols))
	for i, sym := range symbols {
		col := make([]float64, len(shared))
		for j, d := range shared {
			col[j] = byDay[sym][d]
		}
		columns[i] = col
	}
	return symbols, columns
}

func returnsByDay(points []models.PricePoint) map[time.Time]float64 {
	sorted := SortByDate(points)
	out := make(map[time.Time]float64, len(sorted))
	for i := 1; i < len(sorted); i++ {
		prev := sorted[i-1].Close.InexactFloat64()
		if prev <= 0 {
			continue
		}
		day := sorted[i].Date.UTC().Truncate(24 * time.Hour)
		out[day] = (sorted[i].Close.InexactFloat64() - prev) / prev
	}
	return out
}

// Pearson is the sample correlation of xs and ys over their common prefix.
// A constant series correlates 0 with anything.
func Pearson(xs, ys []float64) float64 {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	if n < 2 {
		return 0
	}
	xs, ys = xs[:n], ys[:n]
	mx, my := Mean(xs), Mean(ys)
	var sxy, sxx, syy float64
	for i := 0; i < n; i++ {
		dx, dy := xs[i]-mx, ys[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0
	}
	return math.Max(-1, math.Min(1, sxy/math.Sqrt(sxx*syy)))
}

func covariance(xs, ys []float64) float64 {
	n := len(xs)
	if n < 2 || len(ys) != n {
		return 0
	}
	mx, my := Mean(xs), Mean(ys)
	s := 0.0
	for i := range xs {
		s += (xs[i] - mx) * (ys[i] - my)
	}
	return s / float64(n-1)
}

// Correlation analyses aligned return columns of the held assets. weights
// are renormalised over symbols; missing or zero weights fall back to equal
// weighting. Fewer than two symbols is not_applicable and fewer than
// MinCorrelationSamples aligned days is insufficient_data.
func Correlation(symbols []string, columns [][]float64, weights map[string]float64) models.CorrelationAnalysis {
	out := models.CorrelationAnalysis{
		Symbols:          symbols,
		HighlyCorrelated: []models.CorrelatedPair{},
	}
	if len(symbols) < 2 || len(columns) != len(symbols) {
		out.Status = models.StatusNotApplicable
		return out
	}
	out.Samples = len(columns[0])
	if out.Samples < MinCorrelationSamples {
		out.Status = models.StatusInsufficientData
		return out
	}

	k := len(symbols)
	matrix := make([][]float64, k)
	for i := range matrix {
		matrix[i] = make([]float64, k)
		matrix[i][i] = 1
	}
	out.Max, out.Min = math.Inf(-1), math.Inf(1)
	sum, pairs := 0.0, 0
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			c := Pearson(columns[i], columns[j])
			matrix[i][j], matrix[j][i] = c, c
			sum += c
			pairs++
			out.Max = math.Max(out.Max, c)
			out.Min = math.Min(out.Min, c)
			if math.Abs(c) >= highCorrelation {
				out.HighlyCorrelated = append(out.HighlyCorrelated, models.CorrelatedPair{
					AssetA:      symbols[i],
					AssetB:      symbols[j],
					Correlation: c,
				})
			}
		}
	}
	sort.SliceStable(out.HighlyCorrelated, func(a, b int) bool {
		return math.Abs(out.HighlyCorrelated[a].Correlation) > math.Abs(out.HighlyCorrelated[b].Correlation)
	})
	out.Matrix = matrix
	out.Average = sum / float64(pairs)
	out.Level = DiversificationLevel(out.Average)

	w := alignWeights(symbols, weights)
	variance, weightedStd := 0.0, 0.0
	for i := 0; i < k; i++ {
		weightedStd += w[i] * SampleStdDev(columns[i])
		for j := 0; j < k; j++ {
			variance += w[i] * w[j] * covariance(columns[i], columns[j])
		}
	}
	portfolioStd := math.Sqrt(math.Max(0, variance))
	out.DiversificationRatio = 1
	if portfolioStd > 0 {
		out.DiversificationRatio = weightedStd / portfolioStd
	}
	out.PortfolioVolatility = portfolioStd * math.Sqrt(DaysPerYear)
	out.Status = models.StatusOK
	return out
}

func alignWeights(symbols []string, weights map[string]float64) []float64 {
	w := make([]float64, len(symbols))
	sum := 0.0
	for i, sym := range symbols {
		if v := weights[sym]; v > 0 {
			w[i] = v
			sum += v
		}
	}
	for i := range w {
		if sum > 0 {
			w[i] /= sum
		} else {
			w[i] = 1 / float64(len(w))
		}
	}
	return w
}

// DiversificationLevel grades an average pairwise correlation, lowest band first.
func DiversificationLevel(avg float64) models.Diversification {
	switch {
	case avg < 0.2:
		return models.DiversificationExcellent
	case avg < 0.4:
		return models.DiversificationGood
	case avg < 0.6:
		return models.DiversificationModerate
	case avg < 0.8:
		return models.DiversificationPoor
	default:
		return models.DiversificationVeryPoor
	}
}

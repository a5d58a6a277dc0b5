package sentiment

import (
	"math"
	"sort"
	"time"

	"RiskPulse/internal/domain/models"
	"RiskPulse/internal/services/risk"
)

// MinTrendItems is the number of results needed before a trend is reported.
const MinTrendItems = 10

const trendThreshold = 0.1

// Scored pairs a text item with its result.
type Scored struct {
	Item   models.TextItem
	Result models.SentimentResult
}

// FearGreedFor maps a mean score to the fear/greed category.
func FearGreedFor(mean float64) models.FearGreed {
	switch {
	case mean > 0.5:
		return models.ExtremeGreed
	case mean > 0.2:
		return models.Greed
	case mean > -0.2:
		return models.NeutralMood
	case mean > -0.5:
		return models.Fear
	default:
		return models.ExtremeFear
	}
}

// Distribution returns the percentage of results per label. Every label is present.
func Distribution(results []models.SentimentResult) map[models.Label]float64 {
	out := make(map[models.Label]float64, len(models.Labels))
	for _, l := range models.Labels {
		out[l] = 0
	}
	if len(results) == 0 {
		return out
	}
	for _, r := range results {
		out[r.Label]++
	}
	for l, n := range out {
		out[l] = n / float64(len(results)) * 100
	}
	return out
}

// TrendOf compares the mean score of the second half of chronologically ordered
// results with the first half.
func TrendOf(results []models.SentimentResult) models.Trend {
	if len(results) < MinTrendItems {
		return models.TrendInsufficient
	}
	mid := len(results) / 2
	diff := meanScore(results[mid:]) - meanScore(results[:mid])
	switch {
	case diff > trendThreshold:
		return models.TrendImproving
	case diff < -trendThreshold:
		return models.TrendDeclining
	default:
		return models.TrendStable
	}
}

// Aggregate summarizes the scored items of one symbol. Results flagged
// config_error are dropped; items without matches count as neutral zeros.
func Aggregate(symbol string, scored []Scored, from, to time.Time) models.SentimentSnapshot {
	usable := make([]Scored, 0, len(scored))
	for _, s := range scored {
		if s.Result.Status == models.StatusConfigError {
			continue
		}
		usable = append(usable, s)
	}
	sort.SliceStable(usable, func(i, j int) bool {
		return usable[i].Item.PublishedAt.Before(usable[j].Item.PublishedAt)
	})

	results := make([]models.SentimentResult, len(usable))
	matched := 0
	version := ""
	for i, s := range usable {
		results[i] = s.Result
		if s.Result.Status == models.StatusOK {
			matched++
		}
		if version == "" {
			version = s.Result.LexiconVersion
		}
	}

	snap := models.SentimentSnapshot{
		Symbol:         symbol,
		Items:          len(results),
		Matched:        matched,
		Distribution:   Distribution(results),
		Trend:          TrendOf(results),
		LexiconVersion: version,
		From:           from,
		To:             to,
		ComputedAt:     time.Now().UTC(),
	}
	switch {
	case len(scored) > 0 && len(results) == 0:
		snap.FearGreed = models.NeutralMood
		snap.Status = models.StatusConfigError
	case matched == 0:
		snap.FearGreed = models.NeutralMood
		snap.Status = models.StatusInsufficientData
	default:
		snap.MeanScore = meanScore(results)
		snap.FearGreed = FearGreedFor(snap.MeanScore)
		snap.Status = models.StatusOK
	}
	return snap
}

func meanScore(results []models.SentimentResult) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, r := range results {
		sum += r.Score
	}
	return sum / float64(len(results))
}

// SourceWeights are the default weights of BlendSources.
var SourceWeights = map[string]float64{
	"twitter":    0.30,
	"reddit":     0.25,
	"news":       0.35,
	"fear_greed": 0.10,
}

// BlendSources combines per-source mean scores into one weighted sentiment.
// Sources without a weight are ignored. Confidence is 1 minus the population
// standard deviation of the source scores, floored at 0.
func BlendSources(sources map[string]float64, weights map[string]float64) models.BlendedSentiment {
	if weights == nil {
		weights = SourceWeights
	}
	out := models.BlendedSentiment{
		Sources: make(map[string]float64, len(sources)),
		Weights: make(map[string]float64, len(sources)),
	}
	var weighted, total float64
	scores := make([]float64, 0, len(sources))
	for src, score := range sources {
		w, ok := weights[src]
		if !ok || w <= 0 {
			continue
		}
		out.Sources[src] = score
		out.Weights[src] = w
		weighted += score * w
		total += w
		scores = append(scores, score)
	}
	if total == 0 {
		return out
	}
	out.WeightedAverage = clamp(weighted/total, -1, 1)
	out.Confidence = math.Max(0, 1-risk.PopulationStdDev(scores))
	return out
}

// FearGreedScore maps an external 0-100 index reading to [-1,1].
func FearGreedScore(r models.FearGreedReading) float64 {
	return clamp((float64(r.Value)-50)/50, -1, 1)
}

// SourceMeans groups scored items by source and averages their scores. Each
// item counts with its SourceReliability; a missing or out-of-range
// reliability counts as 1.
func SourceMeans(scored []Scored) map[string]float64 {
	sums := make(map[string]float64)
	weights := make(map[string]float64)
	for _, s := range scored {
		if s.Result.Status == models.StatusConfigError {
			continue
		}
		w := reliability(s.Item)
		sums[s.Item.Source] += w * s.Result.Score
		weights[s.Item.Source] += w
	}
	out := make(map[string]float64, len(sums))
	for src, sum := range sums {
		out[src] = sum / weights[src]
	}
	return out
}

func reliability(it models.TextItem) float64 {
	if it.SourceReliability <= 0 || it.SourceReliability > 1 {
		return 1
	}
	return it.SourceReliability
}

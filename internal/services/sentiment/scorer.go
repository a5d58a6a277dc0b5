package sentiment

import (
	"math"
	"strings"
	"unicode/utf8"

	"RiskPulse/internal/domain/models"
	"RiskPulse/internal/domain/service"
)

// Confidence bands of the length/engagement heuristic.
const (
	ConfidenceHigh   = 0.9
	ConfidenceMedium = 0.7
	ConfidenceLow    = 0.5
)

// Scorer computes keyword-weighted sentiment. It holds no state besides the
// matcher and is safe for concurrent use.
type Scorer struct {
	matcher service.Matcher
}

// NewScorer returns a scorer using m, or substring matching when m is nil.
func NewScorer(m service.Matcher) *Scorer {
	if m == nil {
		m = SubstringMatcher{}
	}
	return &Scorer{matcher: m}
}

// Matcher returns the configured matcher.
func (s *Scorer) Matcher() service.Matcher { return s.matcher }

// Score rates one text against lex. The score is the mean weight of the
// matching entries clamped to [-1,1]. An invalid lexicon yields a neutral
// result flagged config_error with zero confidence.
func (s *Scorer) Score(text string, lex *models.KeywordLexicon, engagement float64) models.SentimentResult {
	if err := ValidateLexicon(lex); err != nil {
		return models.SentimentResult{
			Score:      0,
			Label:      models.LabelNeutral,
			Confidence: 0,
			Status:     models.StatusConfigError,
		}
	}

	cleaned := Clean(text)
	var sum float64
	var matched []string
	for _, e := range lex.Entries {
		kw := strings.TrimSpace(e.Keyword)
		if s.matcher.Match(cleaned, kw) {
			sum += e.Weight
			matched = append(matched, kw)
		}
	}

	res := models.SentimentResult{
		Label:          models.LabelNeutral,
		LexiconVersion: lex.Version,
		Confidence:     ConfidenceLow,
		Status:         models.StatusInsufficientData,
	}
	if len(matched) == 0 {
		return res
	}

	score := clamp(sum/float64(len(matched)), -1, 1)
	res.Score = score
	res.Label = LabelFor(score)
	res.Matched = matched
	res.Confidence = Confidence(utf8.RuneCountInString(text), engagement)
	res.Status = models.StatusOK
	return res
}

// ScoreItem scores a text item with its engagement weight.
func (s *Scorer) ScoreItem(item models.TextItem, lex *models.KeywordLexicon) models.SentimentResult {
	return s.Score(item.Text, lex, item.EngagementWeight)
}

// LabelFor buckets a score, highest band first.
func LabelFor(score float64) models.Label {
	switch {
	case score > 0.6:
		return models.LabelVeryPositive
	case score > 0.2:
		return models.LabelPositive
	case score > -0.2:
		return models.LabelNeutral
	case score > -0.6:
		return models.LabelNegative
	default:
		return models.LabelVeryNegative
	}
}

// Confidence grades a result by text length (runes) and engagement.
func Confidence(length int, engagement float64) float64 {
	switch {
	case length > 100 && engagement > 10:
		return ConfidenceHigh
	case length > 50 && engagement > 5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

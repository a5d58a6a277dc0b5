package models

import "time"

// TextItem is a raw social post or news headline.
type TextItem struct {
	ID                string    `json:"id"`
	Symbol            string    `json:"symbol"`
	Source            string    `json:"source"`
	Text              string    `json:"text"`
	EngagementWeight  float64   `json:"engagement_weight,omitempty"`
	SourceReliability float64   `json:"source_reliability,omitempty"`
	PublishedAt       time.Time `json:"published_at"`
}

// Label is the categorical bucket of a sentiment score.
type Label string

const (
	LabelVeryNegative Label = "very_negative"
	LabelNegative     Label = "negative"
	LabelNeutral      Label = "neutral"
	LabelPositive     Label = "positive"
	LabelVeryPositive Label = "very_positive"
)

// Labels lists every label from most negative to most positive.
var Labels = []Label{LabelVeryNegative, LabelNegative, LabelNeutral, LabelPositive, LabelVeryPositive}

// SentimentResult is the score of a single text.
type SentimentResult struct {
	Score          float64      `json:"score"`
	Label          Label        `json:"label"`
	Confidence     float64      `json:"confidence"`
	Matched        []string     `json:"matched,omitempty"`
	LexiconVersion string       `json:"lexicon_version,omitempty"`
	Status         ResultStatus `json:"status"`
}

// FearGreed is the categorical summary of aggregated sentiment.
type FearGreed string

const (
	ExtremeFear  FearGreed = "Extreme Fear"
	Fear         FearGreed = "Fear"
	NeutralMood  FearGreed = "Neutral"
	Greed        FearGreed = "Greed"
	ExtremeGreed FearGreed = "Extreme Greed"
)

// Trend describes how sentiment moved across a window.
type Trend string

const (
	TrendImproving    Trend = "improving"
	TrendDeclining    Trend = "declining"
	TrendStable       Trend = "stable"
	TrendInsufficient Trend = "insufficient_data"
)

// LexiconEntry is one weighted keyword.
type LexiconEntry struct {
	Keyword  string  `json:"keyword" yaml:"keyword" db:"keyword"`
	Category string  `json:"category" yaml:"category" db:"category"`
	Weight   float64 `json:"weight" yaml:"weight" db:"weight"`
}

// KeywordLexicon is an immutable, versioned set of keywords. Build a new
// value to change it.
type KeywordLexicon struct {
	Version  string         `json:"version" yaml:"version"`
	Entries  []LexiconEntry `json:"entries" yaml:"entries"`
	LoadedAt time.Time      `json:"loaded_at" yaml:"-"`
}

// SentimentSnapshot aggregates the scored items of one symbol in a window.
type SentimentSnapshot struct {
	CycleID        string            `json:"cycle_id,omitempty"`
	Symbol         string            `json:"symbol"`
	Items          int               `json:"items"`
	Matched        int               `json:"matched"`
	MeanScore      float64           `json:"mean_score"`
	FearGreed      FearGreed         `json:"fear_greed"`
	Distribution   map[Label]float64 `json:"distribution"`
	Trend          Trend             `json:"trend"`
	LexiconVersion string            `json:"lexicon_version"`
	Status         ResultStatus      `json:"status"`
	From           time.Time         `json:"from"`
	To             time.Time         `json:"to"`
	ComputedAt     time.Time         `json:"computed_at"`
}

// FearGreedReading is an external fear and greed index value (0-100).
type FearGreedReading struct {
	Value          int       `json:"value"`
	Classification string    `json:"classification"`
	Timestamp      time.Time `json:"timestamp"`
}

// BlendedSentiment is the source-weighted overall sentiment.
type BlendedSentiment struct {
	WeightedAverage float64            `json:"weighted_average"`
	Confidence      float64            `json:"confidence"`
	Sources         map[string]float64 `json:"source_sentiments"`
	Weights         map[string]float64 `json:"source_weights"`
}

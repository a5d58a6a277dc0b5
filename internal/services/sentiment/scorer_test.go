package sentiment

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RiskPulse/internal/domain/models"
)

func testLexicon(entries ...models.LexiconEntry) *models.KeywordLexicon {
	return &models.KeywordLexicon{Version: "test-1", Entries: entries}
}

func entry(kw string, w float64) models.LexiconEntry {
	return models.LexiconEntry{Keyword: kw, Weight: w}
}

func TestScoreMeanOfMatchedWeights(t *testing.T) {
	lex := testLexicon(entry("moon", 0.9), entry("bullish", 0.8))
	res := NewScorer(nil).Score("Bitcoin is going to the moon! Very bullish.", lex, 0)

	assert.InDelta(t, 0.85, res.Score, 1e-12)
	assert.Equal(t, models.LabelVeryPositive, res.Label)
	assert.ElementsMatch(t, []string{"moon", "bullish"}, res.Matched)
	assert.Equal(t, "test-1", res.LexiconVersion)
	assert.Equal(t, models.StatusOK, res.Status)
}

func TestScoreNoMatchIsNeutralLowConfidence(t *testing.T) {
	res := NewScorer(nil).Score("nothing to see here", DefaultLexicon(), 100)
	assert.Equal(t, 0.0, res.Score)
	assert.Equal(t, models.LabelNeutral, res.Label)
	assert.Equal(t, ConfidenceLow, res.Confidence)
	assert.Equal(t, models.StatusInsufficientData, res.Status)
}

func TestScoreInvalidLexiconFailsClosed(t *testing.T) {
	for _, lex := range []*models.KeywordLexicon{
		nil,
		{Version: "x"},
		testLexicon(entry("moon", 1.5)),
	} {
		res := NewScorer(nil).Score("to the moon", lex, 0)
		assert.Equal(t, models.StatusConfigError, res.Status)
		assert.Equal(t, 0.0, res.Score)
		assert.Equal(t, 0.0, res.Confidence)
		assert.Equal(t, models.LabelNeutral, res.Label)
	}
}

func TestScoreStaysInBounds(t *testing.T) {
	lex := testLexicon(entry("a", 1), entry("b", 1), entry("c", -1), entry("up", 1))
	texts := []string{"a b up", "c c c", "abc", "", "up up up and away", strings.Repeat("b", 500)}
	s := NewScorer(nil)
	for _, text := range texts {
		res := s.Score(text, lex, 50)
		assert.GreaterOrEqual(t, res.Score, -1.0)
		assert.LessOrEqual(t, res.Score, 1.0)
		assert.Equal(t, LabelFor(res.Score), res.Label)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	s := NewScorer(nil)
	lex := DefaultLexicon()
	first := s.Score("panic sell, total crash", lex, 3)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, s.Score("panic sell, total crash", lex, 3))
	}
	assert.Equal(t, -1.0, first.Score)
	assert.Equal(t, models.LabelVeryNegative, first.Label)
}

func TestScoreIgnoresURLsAndMentions(t *testing.T) {
	lex := testLexicon(entry("pump", 1))
	res := NewScorer(nil).Score("see https://pump.example.com @pumpbot", lex, 0)
	assert.Equal(t, models.StatusInsufficientData, res.Status)
}

func TestConfidenceUsesRawTextLength(t *testing.T) {
	lex := testLexicon(entry("bullish", 0.8))
	text := "bullish breakout https://example.com/charts/btc/daily/2024/03/10/breakout-confirmed?ref=feed @analyst #btc"
	require.Greater(t, len(text), 100)
	require.Less(t, len(Clean(text)), 50)

	res := NewScorer(nil).Score(text, lex, 20)
	assert.Equal(t, models.StatusOK, res.Status)
	assert.Equal(t, ConfidenceHigh, res.Confidence)
}

func TestLabelBoundaries(t *testing.T) {
	cases := map[float64]models.Label{
		1:     models.LabelVeryPositive,
		0.61:  models.LabelVeryPositive,
		0.6:   models.LabelPositive,
		0.2:   models.LabelNeutral,
		0:     models.LabelNeutral,
		-0.2:  models.LabelNegative,
		-0.6:  models.LabelVeryNegative,
		-1:    models.LabelVeryNegative,
		-0.59: models.LabelNegative,
	}
	for score, want := range cases {
		assert.Equal(t, want, LabelFor(score), "score=%v", score)
	}
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, ConfidenceHigh, Confidence(101, 11))
	assert.Equal(t, ConfidenceMedium, Confidence(101, 10))
	assert.Equal(t, ConfidenceMedium, Confidence(51, 6))
	assert.Equal(t, ConfidenceLow, Confidence(50, 100))
	assert.Equal(t, ConfidenceLow, Confidence(500, 5))
}

func TestValidateLexicon(t *testing.T) {
	require.NoError(t, ValidateLexicon(DefaultLexicon()))

	bad := []*models.KeywordLexicon{
		nil,
		{Entries: []models.LexiconEntry{entry("a", 0)}},
		{Version: "v"},
		testLexicon(entry(" ", 0)),
		testLexicon(entry("a", -1.01)),
		testLexicon(entry("Moon", 1), entry("moon", 1)),
	}
	for i, lex := range bad {
		err := ValidateLexicon(lex)
		assert.True(t, errors.Is(err, models.ErrInvalidLexicon), "case %d: %v", i, err)
	}
}

func TestLexiconHolderKeepsCurrentOnInvalidStore(t *testing.T) {
	h := NewLexiconHolder(DefaultLexicon())
	err := h.Store(&models.KeywordLexicon{Version: "broken"})
	require.Error(t, err)
	assert.Equal(t, BuiltinVersion, h.Current().Version)

	require.NoError(t, h.Store(testLexicon(entry("moon", 1))))
	assert.Equal(t, "test-1", h.Current().Version)
}

package sentiment

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"RiskPulse/internal/domain/models"
)

// BuiltinVersion is the version tag of DefaultLexicon.
const BuiltinVersion = "builtin-1"

var (
	bullishKeywords = []string{"moon", "bullish", "pump", "hodl", "diamond hands", "to the moon", "buy the dip"}
	bearishKeywords = []string{"dump", "crash", "bearish", "sell", "panic", "rekt", "paper hands"}
	neutralKeywords = []string{"stable", "sideways", "consolidation", "range", "support", "resistance"}
)

// DefaultLexicon returns the built-in crypto keyword lexicon.
func DefaultLexicon() *models.KeywordLexicon {
	entries := make([]models.LexiconEntry, 0, len(bullishKeywords)+len(bearishKeywords)+len(neutralKeywords))
	for _, k := range bullishKeywords {
		entries = append(entries, models.LexiconEntry{Keyword: k, Category: "bullish", Weight: 1})
	}
	for _, k := range bearishKeywords {
		entries = append(entries, models.LexiconEntry{Keyword: k, Category: "bearish", Weight: -1})
	}
	for _, k := range neutralKeywords {
		entries = append(entries, models.LexiconEntry{Keyword: k, Category: "neutral", Weight: 0})
	}
	return &models.KeywordLexicon{Version: BuiltinVersion, Entries: entries, LoadedAt: time.Now().UTC()}
}

// ValidateLexicon rejects lexicons the scorer cannot use. All errors wrap
// models.ErrInvalidLexicon.
func ValidateLexicon(lex *models.KeywordLexicon) error {
	if lex == nil {
		return fmt.Errorf("%w: nil lexicon", models.ErrInvalidLexicon)
	}
	if strings.TrimSpace(lex.Version) == "" {
		return fmt.Errorf("%w: missing version", models.ErrInvalidLexicon)
	}
	if len(lex.Entries) == 0 {
		return fmt.Errorf("%w: no entries", models.ErrInvalidLexicon)
	}
	seen := make(map[string]struct{}, len(lex.Entries))
	for i, e := range lex.Entries {
		kw := strings.ToLower(strings.TrimSpace(e.Keyword))
		if kw == "" {
			return fmt.Errorf("%w: entry %d has empty keyword", models.ErrInvalidLexicon, i)
		}
		if math.IsNaN(e.Weight) || e.Weight < -1 || e.Weight > 1 {
			return fmt.Errorf("%w: keyword %q weight %v outside [-1,1]", models.ErrInvalidLexicon, e.Keyword, e.Weight)
		}
		if _, dup := seen[kw]; dup {
			return fmt.Errorf("%w: duplicate keyword %q", models.ErrInvalidLexicon, e.Keyword)
		}
		seen[kw] = struct{}{}
	}
	return nil
}

// LexiconHolder publishes the current lexicon to concurrent readers. Readers
// take a snapshot with Current and keep it for the duration of their work.
type LexiconHolder struct {
	p atomic.Pointer[models.KeywordLexicon]
}

// NewLexiconHolder returns a holder seeded with lex.
func NewLexiconHolder(lex *models.KeywordLexicon) *LexiconHolder {
	h := &LexiconHolder{}
	h.p.Store(lex)
	return h
}

// Current returns the lexicon snapshot. It may be nil before the first Store.
func (h *LexiconHolder) Current() *models.KeywordLexicon { return h.p.Load() }

// Store validates and swaps in a new lexicon. An invalid lexicon leaves the
// current one in place.
func (h *LexiconHolder) Store(lex *models.KeywordLexicon) error {
	if err := ValidateLexicon(lex); err != nil {
		return err
	}
	h.p.Store(lex)
	return nil
}

package sentiment

import (
	"fmt"
	"strings"
	"unicode"

	"RiskPulse/internal/domain/service"
)

const (
	MatcherSubstring = "substring"
	MatcherWord      = "word"
)

// NewMatcher returns the matcher registered under name. An empty name selects substring.
func NewMatcher(name string) (service.Matcher, error) {
	switch name {
	case "", MatcherSubstring:
		return SubstringMatcher{}, nil
	case MatcherWord:
		return WordMatcher{}, nil
	default:
		return nil, fmt.Errorf("unknown matcher %q", name)
	}
}

// SubstringMatcher matches a keyword anywhere in the text, ignoring case.
type SubstringMatcher struct{}

func (SubstringMatcher) Name() string { return MatcherSubstring }

func (SubstringMatcher) Match(text, keyword string) bool {
	if keyword == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(keyword))
}

// WordMatcher matches a keyword or phrase only on word boundaries, ignoring case.
// "pump" matches "pump it" but not "pumpkin".
type WordMatcher struct{}

func (WordMatcher) Name() string { return MatcherWord }

func (WordMatcher) Match(text, keyword string) bool {
	kw := strings.Fields(strings.ToLower(keyword))
	if len(kw) == 0 {
		return false
	}
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	for i := 0; i+len(kw) <= len(words); i++ {
		ok := true
		for j := range kw {
			if words[i+j] != kw[j] {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

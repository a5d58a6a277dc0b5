package sentiment

import (
	"regexp"
	"strings"
)

var (
	urlPattern     = regexp.MustCompile(`(?i)https?://\S+|www\.\S+`)
	mentionPattern = regexp.MustCompile(`@\w+`)
)

// Clean strips URLs, @mentions and hashtag markers and collapses whitespace.
// Hashtag words are kept.
func Clean(text string) string {
	text = urlPattern.ReplaceAllString(text, " ")
	text = mentionPattern.ReplaceAllString(text, " ")
	text = strings.ReplaceAll(text, "#", "")
	return strings.Join(strings.Fields(text), " ")
}

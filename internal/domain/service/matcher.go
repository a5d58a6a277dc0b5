package service

// Matcher decides whether a keyword occurs in a text. Implementations must be
// case-insensitive and safe for concurrent use.
type Matcher interface {
	Name() string
	Match(text, keyword string) bool
}

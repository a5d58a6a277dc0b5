package util

import "strings"

// NormalizeSymbol upper-cases and trims an asset symbol.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

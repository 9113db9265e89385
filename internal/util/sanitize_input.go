package util

import (
	"html"
	"strings"
)

// SanitizeInput normalizes free-text profile fields before storage:
// surrounding whitespace is dropped and HTML metacharacters escaped.
func SanitizeInput(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}

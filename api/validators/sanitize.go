package validators

import "strings"

// SanitizeString trims, collapses inner whitespace and caps the result at
// maxLen characters without splitting a multi-byte rune.
func SanitizeString(input string, maxLen int) string {
	clean := strings.Join(strings.Fields(input), " ")
	if maxLen <= 0 {
		return clean
	}
	runes := []rune(clean)
	if len(runes) > maxLen {
		return strings.TrimSpace(string(runes[:maxLen]))
	}
	return clean
}

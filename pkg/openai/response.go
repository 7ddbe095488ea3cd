package openai

import "strings"

// StripFences removes an optional leading "```json" (or bare "```") marker
// and an optional trailing "```" from a model response, so fenced and
// unfenced JSON parse identically.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
	}
	if strings.HasSuffix(s, "```") {
		s = s[:len(s)-len("```")]
	}
	return strings.TrimSpace(s)
}

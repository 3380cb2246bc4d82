package llm

import (
	"regexp"
	"strings"
)

// jsonObjectRE matches a JSON object (possibly fenced in markdown code blocks).
var jsonObjectRE = regexp.MustCompile(`(?s)\{.*\}`)

// ExtractJSONObject strips markdown code fences and extracts the first JSON
// object from a model response.
func ExtractJSONObject(s string) string {
	s = strings.TrimSpace(s)

	// Strip markdown fences: ```json ... ``` or ``` ... ```
	if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[idx:]
		// remove opening fence line
		if nl := strings.Index(s, "\n"); nl >= 0 {
			s = s[nl+1:]
		}
		// remove closing fence
		if end := strings.LastIndex(s, "```"); end >= 0 {
			s = s[:end]
		}
		s = strings.TrimSpace(s)
	}

	// If it starts with '{' it's already clean
	if strings.HasPrefix(s, "{") {
		return s
	}

	// Try to find a JSON object anywhere in the text
	if loc := jsonObjectRE.FindString(s); loc != "" {
		return loc
	}

	return s
}

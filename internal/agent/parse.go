package agent

import (
	"encoding/json"
	"errors"
	"strings"
)

// decodeJSON unmarshals the JSON document embedded in an LLM response.
// Models routinely wrap output in markdown fences or lead with prose, so the
// document is located structurally rather than assumed to start at byte 0.
func decodeJSON(content string, v any) error {
	doc := extractJSON(content)
	if doc == "" {
		return errors.New("no JSON document found in response")
	}
	return json.Unmarshal([]byte(doc), v)
}

// extractJSON returns the first balanced JSON object or array in s.
func extractJSON(s string) string {
	s = stripCodeFence(s)

	start := -1
	var open, close byte
	for i := 0; i < len(s); i++ {
		if s[i] == '{' || s[i] == '[' {
			start = i
			open = s[i]
			if open == '{' {
				close = '}'
			} else {
				close = ']'
			}
			break
		}
	}
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// stripCodeFence removes a surrounding markdown code fence, if any.
func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		// Drop the language tag line.
		trimmed = trimmed[idx+1:]
	}
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON scans raw LLM output for the first balanced JSON object or
// array and unmarshals it into out. Structured-output responses are
// expected to be pure JSON already, but models occasionally wrap the
// payload in prose or a markdown code fence, so this scans for the first
// balanced `{...}` or `[...]` span rather than assuming the whole string
// is valid JSON.
func ExtractJSON(raw string, out interface{}) error {
	candidate := findBalancedJSON(raw)
	if candidate == "" {
		return fmt.Errorf("no JSON object or array found in response")
	}
	return json.Unmarshal([]byte(candidate), out)
}

// findBalancedJSON returns the first top-level balanced {...} or [...]
// substring of raw, skipping over braces/brackets that appear inside
// string literals.
func findBalancedJSON(raw string) string {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	start := -1
	var openChar, closeChar byte
	for i := 0; i < len(trimmed); i++ {
		c := trimmed[i]
		if c == '{' || c == '[' {
			start = i
			openChar = c
			if c == '{' {
				closeChar = '}'
			} else {
				closeChar = ']'
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
	for i := start; i < len(trimmed); i++ {
		c := trimmed[i]

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

		switch {
		case c == '"':
			inString = true
		case c == openChar:
			depth++
		case c == closeChar:
			depth--
			if depth == 0 {
				return trimmed[start : i+1]
			}
		}
	}

	return ""
}

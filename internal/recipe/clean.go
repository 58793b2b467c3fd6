package recipe

import (
	"encoding/json"
	"strings"
)

// Clean extracts the structured payload from a model response. A response that
// is already a JSON object is returned trimmed. Otherwise the first balanced
// {...} span is returned, ignoring braces inside JSON string literals. When no
// span balances, the text from the first '{' through the last '}' is returned.
// The result is always a substring of raw, or "" when no braces enclose
// anything.
func Clean(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if isJSONObject(trimmed) {
		return trimmed
	}
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return ""
	}
	if end := balancedEnd(raw, start); end > start {
		return raw[start : end+1]
	}
	if end := strings.LastIndexByte(raw, '}'); end > start {
		return raw[start : end+1]
	}
	return ""
}

// CleanFirstSpan returns the text from the first '{' through the first '}'
// after it. It matches the extraction used by earlier releases and is chosen
// with llm.json_extraction = "first_span".
func CleanFirstSpan(raw string) string {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return ""
	}
	end := strings.IndexByte(raw[start:], '}')
	if end < 0 {
		return ""
	}
	return raw[start : start+end+1]
}

func isJSONObject(s string) bool {
	if !strings.HasPrefix(s, "{") || !json.Valid([]byte(s)) {
		return false
	}
	return true
}

// balancedEnd returns the index of the '}' that closes the '{' at start, or -1.
func balancedEnd(s string, start int) int {
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
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

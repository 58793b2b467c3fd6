package recipe

import (
	"encoding/json"
	"strings"
	"time"

	"scantocookbook/internal/textutil"
)

const fallbackLayout = "2006-01-02T15-04-05.000000"

// FallbackName returns the generated name used when the model output carries
// no usable recipe name.
func FallbackName(now time.Time) string {
	return "recipe-" + now.Format(fallbackLayout)
}

// NameFor derives the recipe folder name from model output. The text is
// cleaned, decoded, and its string field "name" sanitized into a single path
// segment. Any failure along the way yields FallbackName.
func NameFor(text string, now func() time.Time) string {
	if now == nil {
		now = time.Now
	}
	if name := textutil.SanitizeName(rawName(text)); name != "" {
		return name
	}
	return FallbackName(now())
}

func rawName(text string) string {
	payload := Clean(text)
	if payload == "" {
		return ""
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return ""
	}
	field, ok := doc["name"]
	if !ok {
		return ""
	}
	var name string
	if err := json.Unmarshal(field, &name); err != nil {
		return ""
	}
	return strings.TrimSpace(name)
}

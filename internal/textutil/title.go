package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// Title converts snake_case or lower-case labels into headline form for
// tables, e.g. "not_found" becomes "Not Found".
func Title(label string) string {
	label = strings.TrimSpace(strings.ReplaceAll(label, "_", " "))
	if label == "" {
		return ""
	}
	return titleCaser.String(label)
}

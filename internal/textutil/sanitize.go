package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// MaxNameRunes caps sanitized names so that directory entries stay well below
// common filesystem limits even after multi-byte encoding.
const MaxNameRunes = 120

// nameReplacer replaces filesystem-unsafe characters with safe alternatives.
var nameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
	"\x00", "",
)

// SanitizeName turns free text (usually a recipe title produced by the model)
// into a single safe path segment. The text is NFC normalized, separators and
// reserved characters are replaced, control characters dropped, whitespace
// collapsed, and leading dots stripped. Returns "" when nothing usable remains.
func SanitizeName(name string) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	name = nameReplacer.Replace(name)

	var b strings.Builder
	space := false
	for _, r := range name {
		switch {
		case unicode.IsSpace(r):
			space = true
			continue
		case unicode.IsControl(r):
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}

	out := strings.TrimLeft(b.String(), ".")
	out = strings.TrimSpace(out)
	if runes := []rune(out); len(runes) > MaxNameRunes {
		out = strings.TrimSpace(string(runes[:MaxNameRunes]))
	}
	if out == "" || out == "." || out == ".." || strings.Trim(out, "-") == "" {
		return ""
	}
	return out
}

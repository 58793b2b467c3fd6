package transfer

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ExtensionPattern builds a case-insensitive glob such as "*.{jpg,png}" from a
// list of extensions with or without leading dots. An empty list yields "".
func ExtensionPattern(extensions []string) string {
	cleaned := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
		if ext == "" || strings.ContainsAny(ext, "*?[]{},/\\") {
			continue
		}
		cleaned = append(cleaned, ext)
	}
	if len(cleaned) == 0 {
		return ""
	}
	return "*.{" + strings.Join(cleaned, ",") + "}"
}

// MatchesPattern reports whether the base name of p matches pattern. An empty
// pattern matches everything.
func MatchesPattern(pattern, p string) bool {
	if pattern == "" {
		return true
	}
	ok, err := doublestar.Match(pattern, strings.ToLower(path.Base(p)))
	return err == nil && ok
}

// MatchesExtension is a convenience wrapper over ExtensionPattern and MatchesPattern.
func MatchesExtension(p string, extensions []string) bool {
	return MatchesPattern(ExtensionPattern(extensions), p)
}

// Package keys builds cache keys for per-region insight entries.
package keys

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// Metrics returns the cache key for a region's rolling metrics snapshot.
func Metrics(region string) string {
	return "metrics:" + Region(region)
}

// Layers returns the cache key for a region's geospatial layer snapshot.
func Layers(region string) string {
	return "layers:" + Region(region)
}

// Region normalizes a raw region name into a key-safe form. Region names are
// case-insensitive. When sanitization is lossy the original name is preserved
// in an xxhash suffix so distinct raw regions never collide.
func Region(region string) string {
	raw := strings.ToLower(strings.TrimSpace(region))
	if raw == "" {
		raw = "global"
	}

	const maxRegionLen = 80
	clean := sanitize(raw)
	if len(clean) > maxRegionLen {
		clean = clean[:maxRegionLen]
	}
	if clean == raw {
		return clean
	}
	return fmt.Sprintf("%s:r=%016x", clean, xxhash.Sum64String(raw))
}

func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			out = '_'
		case isAlphaNum(r) || r == '_' || r == '-' || r == '.':
			out = r
		default:
			// Any other rune (including non-ASCII) becomes '-'
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return strings.Trim(b.String(), "_-")
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		unicode.IsDigit(r)
}

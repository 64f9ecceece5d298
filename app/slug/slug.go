package slug

import (
	"strings"
)

// Normalize turns arbitrary text into an identifier made of lowercase ASCII
// letters, hyphens and underscores. Every other rune becomes a hyphen and
// every run of hyphens collapses into one.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	lastHyphen := false
	for _, r := range text {
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}

		switch {
		case r >= 'a' && r <= 'z', r == '_':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	return b.String()
}

// Join builds a store identifier from path segments, e.g. Join("/posts/", "x")
// returns "/posts/x/".
func Join(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		for _, p := range strings.Split(s, "/") {
			if p != "" {
				parts = append(parts, p)
			}
		}
	}

	if len(parts) == 0 {
		return "/"
	}

	return "/" + strings.Join(parts, "/") + "/"
}

package parser

import (
	"regexp"
	"strings"
)

// DefaultSlug names the output when a URL has no business segment.
const DefaultSlug = "reviews"

const placeMarker = "/place/"

var (
	// RE2's \w is ASCII-only, so accented letters are replaced too.
	nonWordRegex    = regexp.MustCompile(`[^\w]`)
	underscoreRegex = regexp.MustCompile(`_+`)
)

// BusinessSlug derives a file-name-safe slug from a maps place URL, e.g.
// ".../maps/place/Caf%C3%A9+Central/@40.4,-3.7,17z" gives "Caf_Central".
// Malformed escapes are kept literally, so "Bad%ZZName" gives "Bad_ZZName".
func BusinessSlug(rawURL string) string {
	path := urlPath(rawURL)
	start := strings.Index(path, placeMarker)
	if start == -1 {
		return DefaultSlug
	}
	segment := path[start+len(placeMarker):]
	segment, _, _ = strings.Cut(segment, "/@")
	segment = strings.Trim(segment, "/")
	if segment == "" {
		return DefaultSlug
	}

	segment = unescapeLenient(segment)
	segment = strings.NewReplacer("+", "_", " ", "_").Replace(segment)
	segment = nonWordRegex.ReplaceAllString(segment, "_")
	segment = underscoreRegex.ReplaceAllString(segment, "_")
	segment = strings.Trim(segment, "_")
	if segment == "" {
		return DefaultSlug
	}
	return segment
}

// urlPath returns the raw path of rawURL without scheme, host, query or
// fragment. It never fails, unlike url.Parse on a stray '%'.
func urlPath(rawURL string) string {
	s, _, _ := strings.Cut(rawURL, "#")
	s, _, _ = strings.Cut(s, "?")
	if _, rest, found := strings.Cut(s, "://"); found {
		slash := strings.IndexByte(rest, '/')
		if slash == -1 {
			return ""
		}
		return rest[slash:]
	}
	return s
}

// unescapeLenient decodes %XX sequences and leaves malformed ones as they
// are.
func unescapeLenient(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			hi, okHi := unhex(s[i+1])
			lo, okLo := unhex(s[i+2])
			if okHi && okLo {
				b.WriteByte(hi<<4 | lo)
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

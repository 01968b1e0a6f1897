package utils

import (
	"net/url"
	"strings"
)

// Sanitize maps a filename onto the safe charset [a-zA-Z0-9._-], replacing
// everything else with underscores. Used for temp files and object keys.
func Sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '.' || c == '_' || c == '-':
			b.WriteByte(c)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// ASCIIFallback degrades a filename to printable ASCII for the plain
// filename= parameter of Content-Disposition. Non-ASCII runes and quotes
// become underscores; an empty result falls back to "file".
func ASCIIFallback(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			b.WriteByte('_')
		} else {
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), " .")
	if out == "" {
		return "file"
	}
	return out
}

// ContentDisposition builds an attachment header carrying both the ASCII
// fallback name and the exact original name as an RFC 5987 filename*
// parameter, so non-ASCII names survive in capable clients.
func ContentDisposition(name string) string {
	fallback := ASCIIFallback(name)
	return `attachment; filename="` + fallback + `"; filename*=UTF-8''` + url.PathEscape(name)
}

package s3url

import (
	"sort"
	"strings"
)

// EscapeObjectKey percent-encodes key for use in a request path. Every byte
// other than unreserved A-Z a-z 0-9 - _ . ~ and the path separator '/' is
// percent-encoded; '/' is preserved so multi-segment keys still round-trip
// through standard percent-decoding.
func EscapeObjectKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))

	for i := 0; i < len(key); i++ {
		c := key[i]
		if isUnreserved(c) || c == '/' {
			b.WriteByte(c)
			continue
		}
		writePercentByte(&b, c)
	}

	return b.String()
}

// EscapeQueryValue percent-encodes a query string token. Unlike object key
// escaping, '/' is not preserved here since query values are opaque.
func EscapeQueryValue(v string) string {
	var b strings.Builder
	b.Grow(len(v))

	for i := 0; i < len(v); i++ {
		c := v[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		writePercentByte(&b, c)
	}

	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z':
		return true
	case c >= 'a' && c <= 'z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_' || c == '.' || c == '~':
		return true
	default:
		return false
	}
}

const upperHex = "0123456789ABCDEF"

func writePercentByte(b *strings.Builder, c byte) {
	b.WriteByte('%')
	b.WriteByte(upperHex[c>>4])
	b.WriteByte(upperHex[c&0x0f])
}

// CanonicalQueryString joins already-escaped key[=value] tokens into a
// deterministic, lexicographically sorted, '&'-joined query string. Callers
// pass tokens already escaped via EscapeQueryValue; this function only
// orders and joins them.
func CanonicalQueryString(tokens []string) string {
	if len(tokens) == 0 {
		return ""
	}
	sorted := make([]string, len(tokens))
	copy(sorted, tokens)
	sort.Strings(sorted)
	return strings.Join(sorted, "&")
}

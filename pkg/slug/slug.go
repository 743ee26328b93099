// Package slug generates URL-safe identifiers for campaign collection pages.
package slug

import (
	"crypto/rand"
	"strings"
	"unicode"
)

const (
	// maxLength bounds generated slugs so they stay usable in URLs and QR codes.
	maxLength = 64
	// suffixAlphabet is unambiguous lowercase base32 (no i, l, o, 0, 1).
	suffixAlphabet = "abcdefghjkmnpqrstuvwxyz23456789"
)

// Make converts a display name into a lowercase, hyphen-separated slug.
// Non-alphanumeric runs collapse to a single hyphen; leading and trailing
// hyphens are trimmed.
func Make(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	lastHyphen := true // suppress a leading hyphen
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	s := strings.TrimRight(b.String(), "-")
	if len(s) > maxLength {
		s = strings.TrimRight(s[:maxLength], "-")
	}
	return s
}

// MakeUnique appends a short random suffix, used to resolve per-tenant
// slug collisions without a retry loop against the database.
func MakeUnique(name string, suffixLen int) string {
	base := Make(name)
	if suffixLen <= 0 {
		return base
	}
	suffix := randomSuffix(suffixLen)
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}

func randomSuffix(n int) string {
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	for i := range buf {
		buf[i] = suffixAlphabet[int(buf[i])%len(suffixAlphabet)]
	}
	return string(buf)
}

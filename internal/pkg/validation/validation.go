package validation

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxAccountLen bounds account identifiers (owner, buyer, signer).
const MaxAccountLen = 128

// IsValidAccount reports whether s can be stored as an account identifier:
// non-empty valid UTF-8, at most MaxAccountLen bytes, no control characters.
func IsValidAccount(s string) bool {
	if s == "" || len(s) > MaxAccountLen || !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// NormalizeAccount is the canonical form account identifiers are stored and
// looked up in.
func NormalizeAccount(s string) string {
	return strings.TrimSpace(s)
}

// Package fingerprint derives the blocking keys a lead row is looked up
// under in the suppression store.
//
// The keys are deliberately coarse: fixed-length prefixes of the normalized
// identity fields, tolerant of minor data variance while keeping the store's
// lookup index narrow. Derivation is a pure function of the three fields.
package fingerprint

import (
	"strings"

	"leadscreen/internal"
)

// Normalize maps a raw cell value to its matching form: trimmed whitespace,
// nothing else. Absent cells arrive as the empty string and stay empty.
// Case and punctuation are preserved on purpose; the store was populated
// with untouched values.
func Normalize(raw string) string {
	return strings.TrimSpace(raw)
}

// Derive computes the (key3, key4) pair for already-normalized fields.
// A field shorter than the prefix length contributes all it has; there is
// no padding, so keys from sparse rows are simply shorter.
func Derive(fields internal.IdentityFields) internal.Fingerprint {
	return internal.Fingerprint{
		Key3: prefix(fields.FirstName, 3) + prefix(fields.LastName, 3) + prefix(fields.CompanyName, 3),
		Key4: prefix(fields.FirstName, 4) + prefix(fields.LastName, 4) + prefix(fields.CompanyName, 4),
	}
}

func prefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

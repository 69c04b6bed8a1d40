package storage

import (
	"strings"

	"github.com/google/uuid"
)

// SanitizeKey maps an identifier onto a path-safe alphabet: ASCII letters are
// lower-cased, digits are kept and everything else becomes '_'.
//
// Distinct inputs can collide ("A-1" and "a_1" both become "a_1"). Callers
// must pick identifiers that stay distinct after sanitizing; the store does
// not detect collisions.
func SanitizeKey(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// NewID returns a random 32 character hex identifier.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

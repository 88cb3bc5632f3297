// Package id provides the opaque tokens that identify downloaded files.
package id

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

const (
	prefix    = "f"
	hexLength = 32
)

// Generate creates a new random file token.
// Format: f<32 lowercase hex chars>
// Example: f3b1c4f0a9d2e4b7c8a1f0e2d3c4b5a69
func Generate() string {
	u := uuid.New()
	return prefix + hex.EncodeToString(u[:])
}

// Valid reports whether s has the shape of a token produced by Generate.
// It lets callers reject malformed input before touching storage.
func Valid(s string) bool {
	if len(s) != len(prefix)+hexLength || !strings.HasPrefix(s, prefix) {
		return false
	}
	for _, c := range s[len(prefix):] {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}

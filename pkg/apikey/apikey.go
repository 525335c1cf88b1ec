/**
 * @description
 * This package issues and hashes the opaque API keys that payment providers
 * use to authenticate deposit requests. Only the SHA-256 hash of a key is ever
 * persisted; the raw value is shown once at issue time and cannot be
 * recovered afterwards.
 *
 * @notes
 * - Keys are UUID v4 (122 bits of cryptographic randomness). Deliberately not
 *   v7: a time-ordered token would leak part of its own value.
 * - SHA-256 is sufficient here because the input is a long random token, not
 *   a human password; brute force is computationally infeasible and equality
 *   lookups need a deterministic digest.
 */
package apikey

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// PrefixLength is how many leading characters of a raw key are stored
// alongside the hash so support staff can identify a key without seeing it.
const PrefixLength = 8

// Issue returns a new raw API key. The caller must hash it for storage and
// hand the raw value to the provider exactly once.
func Issue() string {
	return uuid.New().String()
}

// Hash returns the hex-encoded SHA-256 digest of a raw key. Same input, same
// output; this is the stored and compared form of every credential.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Prefix returns the identification prefix of a raw key.
func Prefix(raw string) string {
	if len(raw) < PrefixLength {
		return raw
	}
	return raw[:PrefixLength]
}

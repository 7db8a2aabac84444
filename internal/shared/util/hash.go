package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashUserKey returns a stable, non-reversible identifier for a user ID,
// used where raw identities must not appear (log fields, storage namespaces).
func HashUserKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashJobKey returns a filesystem-safe identifier for a job ID.
func HashJobKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

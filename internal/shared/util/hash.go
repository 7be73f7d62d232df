package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// OwnerKey maps a scratch owner (a chat user id) to a fixed-length,
// path-safe directory or key segment.
func OwnerKey(owner string) string {
	sum := sha256.Sum256([]byte("scratch:" + owner))
	return hex.EncodeToString(sum[:])
}

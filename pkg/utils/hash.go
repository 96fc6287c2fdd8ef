// Package utils holds small helpers shared across layers.
package utils

import (
	"crypto/md5"
	"encoding/hex"
)

// HashString returns the hex md5 digest of input. Used for cache
// fingerprints, not as a security boundary.
func HashString(input string) string {
	sum := md5.Sum([]byte(input))
	return hex.EncodeToString(sum[:])
}

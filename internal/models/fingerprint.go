package models

import (
	"crypto/sha1"
	"encoding/hex"
)

// Fingerprint computes the content fingerprint of a delta payload: the hex
// SHA-1 of its exact bytes. It is stored alongside the delta and checked on
// every read; a mismatch means storage corruption.
func Fingerprint(delta string) string {
	h := sha1.Sum([]byte(delta))
	return hex.EncodeToString(h[:])
}

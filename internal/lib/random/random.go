package random

import (
	"crypto/rand"
	"encoding/hex"
)

// NewRandomString returns a hex string of the given length built from
// crypto/rand. Used for server seeds, so a weaker source is not acceptable.
func NewRandomString(length int) string {
	buf := make([]byte, (length+1)/2)

	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform entropy source is gone;
		// there is no safe fallback for seed material.
		panic("random: entropy source unavailable: " + err.Error())
	}

	return hex.EncodeToString(buf)[:length]
}

package domain

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// FingerprintPrefixLen is how many leading body characters take part in the fingerprint.
const FingerprintPrefixLen = 500

// Fingerprint returns the dedup key for an email: a BLAKE2b-256 digest over the first
// 500 characters of body, then sender, then subject. Emails that share all three collide.
func Fingerprint(body string, sender, subject *string) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(prefixRunes(body, FingerprintPrefixLen)))
	if sender != nil {
		h.Write([]byte(*sender))
	}
	if subject != nil {
		h.Write([]byte(*subject))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func prefixRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

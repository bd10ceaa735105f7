package utils

import "regexp"

// Allow-lists for the URL-safe base64 alphabet. Values are never decoded.
var (
	noteIDPattern     = regexp.MustCompile(`^[A-Za-z0-9_-]{6,}$`)
	ivPattern         = regexp.MustCompile(`^[A-Za-z0-9_-]{16,}$`)
	ciphertextPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{24,}$`)
)

// IsValidNoteID checks if an identifier is safe to use as a lookup key
func IsValidNoteID(id string) bool {
	return noteIDPattern.MatchString(id)
}

// IsValidIV checks the shape of an initialization vector
func IsValidIV(iv string) bool {
	return ivPattern.MatchString(iv)
}

// IsValidCiphertext checks the shape of an encrypted payload
func IsValidCiphertext(ct string) bool {
	return ciphertextPattern.MatchString(ct)
}

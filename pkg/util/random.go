package util

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateToken returns n random bytes hex-encoded.
func GenerateToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// GenerateRandomPassword is used for accounts the user never chose a password for
// (guest checkout, Google sign-in).
func GenerateRandomPassword() (string, error) {
	return GenerateToken(16)
}

package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Hex returns n random bytes encoded as a 2n-character hex string.
func Hex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateKey generates a random key with the given prefix.
// Format: prefix_randomhex
// Example: gd_secret_a1b2c3d4e5f6...
func GenerateKey(prefix string) (string, error) {
	b := make([]byte, 32) // 64 char hex
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(b)), nil
}

// GenerateWebhookSecret generates a business webhook secret: gd_secret_xxx
func GenerateWebhookSecret() (string, error) {
	return GenerateKey("gd_secret")
}

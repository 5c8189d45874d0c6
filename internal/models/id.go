package models

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateID creates a unique entity ID in prefix-xxxxxxxxxx format
// (10-char hex from 5 random bytes).
func GenerateID(prefix string) (string, error) {
	b := make([]byte, 5)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("models: generate ID: %w", err)
	}
	return prefix + "-" + hex.EncodeToString(b), nil
}

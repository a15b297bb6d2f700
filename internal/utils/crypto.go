package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

// GenerateTicketCode generates a short human-readable ticket code. Five digits
// keeps the code dictatable over a phone call while staying unguessable enough
// for a claim receipt.
func GenerateTicketCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(90000))
	if err != nil {
		return "", fmt.Errorf("failed to generate ticket code: %w", err)
	}
	return fmt.Sprintf("%05d", n.Int64()+10000), nil
}

// GenerateSecureToken generates a cryptographically secure random token
func GenerateSecureToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure token: %w", err)
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

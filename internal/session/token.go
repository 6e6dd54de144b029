package session

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
)

// TokenGenerator produces a fresh, unguessable session token.
type TokenGenerator func() (string, error)

// UUIDGenerator returns random (version 4) UUID strings.
func UUIDGenerator() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return id.String(), nil
}

// RandomGenerator returns a generator that encodes n random bytes as
// unpadded URL-safe base64. n below 16 is raised to 16.
func RandomGenerator(n int) TokenGenerator {
	const minBytes = 16
	if n < minBytes {
		n = minBytes
	}
	return func() (string, error) {
		buf := make([]byte, n)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generate session token: %w", err)
		}
		return base64.RawURLEncoding.EncodeToString(buf), nil
	}
}

package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashSecret returns a salted bcrypt hash of secret.
func HashSecret(secret string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("hash secret: %w", ErrInvalidInput)
		}
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(hash), nil
}

// compareSecret reports whether secret matches hash. bcrypt compares in constant time.
func compareSecret(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

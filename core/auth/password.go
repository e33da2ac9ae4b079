// Package auth implements credential hashing, session tokens and the
// rights-based guards used before any mutation.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// SaltLen is the number of random bytes generated per user.
const SaltLen = 16

// GenerateSalt returns a fresh random salt.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// EncodeSalt and DecodeSalt convert between the raw salt and its stored form.
func EncodeSalt(salt []byte) string {
	return hex.EncodeToString(salt)
}

func DecodeSalt(s string) ([]byte, error) {
	return hex.DecodeString(s)
}

// saltedInput binds the salt to the password. The result is always 43 bytes,
// under bcrypt's 72 byte input limit.
func saltedInput(password string, salt []byte) []byte {
	h := sha256.New()
	h.Write(salt)
	h.Write([]byte(password))
	return []byte(base64.RawStdEncoding.EncodeToString(h.Sum(nil)))
}

// HashPassword generates a bcrypt hash of the salted password.
func HashPassword(password string, salt []byte, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	bytes, err := bcrypt.GenerateFromPassword(saltedInput(password, salt), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// VerifyPassword compares a password and salt with a bcrypt hash.
func VerifyPassword(password string, salt []byte, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), saltedInput(password, salt)) == nil
}

package utils

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	resetTokenBytes = 32
	apiKeyBytes     = 32
	apiKeyPrefixLen = 8
)

var ErrMalformedAPIKey = errors.New("malformed api key")

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPassword(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}

func ValidatePassword(password string) error {
	var (
		hasMinLength = len(password) >= 8
		hasLetter    = false
		hasNumber    = false
	)

	for _, char := range password {
		switch {
		case unicode.IsLetter(char):
			hasLetter = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}

	if !hasMinLength || !hasLetter || !hasNumber {
		return errors.New("password must be at least 8 characters and contain a letter and a number")
	}

	return nil
}

// GenerateResetToken returns a URL-safe random token for password reset links.
func GenerateResetToken() (string, error) {
	return randomURLSafe(resetTokenBytes)
}

// GenerateAPIKey returns the plaintext key handed to the client along with the
// lookup prefix and the secret part that gets hashed.
func GenerateAPIKey() (plaintext, prefix, secret string, err error) {
	prefixRaw, err := randomURLSafe(6)
	if err != nil {
		return "", "", "", err
	}
	prefix = strings.NewReplacer("-", "x", "_", "y").Replace(prefixRaw)[:apiKeyPrefixLen]

	secret, err = randomURLSafe(apiKeyBytes)
	if err != nil {
		return "", "", "", err
	}

	return prefix + "." + secret, prefix, secret, nil
}

// SplitAPIKey separates a plaintext key into its prefix and secret.
func SplitAPIKey(plaintext string) (prefix, secret string, err error) {
	prefix, secret, found := strings.Cut(plaintext, ".")
	if !found || len(prefix) != apiKeyPrefixLen || secret == "" {
		return "", "", ErrMalformedAPIKey
	}
	return prefix, secret, nil
}

func randomURLSafe(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

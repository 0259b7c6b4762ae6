package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 72 // bcrypt input limit
)

var (
	// ErrPasswordTooShort indicates the supplied password is below the minimum length.
	ErrPasswordTooShort = errors.New("auth: password too short")
	// ErrPasswordTooLong indicates the supplied password exceeds the bcrypt input limit.
	ErrPasswordTooLong = errors.New("auth: password too long")
	// ErrPasswordMismatch indicates the supplied password does not match the stored hash.
	ErrPasswordMismatch = errors.New("auth: password mismatch")
)

// HashPassword derives a bcrypt hash from the supplied plaintext password.
func HashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", ErrPasswordTooShort
	}
	if len(password) > maxPasswordLength {
		return "", ErrPasswordTooLong
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword checks the plaintext password against a stored bcrypt hash.
func ComparePassword(hashed, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}

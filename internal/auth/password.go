package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost matches the 10 salt rounds the deployed hashes were created with.
const PasswordCost = 10

// maxPasswordBytes is bcrypt's input limit. Longer passwords are truncated,
// as the hashes already in the database were produced that way.
const maxPasswordBytes = 72

var ErrPasswordMismatch = errors.New("password mismatch")

func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword(truncate(password), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckPassword returns ErrPasswordMismatch when password does not match hash.
func CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), truncate(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return err
	}
	return nil
}

func truncate(password string) []byte {
	b := []byte(password)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}

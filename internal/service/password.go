package service

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt ignores everything past 72 bytes, so longer passwords are rejected up front.
const maxPasswordBytes = 72

var ErrPasswordMismatch = errors.New("password mismatch")

type PasswordHasher interface {
	Hash(plain string) (string, error)
	// Compare returns ErrPasswordMismatch when plain does not match hash.
	Compare(hash, plain string) error
}

type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Compare treats a password past the bcrypt limit as a mismatch. Such a
// password could never have been stored, and bcrypt would otherwise accept
// anything sharing its first 72 bytes.
func (h *BcryptHasher) Compare(hash, plain string) error {
	if len(plain) > maxPasswordBytes {
		return ErrPasswordMismatch
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	if err != nil {
		return fmt.Errorf("compare password: %w", err)
	}
	return nil
}

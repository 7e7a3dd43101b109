package auth

import (
	"errors"
	"fmt"

	passwordvalidator "github.com/wagslane/go-password-validator"
	"golang.org/x/crypto/bcrypt"

	"github.com/blogapi/backend/internal/models"
)

// MaxPasswordBytes is the longest plaintext bcrypt can hash.
const MaxPasswordBytes = 72

var (
	// ErrEmptyPassword is returned when an empty plaintext is offered for hashing.
	ErrEmptyPassword = errors.New("password must not be empty")
	// ErrPasswordTooLong is returned for plaintexts longer than MaxPasswordBytes.
	ErrPasswordTooLong = fmt.Errorf("password must be at most %d bytes", MaxPasswordBytes)
)

// WeakPasswordError reports a password rejected by the strength policy.
type WeakPasswordError struct {
	Err error
}

func (e *WeakPasswordError) Error() string { return e.Err.Error() }

func (e *WeakPasswordError) Unwrap() error { return e.Err }

// Credentials hashes and verifies account passwords.
type Credentials struct {
	// Cost is the bcrypt work factor; zero selects bcrypt.DefaultCost.
	Cost int
	// MinEntropy enables the strength policy when positive.
	MinEntropy float64
}

// SetPassword hashes plaintext with a fresh random salt and stores the hash on user.
func (c Credentials) SetPassword(user *models.User, plaintext string) error {
	hash, err := c.Hash(plaintext)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return nil
}

// Hash returns a salted bcrypt hash of plaintext.
func (c Credentials) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPassword
	}
	if len(plaintext) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	if c.MinEntropy > 0 {
		if err := passwordvalidator.Validate(plaintext, c.MinEntropy); err != nil {
			return "", &WeakPasswordError{Err: err}
		}
	}

	cost := c.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// VerifyPassword reports whether plaintext matches the user's stored hash.
func (c Credentials) VerifyPassword(user models.User, plaintext string) bool {
	if user.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(plaintext)) == nil
}

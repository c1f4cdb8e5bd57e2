package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// Password policy violations
var (
	ErrPasswordTooShort   = errors.New("password is too short")
	ErrPasswordNumeric    = errors.New("password cannot be entirely numeric")
	ErrPasswordLikeName   = errors.New("password is too similar to the username")
	ErrPasswordTooLong    = errors.New("password is longer than 72 bytes")
	ErrPasswordsDifferent = errors.New("the two password fields didn't match")
)

// maxPasswordBytes is the bcrypt input limit, pepper included
const maxPasswordBytes = 72

// PasswordConfig holds the password policy and hashing settings.
type PasswordConfig struct {
	BcryptCost int
	Pepper     string // optional global secret appended before hashing
	MinLength  int
}

// NewPasswordConfig reads BCRYPT_COST (default 12), PASSWORD_MIN_LENGTH
// (default 8) and optionally PASSWORD_PEPPER.
func NewPasswordConfig() (*PasswordConfig, error) {
	cost := bcrypt.DefaultCost + 2
	if v := os.Getenv("BCRYPT_COST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid BCRYPT_COST: %v", err)
		}
		cost = n
	}

	minLength := 8
	if v := os.Getenv("PASSWORD_MIN_LENGTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PASSWORD_MIN_LENGTH: %v", err)
		}
		minLength = n
	}

	cfg := &PasswordConfig{
		BcryptCost: cost,
		Pepper:     os.Getenv("PASSWORD_PEPPER"),
		MinLength:  minLength,
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *PasswordConfig) normalize() error {
	if c.BcryptCost < 10 || c.BcryptCost > 14 {
		return fmt.Errorf("bcrypt cost out of range: %d (must be 10-14)", c.BcryptCost)
	}
	if c.MinLength < 1 {
		return fmt.Errorf("password minimum length must be positive, got: %d", c.MinLength)
	}
	if len(c.Pepper) >= maxPasswordBytes-c.MinLength {
		return fmt.Errorf("PASSWORD_PEPPER leaves no room for the password")
	}
	return nil
}

// Check applies the registration policy: minimum length, not entirely
// numeric, not the username, and within the bcrypt limit.
func (c *PasswordConfig) Check(username, pw string) error {
	if len([]rune(pw)) < c.MinLength {
		return fmt.Errorf("%w: at least %d characters required", ErrPasswordTooShort, c.MinLength)
	}
	if strings.IndexFunc(pw, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		return ErrPasswordNumeric
	}
	if username != "" && strings.EqualFold(strings.TrimSpace(username), strings.TrimSpace(pw)) {
		return ErrPasswordLikeName
	}
	if len(pw)+len(c.Pepper) > maxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}

// HashPassword hashes a password using bcrypt (with optional pepper).
func (c *PasswordConfig) HashPassword(pw string) (string, error) {
	if len(pw)+len(c.Pepper) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pw+c.Pepper), c.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword verifies a password against a stored hash (with optional pepper).
func (c *PasswordConfig) VerifyPassword(pw, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(pw+c.Pepper)) == nil
}

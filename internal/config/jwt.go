package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DefaultSessionCookie is the cookie that carries the session token
const DefaultSessionCookie = "session"

// JWTConfig holds the settings for issuing and reading session tokens.
type JWTConfig struct {
	Secret          string
	ExpirationHours int
	Issuer          string
	CookieName      string
	SecureCookie    bool // Set the Secure attribute on the session cookie
}

// NewJWTConfig reads JWT_SECRET (required), JWT_EXPIRATION_HOURS (default 24),
// JWT_ISSUER (default "resume-builder"), SESSION_COOKIE_NAME (default
// "session") and SESSION_COOKIE_SECURE (default false).
func NewJWTConfig() (*JWTConfig, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but not set")
	}

	expirationHours := 24
	if v := os.Getenv("JWT_EXPIRATION_HOURS"); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid JWT_EXPIRATION_HOURS: %v", err)
		}
		expirationHours = hours
	}

	secure := false
	if v := os.Getenv("SESSION_COOKIE_SECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_COOKIE_SECURE: %v", err)
		}
		secure = b
	}

	cfg := &JWTConfig{
		Secret:          secret,
		ExpirationHours: expirationHours,
		Issuer:          envOr("JWT_ISSUER", "resume-builder"),
		CookieName:      envOr("SESSION_COOKIE_NAME", DefaultSessionCookie),
		SecureCookie:    secure,
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// TTL returns the token lifetime
func (c *JWTConfig) TTL() time.Duration {
	return time.Duration(c.ExpirationHours) * time.Hour
}

func (c *JWTConfig) normalize() error {
	if c.Secret == "" {
		return fmt.Errorf("JWT_SECRET cannot be empty")
	}
	if len(c.Secret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("JWT_EXPIRATION_HOURS must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	cookieName = "quoteintake_admin"
	role       = "admin"
)

// Manager issues and validates signed admin session tokens guarding the
// quote-log admin API. When no password is configured the admin surface is
// left open, for deployments that front the service with their own access
// control.
type Manager struct {
	secret   []byte
	password string
	maxAge   time.Duration
}

func New(secret, password string, maxAge time.Duration) (*Manager, error) {
	if strings.TrimSpace(secret) == "" {
		generated := make([]byte, 32)
		if _, err := rand.Read(generated); err != nil {
			return nil, fmt.Errorf("generate auth secret: %w", err)
		}
		secret = base64.RawURLEncoding.EncodeToString(generated)
	}
	return &Manager{secret: []byte(secret), password: password, maxAge: maxAge}, nil
}

// Enabled reports whether an admin password is configured.
func (m *Manager) Enabled() bool {
	return m.password != ""
}

func (m *Manager) CookieName() string {
	return cookieName
}

func (m *Manager) MaxAge() time.Duration {
	return m.maxAge
}

// Login checks the password and issues a session token.
func (m *Manager) Login(password string, now time.Time) (string, error) {
	if !m.Enabled() {
		return "", errors.New("admin login is not configured")
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(m.password)) != 1 {
		return "", errors.New("invalid password")
	}
	timestamp := strconv.FormatInt(now.Unix(), 10)
	payload := role + "|" + timestamp
	token := payload + "|" + m.sign(payload)
	return base64.RawURLEncoding.EncodeToString([]byte(token)), nil
}

// Verify parses a session token and reports whether it is valid and unexpired.
func (m *Manager) Verify(token string, now time.Time) error {
	if token == "" {
		return errors.New("missing session token")
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return errors.New("invalid session token")
	}
	parts := strings.Split(string(raw), "|")
	if len(parts) != 3 || parts[0] != role {
		return errors.New("invalid session token")
	}
	payload := parts[0] + "|" + parts[1]
	if !m.verify(payload, parts[2]) {
		return errors.New("invalid session token")
	}
	timestamp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return errors.New("invalid session token")
	}
	if now.Sub(time.Unix(timestamp, 0)) > m.maxAge {
		return errors.New("session expired")
	}
	return nil
}

func (m *Manager) sign(payload string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (m *Manager) verify(payload, signature string) bool {
	expected := m.sign(payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}

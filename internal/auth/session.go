// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionIssuer signs and verifies the session tokens that let a client reclaim its
// player id after a reconnect.
type SessionIssuer struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// expire is how long a token lives (0 => never).
	expire time.Duration
	now    func() time.Time
}

// ParseTokenExpire reads a TOKEN_EXPIRE_TIME style value. "never", "0" and "" mean no expiry.
func ParseTokenExpire(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "never" || value == "0" || value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token expire time: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("token expire time must not be negative: %s", value)
	}
	return d, nil
}

// NewSessionIssuer generates a fresh ed25519 key pair at runtime. Tokens do not survive
// a server restart, which matches the lifetime of the in-memory rooms.
func NewSessionIssuer(expire time.Duration) (*SessionIssuer, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &SessionIssuer{
		privateKey: privateKey,
		publicKey:  publicKey,
		expire:     expire,
		now:        time.Now,
	}, nil
}

// Issue creates a signed token with "sub" = playerID.
func (s *SessionIssuer) Issue(playerID string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub": playerID,
		"iat": now.Unix(),
	}
	if s.expire > 0 {
		claims["exp"] = now.Add(s.expire).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(s.privateKey)
}

// Verify checks a token and returns its "sub" field.
func (s *SessionIssuer) Verify(tokenString string) (string, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.publicKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid jwt claims")
	}

	playerID, ok := claims["sub"].(string)
	if !ok || playerID == "" {
		return "", fmt.Errorf("missing sub in jwt")
	}
	return playerID, nil
}

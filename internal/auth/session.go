// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrTokenExpired means the token was valid but its exp claim has passed.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid covers every other reason a token is rejected.
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims is the identity carried by a session token.
type Claims struct {
	UserID   uuid.UUID
	Nickname string
}

// Sessions signs and verifies EdDSA session tokens.
type Sessions struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// ttl is how long a token lives; 0 => tokens carry no exp claim.
	ttl time.Duration
	now func() time.Time
}

// NewSessions generates a fresh ed25519 key pair at runtime.
func NewSessions(ttl time.Duration) (*Sessions, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &Sessions{privateKey: priv, publicKey: pub, ttl: ttl, now: time.Now}, nil
}

// LoadSessions reads an ed25519 key pair from disk.
func LoadSessions(privatePath, publicPath string, ttl time.Duration) (*Sessions, error) {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(privateKeyData) != ed25519.PrivateKeySize || len(publicKeyData) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("ed25519 key files have the wrong size")
	}
	return &Sessions{
		privateKey: ed25519.PrivateKey(privateKeyData),
		publicKey:  ed25519.PublicKey(publicKeyData),
		ttl:        ttl,
		now:        time.Now,
	}, nil
}

// TTL returns the token lifetime, 0 if tokens never expire.
func (s *Sessions) TTL() time.Duration {
	return s.ttl
}

// Issue creates a signed token with sub = userID.
func (s *Sessions) Issue(userID uuid.UUID, nickname string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":      userID.String(),
		"nickname": nickname,
		"iat":      now.Unix(),
	}
	if s.ttl > 0 {
		claims["exp"] = now.Add(s.ttl).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(s.privateKey)
}

// Verify checks a token and returns its claims.
func (s *Sessions) Verify(tokenString string) (Claims, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.publicKey, nil
	}, jwt.WithTimeFunc(s.now))
	if errors.Is(err, jwt.ErrTokenExpired) {
		return Claims{}, ErrTokenExpired
	}
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if !t.Valid {
		return Claims{}, ErrTokenInvalid
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, fmt.Errorf("%w: bad claims", ErrTokenInvalid)
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return Claims{}, fmt.Errorf("%w: missing sub", ErrTokenInvalid)
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: sub is not a user id", ErrTokenInvalid)
	}
	nickname, _ := claims["nickname"].(string)

	return Claims{UserID: userID, Nickname: nickname}, nil
}

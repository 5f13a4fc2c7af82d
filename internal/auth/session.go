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

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// Issuer signs and verifies session tokens with an ed25519 key pair.
// A zero expiry issues tokens without an exp claim.
type Issuer struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	expiry     time.Duration
	now        func() time.Time
}

// NewIssuer generates a fresh key pair. Tokens do not survive a restart.
func NewIssuer(expiry time.Duration) (*Issuer, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &Issuer{privateKey: priv, publicKey: pub, expiry: expiry, now: time.Now}, nil
}

// NewIssuerFromFiles reads a raw ed25519 key pair from disk.
func NewIssuerFromFiles(privatePath, publicPath string, expiry time.Duration) (*Issuer, error) {
	priv, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	pub, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(priv) != ed25519.PrivateKeySize || len(pub) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("unexpected ed25519 key sizes (private=%d, public=%d)", len(priv), len(pub))
	}
	return &Issuer{privateKey: priv, publicKey: pub, expiry: expiry, now: time.Now}, nil
}

// ParseExpiry turns TOKEN_EXPIRE_TIME into a duration. "", "0" and "never"
// mean tokens never expire.
func ParseExpiry(raw string) (time.Duration, error) {
	if raw == "" || raw == "0" || raw == "never" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token expire time: %w", err)
	}
	return d, nil
}

// Expiry returns the configured token lifetime.
func (i *Issuer) Expiry() time.Duration {
	return i.expiry
}

// Issue creates a signed token whose subject is the user id.
func (i *Issuer) Issue(userID uuid.UUID) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID.String(),
		"iat": i.now().Unix(),
	}
	if i.expiry > 0 {
		claims["exp"] = i.now().Add(i.expiry).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(i.privateKey)
}

// Verify checks the token signature and expiry and returns the user id it was issued for.
func (i *Issuer) Verify(tokenString string) (uuid.UUID, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.publicKey, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	sub, err := t.Claims.GetSubject()
	if err != nil || sub == "" {
		return uuid.Nil, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid user id in token: %w", ErrInvalidToken, err)
	}
	return id, nil
}

// Package token signs and verifies the short-lived, stateless access
// tokens. Tokens are HS256 JWTs carrying the user id, issued-at, and
// expiry; the signing key is a single process-wide secret supplied at
// construction.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalid covers every verification failure: bad signature, malformed
// payload, and expiry in the past. Callers must not distinguish between
// these cases.
var ErrInvalid = errors.New("invalid access token")

// Config configures a Codec.
type Config struct {
	// Secret is the HS256 signing key. It must be non-empty; callers that
	// want fail-closed behavior on a missing secret must not construct a
	// codec at all.
	Secret []byte
	Issuer string
}

// Claims is the verified content of an access token.
type Claims struct {
	UserID    int64
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type accessClaims struct {
	UID int64 `json:"uid"`
	jwt.RegisteredClaims
}

// Codec signs and verifies access tokens.
type Codec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewCodec creates a Codec. It fails when the secret is empty.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("signing secret required")
	}
	return &Codec{
		secret: cfg.Secret,
		issuer: cfg.Issuer,
		now:    time.Now,
	}, nil
}

// WithClock replaces the codec's clock. Intended for tests.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

// Sign issues a token for userID expiring after ttl. A non-positive ttl
// produces an already-expired token; this is intentional and used by tests
// that simulate clock advance.
func (c *Codec) Sign(userID int64, ttl time.Duration) (string, error) {
	now := c.now()
	claims := accessClaims{
		UID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    c.issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Verify parses and validates a token. Any failure is reported as
// ErrInvalid; the underlying cause is wrapped for logging only.
func (c *Codec) Verify(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		options = append(options, jwt.WithIssuer(c.issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &accessClaims{}, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	claims, ok := parsed.Claims.(*accessClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalid
	}
	if claims.UID <= 0 || claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, ErrInvalid
	}

	return &Claims{
		UserID:    claims.UID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

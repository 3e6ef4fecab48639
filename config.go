package authcore

import (
	"errors"
	"time"
)

// Config is the explicit configuration injected at construction. The
// signing secret is part of it by design: nothing in the service reads
// ambient environment state, and Build fails (rather than the first
// request) when the secret is absent in production mode.
type Config struct {
	Token        TokenConfig
	Refresh      RefreshConfig
	Password     PasswordConfig
	Verification VerificationConfig
	Account      AccountConfig

	// Production makes a missing signing secret a construction error.
	// Outside production the service still fails closed at request time.
	Production bool
}

// TokenConfig configures the access-token codec.
type TokenConfig struct {
	// SigningSecret is the process-wide HS256 key.
	SigningSecret []byte
	Issuer        string
	// AccessTTL is the default access-token lifetime.
	AccessTTL time.Duration
	// VerifiedAccessTTL is used for sessions issued immediately after a
	// verification-secret was consumed (password reset, email verify).
	VerifiedAccessTTL time.Duration
}

// RefreshConfig configures refresh records and cookies.
type RefreshConfig struct {
	// TTL is the maximum refresh-record age. Records older than this are
	// treated as expired even when still present in the store.
	TTL time.Duration
}

// PasswordConfig carries the server-wide argon2id cost parameters.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// VerificationConfig configures the one-time verification secrets.
type VerificationConfig struct {
	// TTL bounds how long an issued secret stays consumable.
	TTL time.Duration
}

// AccountConfig configures account lifecycle behavior.
type AccountConfig struct {
	// RequireVerified blocks pending-verification accounts from login and
	// from tier-gated requests with ErrAccountBlocked.
	RequireVerified bool
	// DefaultTier is assigned to accounts created via Signup.
	DefaultTier Tier
}

// DefaultConfig returns the recommended configuration. The signing secret
// must still be supplied by the caller.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			Issuer:            "authcore",
			AccessTTL:         time.Hour,
			VerifiedAccessTTL: 4 * time.Hour,
		},
		Refresh: RefreshConfig{
			TTL: 365 * 24 * time.Hour,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        1,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Verification: VerificationConfig{
			TTL: 24 * time.Hour,
		},
		Account: AccountConfig{
			DefaultTier: TierBase,
		},
	}
}

// Validate checks the configuration for construction-time errors.
func (c Config) Validate() error {
	if c.Production && len(c.Token.SigningSecret) == 0 {
		return errors.New("production mode requires a signing secret")
	}
	if c.Token.AccessTTL <= 0 {
		return errors.New("access TTL must be positive")
	}
	if c.Token.VerifiedAccessTTL < c.Token.AccessTTL {
		return errors.New("verified access TTL must be >= access TTL")
	}
	if c.Refresh.TTL <= 0 {
		return errors.New("refresh TTL must be positive")
	}
	if c.Verification.TTL <= 0 {
		return errors.New("verification TTL must be positive")
	}
	if c.Account.DefaultTier < TierBase || c.Account.DefaultTier > TierSuper {
		return errors.New("default tier out of range")
	}
	return nil
}

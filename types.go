package authcore

import (
	"context"
	"time"
)

// User is the identity and credential record. PasswordHash and
// VerificationHash are one-way salted hashes and must never be serialized
// to a client; use Sanitized before attaching a user to a request context.
type User struct {
	ID                   int64
	Email                string
	Username             string
	PasswordHash         string
	VerificationHash     string
	VerificationIssuedAt time.Time
	Registration         int
	Tier                 Tier
	SSOProvider          string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Registration states. Any nonzero value marks the account as pending.
const (
	registrationComplete     = 0
	registrationPendingEmail = 1
)

// Pending reports whether the account registration is still awaiting
// verification. Any nonzero registration flag counts as pending.
func (u *User) Pending() bool {
	return u.Registration != 0
}

// Sanitized returns a copy of the user with all credential hashes stripped.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.PasswordHash = ""
	c.VerificationHash = ""
	return &c
}

// RefreshToken is a server-side session record, independent of the signed
// access token. The raw secret exists only inside the client cookie value
// "{id}-{secret}"; the server stores the hash.
type RefreshToken struct {
	ID         int64
	UserID     int64
	SecretHash string
	IssuedAt   time.Time
}

// UserStore is the persistence interface for users. Implementations return
// ErrNotFound when no record matches and ErrDuplicateIdentifier when a
// unique constraint on email or username is violated.
type UserStore interface {
	// FindUserByIdentifier resolves a user by email or username.
	FindUserByIdentifier(ctx context.Context, identifier string) (*User, error)
	FindUserByID(ctx context.Context, id int64) (*User, error)
	// SaveUser inserts the user when ID is zero (assigning ID) and updates
	// it otherwise.
	SaveUser(ctx context.Context, u *User) error
}

// RefreshTokenStore is the persistence interface for refresh records.
type RefreshTokenStore interface {
	// SaveRefreshToken inserts the record and assigns its numeric ID.
	SaveRefreshToken(ctx context.Context, t *RefreshToken) error
	FindRefreshTokenByID(ctx context.Context, id int64) (*RefreshToken, error)
	// DeleteRefreshToken removes the record. Deleting a missing record
	// returns ErrNotFound; callers treat that as success.
	DeleteRefreshToken(ctx context.Context, id int64) error
}

// Mailer delivers a raw verification secret out of band. Delivery failures
// are logged by the service and never surfaced to the caller.
type Mailer interface {
	SendVerificationSecret(ctx context.Context, address, secret, locale string) error
}

// CredentialSource tags how a request presented its token material.
type CredentialSource uint8

const (
	// CredentialNone means the request carried no token material.
	CredentialNone CredentialSource = iota
	// CredentialCookie means the request authenticated via the access or
	// refresh cookie. Cookie clients are subject to CSRF validation.
	CredentialCookie
	// CredentialBearer means the request supplied an explicit token via the
	// x-access-token or Authorization header. Exempt from CSRF validation.
	CredentialBearer
)

// Credentials is the token material of a request, resolved once per request
// so that the CSRF applicability rule is a single branch.
type Credentials struct {
	Source CredentialSource
	// AccessToken is the access-token cookie value or the bearer token
	// (with or without the "Bearer " prefix).
	AccessToken string
	// RefreshCookie is the refresh-token cookie value "{id}-{secret}".
	// Only set for cookie credentials.
	RefreshCookie string
}

// AuthResult is returned by Service.AuthenticateRequest. A nil User means
// the request proceeds as anonymous. The result is non-nil even when an
// authorization error is returned so that cookie directives are preserved.
type AuthResult struct {
	// User is the resolved user with credential hashes stripped, or nil.
	User *User
	// RenewedAccessToken is set when a valid refresh cookie transparently
	// minted a fresh access token; the HTTP layer must set it as the new
	// access-token cookie.
	RenewedAccessToken string
	RenewedTTL         time.Duration
	// ClearCookies instructs the HTTP layer to expire both session cookies
	// (the refresh cookie was missing, stale, or tampered with).
	ClearCookies bool
}

// Session is issued by login and by the verification-secret flows.
type Session struct {
	User        *User
	AccessToken string
	AccessTTL   time.Duration
	// RefreshCookie is "{id}-{secret}" when a persistent session was
	// requested, empty otherwise.
	RefreshCookie string
	RefreshTTL    time.Duration
}

// SignupRequest is the input for Service.Signup.
type SignupRequest struct {
	Email    string
	Username string
	Password string
	Locale   string
}

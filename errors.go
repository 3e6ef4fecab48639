package authcore

import "errors"

// Error taxonomy surfaced to callers. The web layer maps each sentinel to a
// structured JSON body and HTTP status; nothing else should escape the
// request boundary.
var (
	// ErrInvalidCredentials is returned on login failure. It never
	// distinguishes a bad identifier from a bad password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken covers malformed, expired, or already-consumed
	// verification secrets and access tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrAccountBlocked is returned when a pending-verification account
	// attempts a restricted action.
	ErrAccountBlocked = errors.New("account blocked")
	// ErrPasswordNotStrong is returned when a password fails the policy
	// check before hashing.
	ErrPasswordNotStrong = errors.New("password not strong enough")
	// ErrWrongAuthMethod is returned when an SSO-origin account attempts a
	// password flow. Clients should direct the user to the SSO login path.
	ErrWrongAuthMethod = errors.New("wrong authentication method")
	// ErrUnauthorized is returned when no valid identity could be resolved
	// and one is required, or when the signing secret is not configured.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the identity is known but the role tier
	// is insufficient. Distinct from ErrUnauthorized.
	ErrForbidden = errors.New("forbidden")
	// ErrDuplicateIdentifier is returned by Signup when the email or
	// username is already taken.
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
	// ErrServiceNotReady is returned when the service is used before Build
	// completed with all required dependencies.
	ErrServiceNotReady = errors.New("service not initialized")

	// ErrNotFound is the storage-level sentinel returned by UserStore and
	// RefreshTokenStore implementations when a record does not exist.
	ErrNotFound = errors.New("record not found")
)

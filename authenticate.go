package authcore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/classtape/authcore/password"
)

// AuthenticateRequest resolves the identity behind a request's token
// material and enforces the minimum tier. The result is non-nil even when
// an error is returned, so the HTTP layer can always apply its cookie
// directives (clearing a dead session, installing a renewed access token).
//
// The resolution order is fixed: requests with no material short-circuit to
// anonymous when the endpoint is public; a missing signing secret fails
// closed before any credential is inspected; cookie credentials fall back
// from the access token to the refresh cookie; bearer credentials get no
// refresh fallback.
func (s *Service) AuthenticateRequest(ctx context.Context, creds Credentials, min Tier) (*AuthResult, error) {
	res := &AuthResult{}
	if s == nil {
		return res, ErrServiceNotReady
	}

	material := creds.AccessToken != "" || creds.RefreshCookie != ""

	// Public endpoint, nothing presented: anonymous, no further checks.
	if !material && min == TierPublic {
		return res, nil
	}

	// Without a signing secret no token can be trusted. Any presented
	// material and any tier requirement is rejected outright.
	if s.codec == nil {
		s.log.Error("authentication attempted without signing secret")
		return res, ErrUnauthorized
	}

	if !material {
		return res, ErrUnauthorized
	}

	var userID int64
	switch creds.Source {
	case CredentialCookie:
		id, renewed, ttl, err := s.resolveCookie(ctx, creds)
		if err != nil {
			return res, err
		}
		if id == 0 {
			// Dead session: the refresh cookie was absent, stale, or
			// tampered with. Tell the client to drop both cookies.
			res.ClearCookies = true
			if min == TierPublic {
				return res, nil
			}
			return res, ErrUnauthorized
		}
		userID = id
		res.RenewedAccessToken = renewed
		res.RenewedTTL = ttl

	case CredentialBearer:
		// No refresh fallback and no graceful degrade: a bearer token that
		// fails verification is tampering or expiry the client must handle.
		claims, err := s.codec.Verify(strings.TrimPrefix(creds.AccessToken, "Bearer "))
		if err != nil {
			return res, ErrUnauthorized
		}
		userID = claims.UserID

	default:
		return res, ErrUnauthorized
	}

	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Token outlived the account. Treat as anonymous rather than
			// an error so stale clients degrade instead of erroring.
			res.ClearCookies = creds.Source == CredentialCookie
			if min == TierPublic {
				return res, nil
			}
			return res, ErrUnauthorized
		}
		return res, fmt.Errorf("find user: %w", err)
	}

	res.User = user.Sanitized()

	if min == TierPublic {
		return res, nil
	}
	if s.cfg.Account.RequireVerified && user.Pending() {
		return res, ErrAccountBlocked
	}
	if !user.Tier.Meets(min) {
		return res, ErrForbidden
	}
	return res, nil
}

// resolveCookie verifies the access cookie and, when it is missing or no
// longer valid, redeems the refresh cookie for a freshly minted access
// token. A zero user ID with a nil error means the session is dead.
func (s *Service) resolveCookie(ctx context.Context, creds Credentials) (userID int64, renewed string, ttl time.Duration, err error) {
	if creds.AccessToken != "" {
		claims, verr := s.codec.Verify(creds.AccessToken)
		if verr == nil {
			return claims.UserID, "", 0, nil
		}
	}
	if creds.RefreshCookie == "" {
		return 0, "", 0, nil
	}
	return s.redeemRefresh(ctx, creds.RefreshCookie)
}

// redeemRefresh validates a "{id}-{secret}" refresh cookie against its
// server-side record and mints a replacement access token. Every stale
// path (unparseable cookie, missing record, record past its TTL, secret
// mismatch) reports the session as dead without error.
func (s *Service) redeemRefresh(ctx context.Context, cookie string) (userID int64, renewed string, ttl time.Duration, err error) {
	id, secret, ok := splitRefreshCookie(cookie)
	if !ok {
		s.metrics.refresh("malformed")
		return 0, "", 0, nil
	}

	record, err := s.refresh.FindRefreshTokenByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.metrics.refresh("revoked")
			return 0, "", 0, nil
		}
		return 0, "", 0, fmt.Errorf("find refresh token: %w", err)
	}

	if s.now().Sub(record.IssuedAt) > s.cfg.Refresh.TTL {
		s.metrics.refresh("expired")
		return 0, "", 0, nil
	}

	match, err := s.hasher.VerifyStored(record.SecretHash, secret)
	if err != nil {
		if errors.Is(err, password.ErrMalformedHash) {
			s.log.Error("stored refresh secret hash unreadable",
				zap.Int64("refresh_id", id), zap.Error(err))
			s.metrics.refresh("malformed")
			return 0, "", 0, nil
		}
		return 0, "", 0, fmt.Errorf("verify refresh secret: %w", err)
	}
	if !match {
		s.metrics.refresh("mismatch")
		return 0, "", 0, nil
	}

	access, err := s.codec.Sign(record.UserID, s.cfg.Token.AccessTTL)
	if err != nil {
		return 0, "", 0, fmt.Errorf("sign access token: %w", err)
	}
	s.metrics.refresh("success")
	return record.UserID, access, s.cfg.Token.AccessTTL, nil
}

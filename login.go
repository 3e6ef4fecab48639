package authcore

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// refreshSecretBytes is the entropy of a refresh-cookie secret before
// base64url encoding.
const refreshSecretBytes = 32

// Login verifies an identifier (email or username) and password. On
// success it issues a fresh access token; when persistent is set it also
// creates a server-side refresh record and returns the matching refresh
// cookie value. The error never reveals whether the identifier or the
// password was wrong.
func (s *Service) Login(ctx context.Context, identifier, plaintext string, persistent bool) (*Session, error) {
	if s == nil || s.codec == nil {
		return nil, ErrServiceNotReady
	}

	user, err := s.users.FindUserByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.metrics.login("failure")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if user.SSOProvider != "" {
		s.metrics.login("wrong_method")
		return nil, ErrWrongAuthMethod
	}

	ok, err := s.hasher.VerifyStored(user.PasswordHash, plaintext)
	if err != nil {
		s.log.Error("stored password hash unreadable",
			zap.Int64("user_id", user.ID), zap.Error(err))
		s.metrics.login("failure")
		return nil, ErrInvalidCredentials
	}
	if !ok {
		s.metrics.login("failure")
		return nil, ErrInvalidCredentials
	}

	if s.cfg.Account.RequireVerified && user.Pending() {
		s.metrics.login("blocked")
		return nil, ErrAccountBlocked
	}

	sess, err := s.issueSession(ctx, user, s.cfg.Token.AccessTTL, persistent)
	if err != nil {
		return nil, err
	}
	s.metrics.login("success")
	s.log.Info("login",
		zap.Int64("user_id", user.ID),
		zap.Bool("persistent", persistent),
		zap.String("ip", clientIPFromContext(ctx)))
	return sess, nil
}

// Logout revokes the refresh record named by the request's refresh cookie.
// It is idempotent: a missing or unparseable cookie and an already-deleted
// record both succeed, so repeated logouts and logouts of expired sessions
// behave identically to the first call.
func (s *Service) Logout(ctx context.Context, creds Credentials) error {
	if s == nil {
		return ErrServiceNotReady
	}
	defer s.metrics.logout()

	id, _, ok := splitRefreshCookie(creds.RefreshCookie)
	if !ok {
		return nil
	}
	if err := s.refresh.DeleteRefreshToken(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return fmt.Errorf("delete refresh token: %w", err)
	}
	s.log.Info("logout", zap.Int64("refresh_id", id))
	return nil
}

// issueSession mints the access token and, when persistent, the backing
// refresh record. The returned session carries the sanitized user.
func (s *Service) issueSession(ctx context.Context, user *User, accessTTL time.Duration, persistent bool) (*Session, error) {
	access, err := s.codec.Sign(user.ID, accessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	sess := &Session{
		User:        user.Sanitized(),
		AccessToken: access,
		AccessTTL:   accessTTL,
	}
	if !persistent {
		return sess, nil
	}

	secret, err := newRefreshSecret()
	if err != nil {
		return nil, fmt.Errorf("generate refresh secret: %w", err)
	}
	secretHash, err := s.hasher.Hash(secret)
	if err != nil {
		return nil, fmt.Errorf("hash refresh secret: %w", err)
	}
	record := &RefreshToken{
		UserID:     user.ID,
		SecretHash: secretHash,
		IssuedAt:   s.now(),
	}
	if err := s.refresh.SaveRefreshToken(ctx, record); err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}

	sess.RefreshCookie = formatRefreshCookie(record.ID, secret)
	sess.RefreshTTL = s.cfg.Refresh.TTL
	return sess, nil
}

func newRefreshSecret() (string, error) {
	buf := make([]byte, refreshSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func formatRefreshCookie(id int64, secret string) string {
	return strconv.FormatInt(id, 10) + "-" + secret
}

// splitRefreshCookie parses "{id}-{secret}". The split is on the first
// dash only; the secret itself is dash-free base64url but the parse does
// not depend on that.
func splitRefreshCookie(value string) (int64, string, bool) {
	idPart, secret, found := strings.Cut(value, "-")
	if !found || secret == "" {
		return 0, "", false
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", false
	}
	return id, secret, true
}

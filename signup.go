package authcore

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Signup creates a pending-verification account and issues its email
// verification secret. The password policy runs before any hashing; the
// store enforces identifier uniqueness and surfaces ErrDuplicateIdentifier.
// The created account does not get a session: the caller logs in once the
// address is verified (or immediately, when verification is not required).
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*User, error) {
	if s == nil {
		return nil, ErrServiceNotReady
	}

	if err := CheckPasswordStrength(req.Password); err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := &User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Username:     strings.TrimSpace(req.Username),
		PasswordHash: passwordHash,
		Registration: registrationPendingEmail,
		Tier:         s.cfg.Account.DefaultTier,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	secret, err := s.stampVerificationSecret(user)
	if err != nil {
		return nil, err
	}
	if err := s.users.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	s.deliverSecret(ctx, user.Email, secret, req.Locale, "signup")
	s.metrics.signup()
	s.log.Info("signup",
		zap.Int64("user_id", user.ID),
		zap.String("ip", clientIPFromContext(ctx)))
	return user.Sanitized(), nil
}

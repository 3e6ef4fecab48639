package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classtape/authcore/password"
)

// RequestPasswordReset issues a one-time reset secret for the account
// behind identifier and mails it out of band. An unknown identifier
// succeeds silently so the endpoint cannot be used to enumerate accounts.
// SSO-origin accounts have no password to reset and get ErrWrongAuthMethod.
func (s *Service) RequestPasswordReset(ctx context.Context, identifier, locale string) error {
	if s == nil {
		return ErrServiceNotReady
	}

	user, err := s.users.FindUserByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.metrics.verify("reset", "unknown_identifier")
			s.log.Info("password reset for unknown identifier",
				zap.String("ip", clientIPFromContext(ctx)))
			return nil
		}
		return fmt.Errorf("find user: %w", err)
	}
	if user.SSOProvider != "" {
		return ErrWrongAuthMethod
	}

	secret, err := s.stampVerificationSecret(user)
	if err != nil {
		return err
	}
	user.UpdatedAt = s.now()
	if err := s.users.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("save user: %w", err)
	}

	s.deliverSecret(ctx, user.Email, secret, locale, "reset")
	s.log.Info("password reset requested", zap.Int64("user_id", user.ID))
	return nil
}

// UpdatePassword consumes a reset secret and installs a new password. The
// strength policy runs before the secret is consumed so a weak password
// does not burn the one-time secret. On success the secret is invalidated
// and a fresh non-persistent session is issued with the extended TTL, since
// the caller just proved control of the account's mailbox.
func (s *Service) UpdatePassword(ctx context.Context, identifier, secret, newPassword string) (*Session, error) {
	if s == nil || s.codec == nil {
		return nil, ErrServiceNotReady
	}

	if err := CheckPasswordStrength(newPassword); err != nil {
		return nil, err
	}

	user, err := s.users.FindUserByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.metrics.verify("reset", "failure")
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user.SSOProvider != "" {
		return nil, ErrWrongAuthMethod
	}

	if err := s.checkVerificationSecret(user, secret); err != nil {
		s.metrics.verify("reset", "failure")
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	// Consume the secret and install the password in a single save so a
	// storage failure leaves the old state intact.
	user.PasswordHash = passwordHash
	user.VerificationHash = ""
	user.UpdatedAt = s.now()
	if err := s.users.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	sess, err := s.issueSession(ctx, user, s.cfg.Token.VerifiedAccessTTL, false)
	if err != nil {
		return nil, err
	}
	s.metrics.verify("reset", "success")
	s.log.Info("password updated", zap.Int64("user_id", user.ID))
	return sess, nil
}

// VerifyEmail consumes a signup verification secret, marks the account
// registration complete, and issues a fresh non-persistent session with the
// extended TTL.
func (s *Service) VerifyEmail(ctx context.Context, identifier, secret string) (*Session, error) {
	if s == nil || s.codec == nil {
		return nil, ErrServiceNotReady
	}

	user, err := s.users.FindUserByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.metrics.verify("signup", "failure")
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := s.checkVerificationSecret(user, secret); err != nil {
		s.metrics.verify("signup", "failure")
		return nil, err
	}

	user.VerificationHash = ""
	user.Registration = registrationComplete
	user.UpdatedAt = s.now()
	if err := s.users.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	sess, err := s.issueSession(ctx, user, s.cfg.Token.VerifiedAccessTTL, false)
	if err != nil {
		return nil, err
	}
	s.metrics.verify("signup", "success")
	s.log.Info("email verified", zap.Int64("user_id", user.ID))
	return sess, nil
}

// stampVerificationSecret generates a fresh one-time secret, stores its
// hash and issue time on the user, and returns the raw secret for
// delivery. The caller is responsible for saving the user.
func (s *Service) stampVerificationSecret(user *User) (string, error) {
	secret := uuid.NewString()
	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return "", fmt.Errorf("hash verification secret: %w", err)
	}
	user.VerificationHash = hash
	user.VerificationIssuedAt = s.now()
	return secret, nil
}

// checkVerificationSecret validates a presented secret against the user's
// stored hash and issue window. Every failure collapses to ErrInvalidToken
// and leaves the stored hash untouched, so a wrong guess does not
// invalidate the outstanding secret.
func (s *Service) checkVerificationSecret(user *User, secret string) error {
	if user.VerificationHash == "" || secret == "" {
		return ErrInvalidToken
	}
	if s.now().Sub(user.VerificationIssuedAt) > s.cfg.Verification.TTL {
		return ErrInvalidToken
	}
	match, err := s.hasher.VerifyStored(user.VerificationHash, secret)
	if err != nil {
		if errors.Is(err, password.ErrMalformedHash) {
			s.log.Error("stored verification hash unreadable",
				zap.Int64("user_id", user.ID), zap.Error(err))
			return ErrInvalidToken
		}
		return fmt.Errorf("verify secret: %w", err)
	}
	if !match {
		return ErrInvalidToken
	}
	return nil
}

// deliverSecret hands the raw secret to the mailer without blocking the
// request. Delivery failures are logged, never returned: the secret is
// already committed, and the caller can re-request if the mail is lost.
func (s *Service) deliverSecret(ctx context.Context, address, secret, locale, flow string) {
	if locale == "" {
		locale = localeFromContext(ctx)
	}
	if s.mailer == nil {
		s.log.Warn("no mailer configured, verification secret not delivered",
			zap.String("flow", flow))
		return
	}
	go func(ctx context.Context) {
		if err := s.mailer.SendVerificationSecret(ctx, address, secret, locale); err != nil {
			s.log.Error("verification mail delivery failed",
				zap.String("flow", flow), zap.Error(err))
			return
		}
		s.metrics.verify(flow, "sent")
	}(context.WithoutCancel(ctx))
}

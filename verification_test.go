package authcore_test

import (
	"context"
	"testing"
	"time"

	"github.com/classtape/authcore"
)

func TestSignupDeliversVerificationSecret(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	u, err := env.svc.Signup(ctx, authcore.SignupRequest{
		Email:    "Ada@Example.com",
		Username: "ada",
		Password: "Abcdefg1",
		Locale:   "de",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if u.Email != "ada@example.com" {
		t.Fatalf("expected normalized email, got %q", u.Email)
	}
	if !u.Pending() {
		t.Fatal("new account must be pending verification")
	}
	if u.PasswordHash != "" || u.VerificationHash != "" {
		t.Fatal("signup reply must not carry credential hashes")
	}

	d := env.mailer.wait(t)
	if d.Address != "ada@example.com" {
		t.Fatalf("expected delivery to the account address, got %q", d.Address)
	}
	if d.Locale != "de" {
		t.Fatalf("expected locale passthrough, got %q", d.Locale)
	}
	if d.Secret == "" {
		t.Fatal("expected a raw secret in the delivery")
	}
	if stored := env.users.get(u.ID).VerificationHash; stored == d.Secret {
		t.Fatal("raw secret must never be stored")
	}
}

func TestSignupRejectsWeakPassword(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, password := range []string{"", "Ab1", "abcdefg1", "ABCDEFG1", "Abcdefgh"} {
		_, err := env.svc.Signup(context.Background(), authcore.SignupRequest{
			Email:    "ada@example.com",
			Username: "ada",
			Password: password,
		})
		requireErrIs(t, err, authcore.ErrPasswordNotStrong)
	}
}

func TestSignupRejectsDuplicateIdentifier(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedUser(t, "ada@example.com", "ada", "Abcdefg1")

	_, err := env.svc.Signup(context.Background(), authcore.SignupRequest{
		Email:    "ada@example.com",
		Username: "other",
		Password: "Abcdefg1",
	})
	requireErrIs(t, err, authcore.ErrDuplicateIdentifier)

	_, err = env.svc.Signup(context.Background(), authcore.SignupRequest{
		Email:    "other@example.com",
		Username: "ada",
		Password: "Abcdefg1",
	})
	requireErrIs(t, err, authcore.ErrDuplicateIdentifier)
}

func TestVerifyEmailCompletesRegistration(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	u, err := env.svc.Signup(ctx, authcore.SignupRequest{
		Email:    "ada@example.com",
		Username: "ada",
		Password: "Abcdefg1",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	secret := env.mailer.wait(t).Secret

	sess, err := env.svc.VerifyEmail(ctx, "ada", secret)
	if err != nil {
		t.Fatalf("verify email: %v", err)
	}
	if sess.User.Pending() {
		t.Fatal("registration must be complete after verification")
	}
	if sess.AccessToken == "" {
		t.Fatal("expected a fresh session")
	}
	if sess.AccessTTL != env.cfg.Token.VerifiedAccessTTL {
		t.Fatalf("expected extended TTL %v, got %v", env.cfg.Token.VerifiedAccessTTL, sess.AccessTTL)
	}
	if sess.RefreshCookie != "" {
		t.Fatal("verification sessions are not persistent")
	}
	if env.users.get(u.ID).Registration != 0 {
		t.Fatal("stored registration flag must be cleared")
	}
}

func TestVerificationSecretIsSingleUse(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	if _, err := env.svc.Signup(ctx, authcore.SignupRequest{
		Email:    "ada@example.com",
		Username: "ada",
		Password: "Abcdefg1",
	}); err != nil {
		t.Fatalf("signup: %v", err)
	}
	secret := env.mailer.wait(t).Secret

	if _, err := env.svc.VerifyEmail(ctx, "ada", secret); err != nil {
		t.Fatalf("first use: %v", err)
	}
	_, err := env.svc.VerifyEmail(ctx, "ada", secret)
	requireErrIs(t, err, authcore.ErrInvalidToken)
}

func TestWrongSecretLeavesStoredSecretUsable(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	u, err := env.svc.Signup(ctx, authcore.SignupRequest{
		Email:    "ada@example.com",
		Username: "ada",
		Password: "Abcdefg1",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	secret := env.mailer.wait(t).Secret
	storedBefore := env.users.get(u.ID).VerificationHash

	_, err = env.svc.VerifyEmail(ctx, "ada", "not-the-secret")
	requireErrIs(t, err, authcore.ErrInvalidToken)

	if env.users.get(u.ID).VerificationHash != storedBefore {
		t.Fatal("a wrong guess must not invalidate the outstanding secret")
	}
	if _, err := env.svc.VerifyEmail(ctx, "ada", secret); err != nil {
		t.Fatalf("correct secret after wrong guess: %v", err)
	}
}

func TestVerificationSecretExpires(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	if _, err := env.svc.Signup(ctx, authcore.SignupRequest{
		Email:    "ada@example.com",
		Username: "ada",
		Password: "Abcdefg1",
	}); err != nil {
		t.Fatalf("signup: %v", err)
	}
	secret := env.mailer.wait(t).Secret

	env.clock.Advance(env.cfg.Verification.TTL + time.Minute)

	_, err := env.svc.VerifyEmail(ctx, "ada", secret)
	requireErrIs(t, err, authcore.ErrInvalidToken)
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.seedUser(t, "ada@example.com", "ada", "Abcdefg1")
	ctx := context.Background()

	before := env.users.get(id).VerificationHash
	if err := env.svc.RequestPasswordReset(ctx, "ada", ""); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	secret := env.mailer.wait(t).Secret

	stamped := env.users.get(id).VerificationHash
	if stamped == "" || stamped == before {
		t.Fatal("reset must stamp a fresh verification hash")
	}

	sess, err := env.svc.UpdatePassword(ctx, "ada", secret, "Newpassw0rd")
	if err != nil {
		t.Fatalf("update password: %v", err)
	}
	if sess.AccessToken == "" {
		t.Fatal("expected a fresh session")
	}

	// Old password no longer works, new one does.
	_, err = env.svc.Login(ctx, "ada", "Abcdefg1", false)
	requireErrIs(t, err, authcore.ErrInvalidCredentials)
	if _, err := env.svc.Login(ctx, "ada", "Newpassw0rd", false); err != nil {
		t.Fatalf("login with new password: %v", err)
	}

	// The reset secret was consumed.
	_, err = env.svc.UpdatePassword(ctx, "ada", secret, "Anotherpass1")
	requireErrIs(t, err, authcore.ErrInvalidToken)
}

func TestResetUnknownIdentifierSucceedsSilently(t *testing.T) {
	env := newTestEnv(t, nil)

	if err := env.svc.RequestPasswordReset(context.Background(), "nobody", ""); err != nil {
		t.Fatalf("expected silent success, got %v", err)
	}
	select {
	case d := <-env.mailer.ch:
		t.Fatalf("unexpected delivery: %+v", d)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWeakNewPasswordDoesNotBurnSecret(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedUser(t, "ada@example.com", "ada", "Abcdefg1")
	ctx := context.Background()

	if err := env.svc.RequestPasswordReset(ctx, "ada", ""); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	secret := env.mailer.wait(t).Secret

	_, err := env.svc.UpdatePassword(ctx, "ada", secret, "weak")
	requireErrIs(t, err, authcore.ErrPasswordNotStrong)

	if _, err := env.svc.UpdatePassword(ctx, "ada", secret, "Newpassw0rd"); err != nil {
		t.Fatalf("update after weak attempt: %v", err)
	}
}

func TestPasswordFlowsRejectSSOAccounts(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.seedUser(t, "ada@example.com", "ada", "Abcdefg1")
	env.users.get(id).SSOProvider = "campus-sso"
	ctx := context.Background()

	err := env.svc.RequestPasswordReset(ctx, "ada", "")
	requireErrIs(t, err, authcore.ErrWrongAuthMethod)

	_, err = env.svc.UpdatePassword(ctx, "ada", "whatever", "Newpassw0rd")
	requireErrIs(t, err, authcore.ErrWrongAuthMethod)
}

package web

import (
	"net/http"

	"github.com/gorilla/csrf"

	"github.com/classtape/authcore"
)

// userReply is the client-visible projection of a user. Credential hashes
// are stripped by the service before the user ever reaches this layer.
type userReply struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Tier     string `json:"tier"`
	Pending  bool   `json:"pending"`
}

func newUserReply(u *authcore.User) userReply {
	return userReply{
		ID:       u.ID,
		Email:    u.Email,
		Username: u.Username,
		Tier:     u.Tier.String(),
		Pending:  u.Pending(),
	}
}

type versionReply struct {
	Version string   `json:"version"`
	Routes  []string `json:"routes"`
}

// handleVersion reports the build version and mirrors the CSRF header
// token. Clients call it first to obtain both halves of the double-submit
// pair.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(csrfTokenHeader, csrf.Token(r))
	s.respondJSON(w, http.StatusOK, versionReply{
		Version: s.cfg.BuildVersion,
		Routes: []string{
			"signup", "login", "logout", "rejecttoken",
			"resetpassword", "updatepassword", "verifyemail", "me",
		},
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	res, ok := s.authenticate(w, r, authcore.TierBase)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, newUserReply(res.User))
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
		Locale   string `json:"locale"`
	}
	if !s.decodeRequest(w, r, &req) {
		return
	}

	ctx := authcore.WithClientIP(r.Context(), clientIP(r))
	user, err := s.svc.Signup(ctx, authcore.SignupRequest{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
		Locale:   req.Locale,
	})
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, newUserReply(user))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
		Persistent bool   `json:"persistent"`
	}
	if !s.decodeRequest(w, r, &req) {
		return
	}

	ctx := authcore.WithClientIP(r.Context(), clientIP(r))
	sess, err := s.svc.Login(ctx, req.Identifier, req.Password, req.Persistent)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.setSessionCookies(w, sess)
	s.respondJSON(w, http.StatusOK, newUserReply(sess.User))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := authcore.WithClientIP(r.Context(), clientIP(r))
	if err := s.svc.Logout(ctx, credentialsFromRequest(r)); err != nil {
		s.respondError(w, err)
		return
	}
	s.clearSessionCookies(w)
	s.respondJSON(w, http.StatusOK, struct{}{})
}

// handleRejectToken drops the session cookies without touching the
// server-side refresh record. Clients use it to proactively discard a
// token they no longer trust.
func (s *Server) handleRejectToken(w http.ResponseWriter, r *http.Request) {
	s.clearSessionCookies(w)
	s.respondJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identifier string `json:"identifier"`
		Locale     string `json:"locale"`
	}
	if !s.decodeRequest(w, r, &req) {
		return
	}

	ctx := authcore.WithClientIP(r.Context(), clientIP(r))
	if err := s.svc.RequestPasswordReset(ctx, req.Identifier, req.Locale); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identifier  string `json:"identifier"`
		Secret      string `json:"secret"`
		NewPassword string `json:"newpassword"`
	}
	if !s.decodeRequest(w, r, &req) {
		return
	}

	ctx := authcore.WithClientIP(r.Context(), clientIP(r))
	sess, err := s.svc.UpdatePassword(ctx, req.Identifier, req.Secret, req.NewPassword)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.setSessionCookies(w, sess)
	s.respondJSON(w, http.StatusOK, newUserReply(sess.User))
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identifier string `json:"identifier"`
		Secret     string `json:"secret"`
	}
	if !s.decodeRequest(w, r, &req) {
		return
	}

	ctx := authcore.WithClientIP(r.Context(), clientIP(r))
	sess, err := s.svc.VerifyEmail(ctx, req.Identifier, req.Secret)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.setSessionCookies(w, sess)
	s.respondJSON(w, http.StatusOK, newUserReply(sess.User))
}

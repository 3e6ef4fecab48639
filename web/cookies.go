package web

import (
	"net/http"
	"time"

	"github.com/classtape/authcore"
)

const (
	// accessCookieName carries the signed access token.
	accessCookieName = "access-token"
	// refreshCookieName carries "{id}-{secret}" for persistent sessions.
	refreshCookieName = "refresh-token"

	// accessTokenHeader is the custom bearer header for non-cookie
	// clients; the standard Authorization header works too.
	accessTokenHeader = "x-access-token"
	// csrfTokenHeader is mirrored by the version endpoint and required
	// on mutating cookie-authenticated requests.
	csrfTokenHeader = "X-CSRF-Token"
)

// credentialsFromRequest resolves a request's token material exactly once.
// Explicit bearer headers win over cookies: a native client that sends
// both is treated as a bearer client and bypasses CSRF.
func credentialsFromRequest(r *http.Request) authcore.Credentials {
	if h := r.Header.Get(accessTokenHeader); h != "" {
		return authcore.Credentials{Source: authcore.CredentialBearer, AccessToken: h}
	}
	if h := r.Header.Get("Authorization"); h != "" {
		return authcore.Credentials{Source: authcore.CredentialBearer, AccessToken: h}
	}

	var creds authcore.Credentials
	if c, err := r.Cookie(accessCookieName); err == nil && c.Value != "" {
		creds.Source = authcore.CredentialCookie
		creds.AccessToken = c.Value
	}
	if c, err := r.Cookie(refreshCookieName); err == nil && c.Value != "" {
		creds.Source = authcore.CredentialCookie
		creds.RefreshCookie = c.Value
	}
	return creds
}

func (s *Server) setAccessCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) setRefreshCookie(w http.ResponseWriter, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// setSessionCookies applies a freshly issued session to the response.
func (s *Server) setSessionCookies(w http.ResponseWriter, sess *authcore.Session) {
	s.setAccessCookie(w, sess.AccessToken, sess.AccessTTL)
	if sess.RefreshCookie != "" {
		s.setRefreshCookie(w, sess.RefreshCookie, sess.RefreshTTL)
	}
}

// clearSessionCookies overwrites both session cookies with immediately
// expired values.
func (s *Server) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{accessCookieName, refreshCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: true,
			Secure:   s.cfg.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// Package web exposes the authcore service over HTTP: JSON handlers,
// session cookies, and CSRF protection for cookie-authenticated clients.
package web

import (
	"errors"
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/classtape/authcore"
)

const (
	apiPrefix = "/v1"

	csrfKeyLength = 32
)

// Config for the HTTP surface.
type Config struct {
	// CSRFKey is the 32-byte authentication key for the double-submit
	// CSRF cookie.
	CSRFKey []byte
	// CSRFMaxAge is the CSRF cookie lifetime in seconds.
	CSRFMaxAge int
	// SecureCookies marks all cookies Secure. Disable only for local
	// plain-HTTP development.
	SecureCookies bool
	// ReqBodySizeLimit caps request bodies in bytes. Zero means 8 KiB.
	ReqBodySizeLimit int64
	// BuildVersion is reported by the version endpoint.
	BuildVersion string
	// Metrics, when set, is served at /v1/metrics.
	Metrics http.Handler
}

// Server routes HTTP requests into an authcore.Service.
type Server struct {
	cfg Config
	svc *authcore.Service
	log *zap.Logger

	router *mux.Router
	// protected carries the CSRF middleware. Every session route lives
	// here so the CSRF cookie is (re)issued on any of them.
	protected *mux.Router
}

// New validates the config and builds the router.
func New(svc *authcore.Service, log *zap.Logger, cfg Config) (*Server, error) {
	if svc == nil {
		return nil, errors.New("service required")
	}
	if len(cfg.CSRFKey) != csrfKeyLength {
		return nil, errors.New("csrf key must be 32 bytes")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.ReqBodySizeLimit <= 0 {
		cfg.ReqBodySizeLimit = 8 * 1024
	}

	s := &Server{
		cfg:    cfg,
		svc:    svc,
		log:    log,
		router: mux.NewRouter(),
	}
	s.setupRouter()
	s.setupRoutes()
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRouter() {
	s.router.NotFoundHandler = http.HandlerFunc(s.handleNotFound)

	// Middleware runs in registration order.
	s.router.Use(closeBodyMiddleware)
	s.router.Use(s.bodySizeLimitMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoverMiddleware)

	// The protected subrouter uses the double-submit cookie method: the
	// middleware issues the CSRF cookie on every protected route, the
	// version handler mirrors the matching header token, and mutating
	// requests must present both. Bearer-token clients are exempt; the
	// wrapper skips validation for them before any handler runs.
	s.protected = s.router.NewRoute().Subrouter()
	s.protected.Use(s.csrfMiddleware())
}

func (s *Server) setupRoutes() {
	addRoute(s.protected, http.MethodGet, "/version", s.handleVersion)
	addRoute(s.protected, http.MethodGet, "/me", s.handleMe)
	addRoute(s.protected, http.MethodPost, "/signup", s.handleSignup)
	addRoute(s.protected, http.MethodPost, "/login", s.handleLogin)
	addRoute(s.protected, http.MethodPost, "/logout", s.handleLogout)
	addRoute(s.protected, http.MethodPost, "/rejecttoken", s.handleRejectToken)
	addRoute(s.protected, http.MethodPost, "/resetpassword", s.handleResetPassword)
	addRoute(s.protected, http.MethodPost, "/updatepassword", s.handleUpdatePassword)
	addRoute(s.protected, http.MethodPost, "/verifyemail", s.handleVerifyEmail)

	if s.cfg.Metrics != nil {
		s.router.Handle(apiPrefix+"/metrics", s.cfg.Metrics).Methods(http.MethodGet)
	}
}

func addRoute(router *mux.Router, method, route string, handler http.HandlerFunc) {
	router.HandleFunc(apiPrefix+route, handler).Methods(method)
}

// csrfMiddleware wraps gorilla/csrf so that validation applies only to
// cookie-authenticated requests. The check itself runs before routing
// reaches any handler, so a rejected forgery never touches a store.
func (s *Server) csrfMiddleware() mux.MiddlewareFunc {
	protect := csrf.Protect(
		s.cfg.CSRFKey,
		csrf.Path("/"),
		csrf.MaxAge(s.cfg.CSRFMaxAge),
		csrf.Secure(s.cfg.SecureCookies),
		csrf.HttpOnly(false),
		csrf.ErrorHandler(http.HandlerFunc(s.handleCSRFFailure)),
	)
	return func(next http.Handler) http.Handler {
		inner := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Only ambient-cookie clients are forgeable. Requests that
			// present a bearer token, or no credentials at all, skip
			// token validation but still receive the CSRF cookie.
			if credentialsFromRequest(r).Source != authcore.CredentialCookie {
				r = csrf.UnsafeSkipCheck(r)
			}
			inner.ServeHTTP(w, r)
		})
	}
}

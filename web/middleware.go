package web

import (
	"io"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/classtape/authcore"
)

// closeBodyMiddleware drains and closes request bodies so connections can
// be reused even when a handler bails early.
func closeBodyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		_, _ = io.Copy(io.Discard, r.Body)
		r.Body.Close()
	})
}

func (s *Server) bodySizeLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.ReqBodySizeLimit)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("ip", clientIP(r)),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				s.log.Error("handler panic",
					zap.Any("panic", p),
					zap.String("path", r.URL.Path),
					zap.ByteString("stack", debug.Stack()))
				s.respondInternalError(w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authenticate resolves the request identity, applies any cookie
// directives, and enforces min. On failure it writes the error response
// and returns false.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request, min authcore.Tier) (*authcore.AuthResult, bool) {
	ctx := authcore.WithClientIP(r.Context(), clientIP(r))
	res, err := s.svc.AuthenticateRequest(ctx, credentialsFromRequest(r), min)
	if res != nil {
		switch {
		case res.ClearCookies:
			s.clearSessionCookies(w)
		case res.RenewedAccessToken != "":
			s.setAccessCookie(w, res.RenewedAccessToken, res.RenewedTTL)
		}
	}
	if err != nil {
		s.respondError(w, err)
		return nil, false
	}
	return res, true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

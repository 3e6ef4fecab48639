package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/classtape/authcore"
)

// errorReply is the uniform error body. Code is machine-readable and
// stable; Message is advisory.
type errorReply struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorStatus maps service sentinels to HTTP status and error code.
// Anything outside this table is an internal error and gets logged.
var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{authcore.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{authcore.ErrInvalidToken, http.StatusUnauthorized, "invalid_token"},
	{authcore.ErrWrongAuthMethod, http.StatusUnauthorized, "wrong_auth_method"},
	{authcore.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{authcore.ErrAccountBlocked, http.StatusForbidden, "account_blocked"},
	{authcore.ErrForbidden, http.StatusForbidden, "forbidden"},
	{authcore.ErrPasswordNotStrong, http.StatusBadRequest, "password_not_strong"},
	{authcore.ErrDuplicateIdentifier, http.StatusBadRequest, "duplicate_identifier"},
	{authcore.ErrServiceNotReady, http.StatusServiceUnavailable, "service_unavailable"},
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("write response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			s.respondJSON(w, e.status, errorReply{Code: e.code, Message: e.err.Error()})
			return
		}
	}
	s.log.Error("internal error", zap.Error(err))
	s.respondInternalError(w)
}

func (s *Server) respondInternalError(w http.ResponseWriter) {
	s.respondJSON(w, http.StatusInternalServerError,
		errorReply{Code: "internal", Message: "internal server error"})
}

func (s *Server) handleCSRFFailure(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusForbidden,
		errorReply{Code: "csrf_required", Message: "missing or invalid CSRF token"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusNotFound,
		errorReply{Code: "not_found", Message: "no such route"})
}

// decodeRequest unmarshals a JSON body, rejecting unknown fields. A false
// return means the error response was already written.
func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.respondJSON(w, http.StatusBadRequest,
			errorReply{Code: "bad_request", Message: "malformed request body"})
		return false
	}
	return true
}

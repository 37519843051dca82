package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/TimurManjosov/pawswipe/internal/audit"
	"github.com/TimurManjosov/pawswipe/internal/auth"
	"github.com/TimurManjosov/pawswipe/internal/session"
	"github.com/TimurManjosov/pawswipe/internal/validation"
)

// MaxBodySize caps JSON request bodies.
const MaxBodySize = 1 << 20

// ===== HTTP Helpers =====

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a bounded JSON body into v and writes the error response
// itself when that fails. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodySize)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		RequestTooLargeError(w, r, "Request body exceeds 1MB")
		return false
	}
	BadRequestError(w, r, ErrCodeInvalidJSON, "Invalid JSON: "+err.Error())
	return false
}

// validationFailed writes a 400 for an invalid result.
func validationFailed(w http.ResponseWriter, r *http.Request, result *validation.ValidationResult) bool {
	if result.Valid {
		return false
	}
	ValidationError(w, r, "Validation failed", result.Errors)
	return true
}

// ===== Session context =====

type ctxKey int

const sessionKey ctxKey = iota

// sessionCtx resolves {id} to a live session.
func (s *Server) sessionCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if validationFailed(w, r, validation.ValidateSessionID(id)) {
			return
		}
		sess, err := s.sessions.Get(id)
		if err != nil {
			NotFoundError(w, r, ErrCodeSessionNotFound, "Session not found")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, sess)))
	})
}

func sessionFrom(r *http.Request) *session.Session {
	return r.Context().Value(sessionKey).(*session.Session)
}

// ===== Audit helpers =====

// recordAudit stamps the event with the request's id, caller and address.
func (s *Server) recordAudit(r *http.Request, e audit.Event) {
	if s.audit == nil {
		return
	}
	e.RequestID = middleware.GetReqID(r.Context())
	e.IPAddress = auth.GetIPAddress(r)
	if role, ok := auth.GetRoleFromContext(r.Context()); ok {
		e.Actor = string(role)
	} else {
		e.Actor = "anonymous"
	}
	s.audit.Log(e)
}

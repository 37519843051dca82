package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func newTestAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("reader-key"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	a, err := NewAuthenticator("admin-key", []string{"readonly:" + string(hash)})
	if err != nil {
		t.Fatalf("NewAuthenticator failed: %v", err)
	}
	return a
}

func TestAuthenticator_Authenticate(t *testing.T) {
	a := newTestAuthenticator(t)

	tests := []struct {
		name     string
		header   string
		wantOK   bool
		wantRole Role
	}{
		{"admin key", "Bearer admin-key", true, RoleAdmin},
		{"hashed readonly key", "Bearer reader-key", true, RoleReadonly},
		{"hashed key again hits cache", "Bearer reader-key", true, RoleReadonly},
		{"wrong key", "Bearer nope", false, ""},
		{"missing header", "", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := a.Authenticate(tt.header)
			if res.Authenticated != tt.wantOK || res.Role != tt.wantRole {
				t.Errorf("Authenticate(%q) = %+v", tt.header, res)
			}
		})
	}
}

func TestRequireAuth(t *testing.T) {
	a := newTestAuthenticator(t)
	handler := a.RequireAuth(RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if role, ok := GetRoleFromContext(r.Context()); !ok || role != RoleAdmin {
			t.Errorf("role missing from context: %v %v", role, ok)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"readonly is forbidden", "Bearer reader-key", http.StatusForbidden},
		{"admin passes", "Bearer admin-key", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/admin/reload", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRequireAuth_DisabledPassesThrough(t *testing.T) {
	a, err := NewAuthenticator("", nil)
	if err != nil {
		t.Fatal(err)
	}
	if a.Enabled() {
		t.Fatal("authenticator without keys should be disabled")
	}

	handler := a.RequireAuth(RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected pass-through, got %d", rec.Code)
	}
}

func TestNewAuthenticator_RejectsBadSpec(t *testing.T) {
	if _, err := NewAuthenticator("", []string{"admin"}); err == nil {
		t.Error("expected error for malformed spec")
	}
}

package auth

import (
	"context"
	"crypto/sha256"
	"net/http"
	"sync"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

// ContextKeyRole is the context key for storing the caller's role
const ContextKeyRole contextKey = "role"

// Authenticator checks bearer tokens against the plain admin key and the
// configured bcrypt hashes.
type Authenticator struct {
	adminKey string
	keys     []KeyEntry

	// verified caches successful bcrypt matches by token digest, since each
	// comparison costs tens of milliseconds.
	verified sync.Map // [32]byte -> Role

	// OnDenied renders rejected requests. Defaults to http.Error.
	OnDenied func(w http.ResponseWriter, r *http.Request, status int, msg string)
}

// NewAuthenticator parses the API_KEYS entries. With no admin key and no
// entries the authenticator is disabled and lets every request through.
func NewAuthenticator(adminKey string, specs []string) (*Authenticator, error) {
	a := &Authenticator{adminKey: adminKey}
	for _, spec := range specs {
		entry, err := ParseKeySpec(spec)
		if err != nil {
			return nil, err
		}
		a.keys = append(a.keys, entry)
	}
	return a, nil
}

// Enabled reports whether any key is configured.
func (a *Authenticator) Enabled() bool {
	return a != nil && (a.adminKey != "" || len(a.keys) > 0)
}

// AuthResult contains the result of an authentication attempt
type AuthResult struct {
	Authenticated bool
	Role          Role
	Error         string
}

// Authenticate authenticates a request using the Authorization header
func (a *Authenticator) Authenticate(authHeader string) AuthResult {
	token := ExtractBearerToken(authHeader)
	if token == "" {
		return AuthResult{Error: "missing bearer token"}
	}

	if a.adminKey != "" && VerifyAPIKeyConstantTime(token, a.adminKey) {
		return AuthResult{Authenticated: true, Role: RoleAdmin}
	}

	digest := sha256.Sum256([]byte(token))
	if role, ok := a.verified.Load(digest); ok {
		return AuthResult{Authenticated: true, Role: role.(Role)}
	}

	for _, k := range a.keys {
		if VerifyAPIKey(token, k.Hash) {
			a.verified.Store(digest, k.Role)
			return AuthResult{Authenticated: true, Role: k.Role}
		}
	}
	return AuthResult{Error: "invalid token"}
}

// RequireAuth is a middleware that requires a key with at least requiredRole.
// It is a pass-through when the authenticator is disabled.
func (a *Authenticator) RequireAuth(requiredRole Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !a.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result := a.Authenticate(r.Header.Get("Authorization"))
			if !result.Authenticated {
				a.deny(w, r, http.StatusUnauthorized, result.Error)
				return
			}
			if !HasPermission(result.Role, requiredRole) {
				a.deny(w, r, http.StatusForbidden, "insufficient permissions")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyRole, result.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (a *Authenticator) deny(w http.ResponseWriter, r *http.Request, status int, msg string) {
	if a.OnDenied != nil {
		a.OnDenied(w, r, status, msg)
		return
	}
	http.Error(w, msg, status)
}

// GetRoleFromContext extracts the role from the request context
func GetRoleFromContext(ctx context.Context) (Role, bool) {
	role, ok := ctx.Value(ContextKeyRole).(Role)
	return role, ok
}

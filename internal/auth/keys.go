// Package auth protects the operator endpoints (decision history, session
// listing, catalog reload) with bearer API keys.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// KeyPrefix is the prefix for all generated API keys
	KeyPrefix = "psk_"
	// KeyLength is the length of the random part of the key (32 bytes = 256 bits)
	KeyLength = 32
	// BCryptCost is the cost factor for bcrypt hashing
	BCryptCost = 12
)

// Role represents the access level of an API key
type Role string

const (
	// RoleReadonly may read decision history and session state.
	RoleReadonly Role = "readonly"
	// RoleAdmin may additionally evict sessions and force catalog reloads.
	RoleAdmin Role = "admin"
)

// ErrInvalidKeySpec is returned for API_KEYS entries not of the form role:hash.
var ErrInvalidKeySpec = errors.New("invalid api key spec")

// GenerateAPIKey generates a new random API key
func GenerateAPIKey() (string, error) {
	randomBytes := make([]byte, KeyLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return KeyPrefix + base64.RawURLEncoding.EncodeToString(randomBytes), nil
}

// HashAPIKey hashes an API key using bcrypt
func HashAPIKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), BCryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash key: %w", err)
	}
	return string(hash), nil
}

// VerifyAPIKey verifies an API key against a bcrypt hash
func VerifyAPIKey(key, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}

// VerifyAPIKeyConstantTime compares a presented key with the plain ADMIN_API_KEY.
func VerifyAPIKeyConstantTime(got, expected string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}

// ExtractBearerToken extracts the bearer token from an Authorization header
func ExtractBearerToken(authHeader string) string {
	token := strings.TrimSpace(authHeader)
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}

// ValidateRole checks if a given role string is valid
func ValidateRole(role string) bool {
	switch Role(role) {
	case RoleReadonly, RoleAdmin:
		return true
	default:
		return false
	}
}

// HasPermission reports whether userRole covers requiredRole.
// admin implies readonly.
func HasPermission(userRole Role, requiredRole Role) bool {
	switch userRole {
	case RoleAdmin:
		return requiredRole == RoleAdmin || requiredRole == RoleReadonly
	case RoleReadonly:
		return requiredRole == RoleReadonly
	default:
		return false
	}
}

// KeyEntry is one configured hashed key.
type KeyEntry struct {
	Role Role
	Hash string
}

// ParseKeySpec parses "role:bcrypt-hash". bcrypt hashes contain '$' but
// never ':', so the first colon separates the role.
func ParseKeySpec(spec string) (KeyEntry, error) {
	role, hash, ok := strings.Cut(strings.TrimSpace(spec), ":")
	if !ok || hash == "" {
		return KeyEntry{}, fmt.Errorf("%w: %q", ErrInvalidKeySpec, spec)
	}
	if !ValidateRole(role) {
		return KeyEntry{}, fmt.Errorf("%w: unknown role %q", ErrInvalidKeySpec, role)
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return KeyEntry{}, fmt.Errorf("%w: %v", ErrInvalidKeySpec, err)
	}
	return KeyEntry{Role: Role(role), Hash: hash}, nil
}

// Package authmw provides HTTP middleware for service authentication and
// caller identity. JWT issuance and verification happen at the upstream auth
// gateway; this package trusts the identity headers that gateway injects,
// guarded by a shared bearer token.
package authmw

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

// Roles the upstream gateway may assert for a caller.
const (
	RoleStudent   = "student"
	RoleCounselor = "counselor"
	RoleAdmin     = "admin"
	// RoleService identifies first-party backend callers, e.g. the report
	// intake service creating cases.
	RoleService = "service"
)

// Header names set by the auth gateway after it verifies the caller's JWT.
const (
	HeaderUserID = "X-User-Id"
	HeaderRole   = "X-User-Role"
)

// Identity is the authenticated caller as asserted by the gateway.
type Identity struct {
	UserID string
	Role   string
}

type identityKey struct{}

// BearerToken returns middleware that validates the Authorization header
// contains a Bearer token matching the expected value. Comparison uses
// constant-time equality to prevent timing side-channel attacks.
func BearerToken(token string) func(http.Handler) http.Handler {
	expected := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")

			if !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, `{"error":"missing or malformed authorization header"}`, http.StatusUnauthorized)
				return
			}

			got := []byte(auth[len("Bearer "):])

			if subtle.ConstantTimeCompare(got, expected) != 1 {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ExtractIdentity returns middleware that reads the gateway identity headers
// into the request context. Requests without both headers are rejected as
// unauthenticated.
func ExtractIdentity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := Identity{
				UserID: r.Header.Get(HeaderUserID),
				Role:   r.Header.Get(HeaderRole),
			}
			if id.UserID == "" || id.Role == "" {
				http.Error(w, `{"error":"authentication required"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole returns middleware that rejects callers whose asserted role is
// not in the allowed set. Must run after ExtractIdentity.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := FromContext(r.Context())
			if !ok {
				http.Error(w, `{"error":"authentication required"}`, http.StatusUnauthorized)
				return
			}
			if _, ok := allowed[id.Role]; !ok {
				http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithIdentity stores the caller identity in the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext extracts the caller identity, if present.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

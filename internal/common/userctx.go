package common

import (
	"context"
	"strings"
)

// UserContext holds the caller identity resolved from a bearer token or the
// X-Playground-User-ID header. When absent (nil) the server operates in
// single-tenant mode under the "default" user.
type UserContext struct {
	UserID string
	Source string // "bearer" or "header"
}

type contextKey int

const (
	userContextKey contextKey = iota
)

// DefaultUserID scopes requests that carry no identity.
const DefaultUserID = "default"

// WithUserContext stores a UserContext in the request context.
func WithUserContext(ctx context.Context, uc *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, uc)
}

// UserContextFromContext retrieves the UserContext from context, or nil if absent.
func UserContextFromContext(ctx context.Context) *UserContext {
	uc, _ := ctx.Value(userContextKey).(*UserContext)
	return uc
}

// ResolveUserID returns the UserID from context, or "default" when no user context is present.
func ResolveUserID(ctx context.Context) string {
	if uc := UserContextFromContext(ctx); uc != nil && strings.TrimSpace(uc.UserID) != "" {
		return strings.TrimSpace(uc.UserID)
	}
	return DefaultUserID
}

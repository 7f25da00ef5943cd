package auth

import (
	"context"
	"errors"
	"strings"
)

// Roles carried in tokens.
const (
	RoleInvestor = "investor"
	RoleAdmin    = "admin"
)

var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrUnauthenticated = errors.New("user context not found")
)

// UserContextKey is the key for user data in context
type UserContextKey struct{}

// UserContext is the validated (user id, role) pair handed to every core
// operation.
type UserContext struct {
	UserID uint64
	Email  string
	Role   string
	Token  string
}

// IsAdmin reports whether the caller holds the admin role.
func (u *UserContext) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// TokenValidator interface for validating tokens
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*UserContext, error)
}

// WithUser stores the authenticated user in ctx.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, UserContextKey{}, user)
}

// GetUserFromContext retrieves user context from the context
func GetUserFromContext(ctx context.Context) (*UserContext, error) {
	userCtx, ok := ctx.Value(UserContextKey{}).(*UserContext)
	if !ok || userCtx == nil {
		return nil, ErrUnauthenticated
	}
	return userCtx, nil
}

// ExtractToken extracts the token from "Bearer <token>" format
func ExtractToken(authHeader string) string {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Package middleware provides the gin middleware shared by every route group.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authpkg "github.com/davesep77/evolentra/pkg/auth"
)

// userKey is where the validated caller is also kept on the gin context.
const userKey = "auth.user"

// Auth validates the bearer token and stores the caller on the request
// context. Browsers cannot set headers on a websocket upgrade, so a token
// query parameter is accepted as a fallback.
func Auth(validator authpkg.TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			abort(c, http.StatusUnauthorized, "Unauthenticated")
			return
		}

		user, err := validator.ValidateToken(c.Request.Context(), token)
		if err != nil {
			abort(c, http.StatusUnauthorized, "Unauthenticated")
			return
		}

		c.Request = c.Request.WithContext(authpkg.WithUser(c.Request.Context(), user))
		c.Set(userKey, user)
		c.Next()
	}
}

// RequireAdmin rejects callers without the admin role. It must run after Auth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := authpkg.GetUserFromContext(c.Request.Context())
		if err != nil {
			abort(c, http.StatusUnauthorized, "Unauthenticated")
			return
		}
		if !user.IsAdmin() {
			abort(c, http.StatusForbidden, "Forbidden")
			return
		}
		c.Next()
	}
}

// CurrentUser returns the caller stored by Auth.
func CurrentUser(c *gin.Context) (*authpkg.UserContext, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*authpkg.UserContext)
	return user, ok && user != nil
}

func extractToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		return authpkg.ExtractToken(header)
	}
	return c.Query("token")
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message, "data": nil})
}

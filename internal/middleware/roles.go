package middleware

import (
	"net/http"                      // HTTP status codes
	"survivor_pool/internal/access" // Role checks
	"survivor_pool/internal/domain" // Domain models
	apperrors "survivor_pool/internal/errors"

	"github.com/gin-gonic/gin" // Gin web framework
)

// RequireRoles lets the request through only if the session actor holds one of roles.
// It must run after Session.
func RequireRoles(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := access.Require(Actor(c), roles...); err != nil {
			if apperrors.IsAuthentication(err) {
				abort(c, http.StatusUnauthorized, err) // No session on the context
				return
			}
			abort(c, http.StatusForbidden, err) // Role not allowed
			return
		}
		c.Next()
	}
}

package middleware

import (
	"net/http"                      // HTTP status codes
	"survivor_pool/internal/access" // Session resolution
	"survivor_pool/internal/domain" // Domain models
	apperrors "survivor_pool/internal/errors"

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// ActorKey is the gin context key holding the authenticated *domain.User
const ActorKey = "actor"

// Session resolves the Authorization header into a user and stores it on the context
func Session(gate *access.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := gate.Resolve(c.Request.Context(), c.GetHeader("Authorization")) // Verify token and load user
		if err != nil {
			if apperrors.IsAuthentication(err) {
				abort(c, http.StatusUnauthorized, err)
				return
			}
			logrus.WithError(err).Error("Session lookup failed") // Store failure, not a bad token
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": apperrors.CodeInternal})
			return
		}
		c.Set(ActorKey, user) // Store actor in context
		c.Next()              // Proceed to the next handler
	}
}

// Actor returns the user stored by Session, or nil
func Actor(c *gin.Context) *domain.User {
	v, ok := c.Get(ActorKey)
	if !ok {
		return nil
	}
	user, _ := v.(*domain.User)
	return user
}

// abort stops the chain with a taxonomy error body
func abort(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "code": apperrors.Code(err)})
}

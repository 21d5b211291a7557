package api

import (
	"net/http" // HTTP status codes

	apperrors "survivor_pool/internal/errors"

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// statusByCode maps stable error codes to HTTP statuses
var statusByCode = map[string]int{
	apperrors.CodeNotFound:           http.StatusNotFound,
	apperrors.CodeConflict:           http.StatusConflict,
	apperrors.CodeInvalidArgument:    http.StatusBadRequest,
	apperrors.CodeInvalidToken:       http.StatusBadRequest,
	apperrors.CodeUnauthenticated:    http.StatusUnauthorized,
	apperrors.CodeInvalidCredentials: http.StatusUnauthorized,
	apperrors.CodeUnauthorized:       http.StatusForbidden,
	apperrors.CodeForbidden:          http.StatusForbidden,
	apperrors.CodeUnverified:         http.StatusForbidden,
	apperrors.CodeLocked:             http.StatusForbidden,
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"` // Human readable message
	Code  string `json:"code"`  // Stable machine code
}

// StatusFor returns the HTTP status for err
func StatusFor(err error) int {
	if status, ok := statusByCode[apperrors.Code(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// respondError writes err as JSON. Errors outside the taxonomy are logged and
// reported with a generic message.
func respondError(c *gin.Context, err error) {
	code := apperrors.Code(err)
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logrus.WithFields(logrus.Fields{
			"method": c.Request.Method, // HTTP method
			"path":   c.FullPath(),     // Route pattern
			"error":  err.Error(),      // Underlying failure
		}).Error("Request failed")
		c.AbortWithStatusJSON(status, ErrorResponse{Error: "internal error", Code: code})
		return
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

// bindError reports a malformed request body
func bindError(c *gin.Context, err error) {
	respondError(c, apperrors.NewValidationError("body", err.Error()))
}

package api

import (
	"net/http" // HTTP status codes
	"strings"  // URL joining

	"survivor_pool/internal/service" // Identity operations

	"github.com/gin-gonic/gin" // Gin web framework
)

// RegisterRequest is the body of POST /register
type RegisterRequest struct {
	Email    string `json:"email" form:"email" binding:"required"`       // Email must be provided
	Password string `json:"password" form:"password" binding:"required"` // Password must be provided
}

// LoginRequest is the body of POST /login
type LoginRequest struct {
	Email    string `json:"email" form:"email" binding:"required"`       // Email must be provided
	Password string `json:"password" form:"password" binding:"required"` // Password must be provided
}

// ResendRequest is the body of POST /resend-confirmation
type ResendRequest struct {
	Email string `json:"email" form:"email" binding:"required"` // Email must be provided
}

// RegisterHandler creates an account and mails its confirmation link.
// The link is echoed back outside production so local clients can follow it.
func RegisterHandler(svc *service.IdentityService, isProd bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind JSON or form body
		if err := c.ShouldBind(&req); err != nil {
			bindError(c, err)
			return
		}
		res, err := svc.Register(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			respondError(c, err)
			return
		}
		body := gin.H{
			"message": "Registration successful, check your email to confirm", // Status message
			"email":   res.User.Email,                                         // Registered email
		}
		if !isProd {
			body["confirm_url"] = res.ConfirmURL // Development convenience
		}
		c.JSON(http.StatusCreated, body)
	}
}

// ConfirmHandler redeems a confirmation token from the mailed link
func ConfirmHandler(svc *service.IdentityService, frontendURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := svc.Confirm(c.Request.Context(), c.Query("token"))
		if err != nil {
			respondError(c, err)
			return
		}
		if frontendURL != "" {
			c.Redirect(http.StatusFound, strings.TrimRight(frontendURL, "/")+"/login?confirmed=1") // Back to the app
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Email confirmed", "email": user.Email})
	}
}

// ResendConfirmationHandler mails a fresh link. The answer is the same for every address.
func ResendConfirmationHandler(svc *service.IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResendRequest // Bind JSON or form body
		if err := c.ShouldBind(&req); err != nil {
			bindError(c, err)
			return
		}
		if err := svc.ResendConfirmation(c.Request.Context(), req.Email); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "If the account exists and is unconfirmed, a new link was sent"})
	}
}

// LoginHandler authenticates a user and returns a session token
func LoginHandler(svc *service.IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON or form body
		if err := c.ShouldBind(&req); err != nil {
			bindError(c, err)
			return
		}
		res, err := svc.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, res) // Email, role and token
	}
}

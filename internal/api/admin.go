package api

import (
	"net/http" // HTTP status codes

	"survivor_pool/internal/middleware" // Session actor
	"survivor_pool/internal/service"    // Pool operations

	"github.com/gin-gonic/gin" // Gin web framework
)

// VerifyEntryRequest is the body of POST /verify-entry
type VerifyEntryRequest struct {
	EntryID uint `json:"entry_id" form:"entry_id" binding:"required"` // Entry to approve
}

// UpdateRoleRequest is the body of POST /update-role
type UpdateRoleRequest struct {
	Email string `json:"email" form:"email" binding:"required"` // Target user
	Role  string `json:"role" form:"role" binding:"required"`   // player, manager or admin
}

// DashboardHandler returns every user with nested entries and picks
func DashboardHandler(svc *service.LedgerService) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, cached, err := svc.Dashboard(c.Request.Context(), middleware.Actor(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"users":  users,  // Nested users, entries and picks
			"cached": cached, // Indicate response is from cache
		})
	}
}

// ListUsersHandler returns all users with role, verification and entry count
func ListUsersHandler(svc *service.IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := svc.ListUsers(c.Request.Context(), middleware.Actor(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"users": users})
	}
}

// VerifyEntryHandler approves an entry to play
func VerifyEntryHandler(svc *service.LedgerService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req VerifyEntryRequest // Bind JSON or form body
		if err := c.ShouldBind(&req); err != nil {
			bindError(c, err)
			return
		}
		entry, err := svc.VerifyEntry(c.Request.Context(), middleware.Actor(c), req.EntryID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Entry verified", "entry": entry})
	}
}

// UpdateRoleHandler changes the role of a user
func UpdateRoleHandler(svc *service.IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateRoleRequest // Bind JSON or form body
		if err := c.ShouldBind(&req); err != nil {
			bindError(c, err)
			return
		}
		user, err := svc.UpdateRole(c.Request.Context(), middleware.Actor(c), req.Email, req.Role)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "Role updated", // Status message
			"email":   user.Email,     // Target user
			"role":    user.Role,      // New role
		})
	}
}

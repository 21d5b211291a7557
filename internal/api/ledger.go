package api

import (
	"net/http" // HTTP status codes
	"strconv"  // Path parameter parsing

	apperrors "survivor_pool/internal/errors"
	"survivor_pool/internal/middleware" // Session actor
	"survivor_pool/internal/service"    // Ledger operations

	"github.com/gin-gonic/gin" // Gin web framework
)

// CreateEntryRequest is the body of POST /entry. Email defaults to the caller.
type CreateEntryRequest struct {
	Email    string `json:"email" form:"email"`                          // Owner, staff may name anyone
	Nickname string `json:"nickname" form:"nickname" binding:"required"` // Display name
}

// SubmitPickRequest is the body of POST /pick
type SubmitPickRequest struct {
	EntryID uint   `json:"entry_id" form:"entry_id" binding:"required"` // Entry making the pick
	Week    int    `json:"week" form:"week"`                            // Season week
	Team    string `json:"team" form:"team" binding:"required"`         // Team picked
}

// UpdatePickRequest is the body of PUT /pick/:id
type UpdatePickRequest struct {
	Week int    `json:"week" form:"week"`                    // New week
	Team string `json:"team" form:"team" binding:"required"` // New team
}

// CreateEntryHandler opens an unverified entry
func CreateEntryHandler(svc *service.LedgerService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateEntryRequest // Bind JSON or form body
		if err := c.ShouldBind(&req); err != nil {
			bindError(c, err)
			return
		}
		actor := middleware.Actor(c)
		email := req.Email
		if email == "" {
			email = actor.Email // Default to the caller
		}
		entry, err := svc.CreateEntry(c.Request.Context(), actor, email, req.Nickname)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"message":  "Entry created, awaiting verification", // Status message
			"entry_id": entry.ID,                               // New entry ID
			"entry":    entry,                                  // Entry details
		})
	}
}

// ListEntriesHandler lists the entries of ?email=, or of the caller
func ListEntriesHandler(svc *service.LedgerService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := middleware.Actor(c)
		entries, err := svc.ListEntriesForUser(c.Request.Context(), actor, c.DefaultQuery("email", actor.Email))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"entries": entries})
	}
}

// SubmitPickHandler records a weekly pick
func SubmitPickHandler(svc *service.LedgerService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SubmitPickRequest // Bind JSON or form body
		if err := c.ShouldBind(&req); err != nil {
			bindError(c, err)
			return
		}
		pick, err := svc.SubmitPick(c.Request.Context(), middleware.Actor(c), req.EntryID, req.Week, req.Team)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, pick)
	}
}

// UpdatePickHandler edits a pick while its week is open
func UpdatePickHandler(svc *service.LedgerService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			respondError(c, err)
			return
		}
		var req UpdatePickRequest // Bind JSON or form body
		if err := c.ShouldBind(&req); err != nil {
			bindError(c, err)
			return
		}
		pick, err := svc.UpdatePick(c.Request.Context(), middleware.Actor(c), id, req.Week, req.Team)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, pick)
	}
}

// ListPicksHandler lists the picks of ?email=, or of the caller
func ListPicksHandler(svc *service.LedgerService) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := middleware.Actor(c)
		picks, err := svc.ListPicksForUser(c.Request.Context(), actor, c.DefaultQuery("email", actor.Email))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"picks": picks})
	}
}

// pathID parses the :id path parameter
func pathID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.NewValidationError("id", "must be a positive integer")
	}
	return uint(id), nil
}

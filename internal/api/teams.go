package api

import (
	"net/http" // HTTP status codes
	"strconv"  // Query parsing

	apperrors "survivor_pool/internal/errors"
	"survivor_pool/internal/middleware" // Session actor
	"survivor_pool/internal/service"    // Registry operations

	"github.com/gin-gonic/gin" // Gin web framework
)

// TeamRequest is the body of POST /teams and PUT /teams/:id
type TeamRequest struct {
	Name string `json:"name" form:"name" binding:"required"` // Team name
}

// ResultRequest is the body of POST /team-result
type ResultRequest struct {
	Week   int    `json:"week" form:"week"`                        // Season week
	Team   string `json:"team" form:"team" binding:"required"`     // Team name
	Result string `json:"result" form:"result" binding:"required"` // win or loss
}

// ListTeamsHandler returns the registered teams
func ListTeamsHandler(svc *service.RegistryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		teams, cached, err := svc.ListTeams(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"teams": teams, "cached": cached})
	}
}

// CreateTeamHandler registers a team
func CreateTeamHandler(svc *service.RegistryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TeamRequest // Bind JSON or form body
		if err := c.ShouldBind(&req); err != nil {
			bindError(c, err)
			return
		}
		team, err := svc.CreateTeam(c.Request.Context(), middleware.Actor(c), req.Name)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, team)
	}
}

// RenameTeamHandler renames a team
func RenameTeamHandler(svc *service.RegistryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			respondError(c, err)
			return
		}
		var req TeamRequest // Bind JSON or form body
		if err := c.ShouldBind(&req); err != nil {
			bindError(c, err)
			return
		}
		team, err := svc.RenameTeam(c.Request.Context(), middleware.Actor(c), id, req.Name)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, team)
	}
}

// DeleteTeamHandler removes a team
func DeleteTeamHandler(svc *service.RegistryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c)
		if err != nil {
			respondError(c, err)
			return
		}
		if err := svc.DeleteTeam(c.Request.Context(), middleware.Actor(c), id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Team deleted"})
	}
}

// SetResultHandler records a team's outcome for a week
func SetResultHandler(svc *service.RegistryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResultRequest // Bind JSON or form body
		if err := c.ShouldBind(&req); err != nil {
			bindError(c, err)
			return
		}
		result, err := svc.SetResult(c.Request.Context(), middleware.Actor(c), req.Week, req.Team, req.Result)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// ListResultsHandler returns recorded results, optionally for one ?week=
func ListResultsHandler(svc *service.RegistryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var week *int
		if w := c.Query("week"); w != "" {
			v, err := strconv.Atoi(w)
			if err != nil {
				respondError(c, apperrors.ErrInvalidWeek)
				return
			}
			week = &v
		}
		results, cached, err := svc.ListResults(c.Request.Context(), week)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": results, "cached": cached})
	}
}

package api

import (
	"context"  // Health check timeout
	"net/http" // HTTP status codes
	"time"     // Health check timeout

	"survivor_pool/internal/access"     // Session resolution
	"survivor_pool/internal/domain"     // Roles
	"survivor_pool/internal/middleware" // Session, roles and request log
	"survivor_pool/internal/service"    // Pool operations

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// Deps are the collaborators the HTTP layer is built from
type Deps struct {
	DB             *gorm.DB                 // Pinged by /healthz
	Gate           *access.Gate             // Session resolution
	Identity       *service.IdentityService // Accounts and roles
	Ledger         *service.LedgerService   // Entries and picks
	Registry       *service.RegistryService // Teams and results
	Logger         *logrus.Logger           // Request log, nil disables it
	IsProd         bool                     // Hide development helpers
	FrontendURL    string                   // Redirect target after /confirm
	TrustedProxies []string                 // Proxies gin trusts for client IPs
}

// NewRouter builds the gin engine with every route of the pool
func NewRouter(d Deps) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery())
	if d.Logger != nil {
		r.Use(middleware.Logger(d.Logger))
	}

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies(d.TrustedProxies); err != nil {
		return nil, err
	}

	// Public routes
	r.GET("/healthz", healthHandler(d.DB))
	r.POST("/register", RegisterHandler(d.Identity, d.IsProd))            // Registration endpoint
	r.GET("/confirm", ConfirmHandler(d.Identity, d.FrontendURL))          // Email confirmation link
	r.POST("/resend-confirmation", ResendConfirmationHandler(d.Identity)) // New confirmation link
	r.POST("/login", LoginHandler(d.Identity))                            // Login endpoint
	r.GET("/teams", ListTeamsHandler(d.Registry))                         // Team registry
	r.GET("/team-results", ListResultsHandler(d.Registry))                // Recorded results

	// Routes for any signed in user
	session := r.Group("")
	session.Use(middleware.Session(d.Gate))
	session.POST("/entry", CreateEntryHandler(d.Ledger))  // Create entry endpoint
	session.GET("/entries", ListEntriesHandler(d.Ledger)) // List entries endpoint
	session.POST("/pick", SubmitPickHandler(d.Ledger))    // Submit pick endpoint
	session.PUT("/pick/:id", UpdatePickHandler(d.Ledger)) // Update pick endpoint
	session.GET("/picks", ListPicksHandler(d.Ledger))     // List picks endpoint

	// Manager and admin routes
	staff := session.Group("")
	staff.Use(middleware.RequireRoles(access.Staff...))
	staff.POST("/verify-entry", VerifyEntryHandler(d.Ledger)) // Verify entry endpoint
	staff.GET("/admin", DashboardHandler(d.Ledger))           // Admin dashboard

	// Admin only routes
	admin := session.Group("")
	admin.Use(middleware.RequireRoles(domain.RoleAdmin))
	admin.GET("/admin/users", ListUsersHandler(d.Identity))   // List users endpoint
	admin.POST("/update-role", UpdateRoleHandler(d.Identity)) // Update role endpoint
	admin.POST("/teams", CreateTeamHandler(d.Registry))       // Create team endpoint
	admin.PUT("/teams/:id", RenameTeamHandler(d.Registry))    // Rename team endpoint
	admin.DELETE("/teams/:id", DeleteTeamHandler(d.Registry)) // Delete team endpoint
	admin.POST("/team-result", SetResultHandler(d.Registry))  // Record result endpoint

	return r, nil
}

// healthHandler reports whether the database answers
func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			logrus.WithError(err).Warn("Health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

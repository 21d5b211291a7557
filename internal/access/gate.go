// Package access resolves callers from signed session tokens and authorizes them by role.
package access

import (
	"context" // Request context
	"errors"  // Error inspection
	"fmt"     // Error wrapping
	"strings" // Header parsing

	"survivor_pool/internal/auth"   // Token verification
	"survivor_pool/internal/domain" // Domain models
	apperrors "survivor_pool/internal/errors"

	"gorm.io/gorm" // GORM ORM library
)

// Staff are the roles allowed to run pool operations on behalf of other users
var Staff = []domain.Role{domain.RoleManager, domain.RoleAdmin}

// Gate turns a bearer credential into a loaded user
type Gate struct {
	db     *gorm.DB
	tokens *auth.Tokens
}

// NewGate creates a gate backed by db and tokens
func NewGate(db *gorm.DB, tokens *auth.Tokens) *Gate {
	return &Gate{db: db, tokens: tokens}
}

// Resolve verifies a session token and loads its user fresh from the store,
// so role changes take effect on the next request.
func (g *Gate) Resolve(ctx context.Context, credential string) (*domain.User, error) {
	credential = BearerToken(credential)
	if credential == "" {
		return nil, apperrors.ErrMissingSession
	}
	claims, err := g.tokens.Verify(credential, auth.PurposeSession)
	if err != nil {
		return nil, apperrors.ErrMissingSession
	}
	var user domain.User
	if err := g.db.WithContext(ctx).First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrMissingSession // Account removed since the token was issued
		}
		return nil, fmt.Errorf("load session user: %w", err)
	}
	return &user, nil
}

// BearerToken strips an optional "Bearer " prefix from an Authorization header value
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

// Require authorizes actor only if its role is one of roles. It never mutates state.
func Require(actor *domain.User, roles ...domain.Role) error {
	if actor == nil {
		return apperrors.ErrMissingSession
	}
	for _, role := range roles {
		if actor.Role == role {
			return nil
		}
	}
	return apperrors.ErrInsufficientRole
}

// IsStaff reports whether actor is a manager or admin
func IsStaff(actor *domain.User) bool {
	return Require(actor, Staff...) == nil
}

// RequireOwnerOrStaff authorizes the owner of a resource or any staff member
func RequireOwnerOrStaff(actor *domain.User, ownerID uint) error {
	if actor == nil {
		return apperrors.ErrMissingSession
	}
	if actor.ID == ownerID || IsStaff(actor) {
		return nil
	}
	return apperrors.ErrNotEntryOwner
}

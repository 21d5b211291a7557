// Package service implements the pool's operations: identity, the entry and
// pick ledger, and the team and result registry. Every exported method runs
// in one transaction and reports failures as internal/errors values.
package service

import (
	"context" // Request context
	"errors"  // Error inspection
	"fmt"     // Error wrapping
	"strings" // Input normalization

	"survivor_pool/internal/access"   // Ownership checks
	"survivor_pool/internal/deadline" // Week bounds
	"survivor_pool/internal/domain"   // Domain models
	apperrors "survivor_pool/internal/errors"

	"gorm.io/gorm" // GORM ORM library
)

// findUserByEmail looks a user up by normalized email
func findUserByEmail(tx *gorm.DB, email string) (*domain.User, error) {
	var user domain.User
	err := tx.Where("email_key = ?", domain.NormalizeEmail(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// requireTeam fails with ErrUnknownTeam unless name is registered
func requireTeam(tx *gorm.DB, name string) error {
	var count int64
	if err := tx.Model(&domain.Team{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check team: %w", err)
	}
	if count == 0 {
		return apperrors.ErrUnknownTeam
	}
	return nil
}

// validWeek fails with ErrInvalidWeek outside 1..deadline.MaxWeek
func validWeek(week int) error {
	if !deadline.ValidWeek(week) {
		return apperrors.ErrInvalidWeek
	}
	return nil
}

// requireSelfOrStaff turns away a player naming another address before any
// lookup, so the answer does not depend on whether that address is registered.
func requireSelfOrStaff(actor *domain.User, email string) error {
	if actor == nil {
		return apperrors.ErrMissingSession
	}
	if access.IsStaff(actor) || domain.NormalizeEmail(email) == domain.NormalizeEmail(actor.Email) {
		return nil
	}
	return apperrors.ErrNotEntryOwner
}

// cleanName trims a user supplied name
func cleanName(s string) string {
	return strings.TrimSpace(s)
}

// inTx runs fn in a transaction bound to ctx
func inTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn)
}

package db

import (
	"fmt"                           // Error wrapping
	"survivor_pool/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus" // Logrus for structured logging
	"gorm.io/gorm"               // GORM ORM library
)

// Models lists every table in creation order
var Models = []any{
	&domain.User{},
	&domain.Entry{},
	&domain.Pick{},
	&domain.Team{},
	&domain.TeamResult{},
}

// Migrate performs automatic migration for the database schema, including
// the unique indexes on users.email_key, picks(entry_id, week) and
// team_results(week, team).
func Migrate(db *gorm.DB) error {
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	if err := db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logrus.Debug("Migration completed.") // Log successful migration
	return nil
}

// Package testutil holds shared fixtures for package tests: an in-memory
// database with the full schema, seeded users and a fixed clock.
package testutil

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"survivor_pool/internal/auth"
	"survivor_pool/internal/db"
	"survivor_pool/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestSecret signs tokens in tests
const TestSecret = "test-secret"

// DefaultPassword is the password of every seeded user
const DefaultPassword = "password123"

// SetupTestDB opens a private in-memory SQLite database and migrates it.
// It holds a single connection, so concurrent callers run their
// transactions one after another rather than side by side.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	return openTestDB(t, dsn, 1)
}

// SetupFileTestDB opens a migrated SQLite file in a temp dir with conns
// pooled connections, so transactions from different goroutines overlap.
func SetupFileTestDB(t *testing.T, conns int) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pool.db")
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	return openTestDB(t, dsn, conns)
}

// IsBusy reports whether err is SQLite turning a writer away on its lock
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "sqlite_busy")
}

func openTestDB(t *testing.T, dsn string, conns int) *gorm.DB {
	t.Helper()

	gdb, err := db.Open("sqlite", dsn, &db.Options{LogLevel: logger.Silent, MaxOpenConns: conns, MaxIdleConns: conns})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

// NewTokens returns a signer using TestSecret
func NewTokens() *auth.Tokens {
	return auth.NewTokens(TestSecret, time.Hour, time.Hour)
}

// FixedClock returns a clock frozen at at
func FixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

// CreateUser inserts a user directly, bypassing registration
func CreateUser(t *testing.T, gdb *gorm.DB, email string, role domain.Role, verified bool) *domain.User {
	t.Helper()

	hash, err := auth.HashPassword(DefaultPassword)
	require.NoError(t, err)

	user := &domain.User{
		Email:        email,
		EmailKey:     domain.NormalizeEmail(email),
		PasswordHash: hash,
		Verified:     verified,
		Role:         role,
	}
	require.NoError(t, gdb.Create(user).Error)
	return user
}

// CreateEntry inserts an entry for user
func CreateEntry(t *testing.T, gdb *gorm.DB, user *domain.User, nickname string, verified bool) *domain.Entry {
	t.Helper()

	entry := &domain.Entry{UserID: user.ID, Nickname: nickname, Verified: verified}
	require.NoError(t, gdb.Create(entry).Error)
	return entry
}

// CreateTeams registers team names
func CreateTeams(t *testing.T, gdb *gorm.DB, names ...string) {
	t.Helper()

	for _, name := range names {
		require.NoError(t, gdb.Create(&domain.Team{Name: name}).Error)
	}
}

// SessionFor issues a session token for user
func SessionFor(t *testing.T, tokens *auth.Tokens, user *domain.User) string {
	t.Helper()

	token, err := tokens.IssueSession(user.ID, user.Email)
	require.NoError(t, err)
	return token
}

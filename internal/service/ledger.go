package service

import (
	"context" // Request context
	"errors"  // Error inspection
	"fmt"     // Error wrapping
	"time"    // Timestamps in views

	"survivor_pool/internal/access"   // Role and ownership checks
	"survivor_pool/internal/cache"    // Listing cache
	"survivor_pool/internal/db"       // Constraint detection
	"survivor_pool/internal/deadline" // Week locking
	"survivor_pool/internal/domain"   // Domain models
	apperrors "survivor_pool/internal/errors"

	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// LedgerService owns entries and picks
type LedgerService struct {
	db     *gorm.DB
	policy *deadline.Policy
	cache  *cache.Cache
}

// NewLedgerService creates a ledger service
func NewLedgerService(db *gorm.DB, policy *deadline.Policy, c *cache.Cache) *LedgerService {
	return &LedgerService{db: db, policy: policy, cache: c}
}

// PickView is a pick joined with its entry
type PickView struct {
	ID            uint      `json:"id"`
	EntryID       uint      `json:"entry_id"`
	EntryNickname string    `json:"entry_nickname"`
	EntryVerified bool      `json:"entry_verified"`
	Week          int       `json:"week"`
	Team          string    `json:"team"`
	Deadline      time.Time `json:"deadline" gorm:"-"`
	Locked        bool      `json:"locked" gorm:"-"`
}

// DashboardPick is a pick inside the admin dashboard
type DashboardPick struct {
	ID   uint   `json:"id"`
	Week int    `json:"week"`
	Team string `json:"team"`
}

// DashboardEntry is an entry inside the admin dashboard
type DashboardEntry struct {
	ID       uint            `json:"id"`
	Nickname string          `json:"nickname"`
	Verified bool            `json:"verified"`
	Picks    []DashboardPick `json:"picks"`
}

// DashboardUser is one user of the admin dashboard
type DashboardUser struct {
	Email    string           `json:"email"`
	Role     domain.Role      `json:"role"`
	Verified bool             `json:"verified"`
	Entries  []DashboardEntry `json:"entries"`
}

// CreateEntry adds an unverified entry for the user with email. Players may
// only create entries for themselves.
func (s *LedgerService) CreateEntry(ctx context.Context, actor *domain.User, email, nickname string) (*domain.Entry, error) {
	nickname = cleanName(nickname)
	if nickname == "" || len(nickname) > 64 {
		return nil, apperrors.NewValidationError("nickname", "must be 1-64 characters")
	}

	if err := requireSelfOrStaff(actor, email); err != nil {
		return nil, err
	}

	var entry *domain.Entry
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		owner, err := findUserByEmail(tx, email)
		if err != nil {
			return err
		}
		if err := access.RequireOwnerOrStaff(actor, owner.ID); err != nil {
			return err
		}
		entry = &domain.Entry{UserID: owner.ID, Nickname: nickname, Verified: false}
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("failed to create entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.KeyDashboard)

	logrus.WithFields(logrus.Fields{
		"entry_id": entry.ID,       // New entry ID
		"user_id":  entry.UserID,   // Owner
		"nickname": entry.Nickname, // Display name
	}).Info("Entry created")
	return entry, nil
}

// VerifyEntry approves an entry to play. Managers and admins only; idempotent.
func (s *LedgerService) VerifyEntry(ctx context.Context, actor *domain.User, entryID uint) (*domain.Entry, error) {
	if err := access.Require(actor, access.Staff...); err != nil {
		return nil, err
	}

	var entry *domain.Entry
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		e, err := entryByID(tx, entryID)
		if err != nil {
			return err
		}
		entry = e
		if e.Verified {
			return nil
		}
		if err := tx.Model(e).Update("verified", true).Error; err != nil {
			return fmt.Errorf("failed to verify entry: %w", err)
		}
		e.Verified = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.KeyDashboard)

	logrus.WithFields(logrus.Fields{
		"entry_id": entry.ID, // Verified entry
		"actor_id": actor.ID, // Staff member
	}).Info("Entry verified")
	return entry, nil
}

// SubmitPick records the first pick of an entry for a week. A second pick for
// the same week fails with a conflict raised by the (entry_id, week) index.
func (s *LedgerService) SubmitPick(ctx context.Context, actor *domain.User, entryID uint, week int, team string) (*domain.Pick, error) {
	team = cleanName(team)
	if err := validWeek(week); err != nil {
		return nil, err
	}

	var pick *domain.Pick
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		entry, err := entryByID(tx, entryID)
		if err != nil {
			return err
		}
		if err := access.RequireOwnerOrStaff(actor, entry.UserID); err != nil {
			return err
		}
		if !entry.Verified {
			return apperrors.ErrEntryNotVerified
		}
		if err := requireTeam(tx, team); err != nil {
			return err
		}
		if s.policy.LocksNewPicks() && s.policy.IsLocked(week) {
			return apperrors.NewLockedError(week, s.policy.DeadlineFor(week))
		}

		pick = &domain.Pick{EntryID: entry.ID, Week: week, Team: team}
		if err := tx.Create(pick).Error; err != nil {
			if db.IsDuplicateKey(err) {
				return apperrors.ErrPickExists
			}
			return fmt.Errorf("failed to create pick: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.KeyDashboard)

	logrus.WithFields(logrus.Fields{
		"pick_id":  pick.ID, // New pick
		"entry_id": entryID, // Entry
		"week":     week,    // Week
		"team":     team,    // Team picked
	}).Info("Pick submitted")
	return pick, nil
}

// UpdatePick changes the week and team of an existing pick while the target
// week is open. A pick whose own week has locked cannot be moved elsewhere.
func (s *LedgerService) UpdatePick(ctx context.Context, actor *domain.User, pickID uint, week int, team string) (*domain.Pick, error) {
	team = cleanName(team)
	if err := validWeek(week); err != nil {
		return nil, err
	}

	var pick domain.Pick
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.First(&pick, pickID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrPickNotFound
			}
			return fmt.Errorf("failed to load pick: %w", err)
		}
		entry, err := entryByID(tx, pick.EntryID)
		if err != nil {
			return err
		}
		if err := access.RequireOwnerOrStaff(actor, entry.UserID); err != nil {
			return err
		}
		if s.policy.IsLocked(week) {
			return apperrors.NewLockedError(week, s.policy.DeadlineFor(week))
		}
		if pick.Week != week && s.policy.IsLocked(pick.Week) {
			return apperrors.ErrPickWeekLocked
		}
		if err := requireTeam(tx, team); err != nil {
			return err
		}

		// Moving onto a week the entry already holds trips the unique index
		if err := tx.Model(&pick).Updates(map[string]any{"week": week, "team": team}).Error; err != nil {
			if db.IsDuplicateKey(err) {
				return apperrors.ErrPickExists
			}
			return fmt.Errorf("failed to update pick: %w", err)
		}
		pick.Week, pick.Team = week, team
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.KeyDashboard)

	logrus.WithFields(logrus.Fields{
		"pick_id": pick.ID, // Updated pick
		"week":    week,    // New week
		"team":    team,    // New team
	}).Info("Pick updated")
	return &pick, nil
}

// ListPicksForUser returns the picks of every entry owned by the user with email
func (s *LedgerService) ListPicksForUser(ctx context.Context, actor *domain.User, email string) ([]PickView, error) {
	if err := requireSelfOrStaff(actor, email); err != nil {
		return nil, err
	}
	tx := s.db.WithContext(ctx)
	owner, err := findUserByEmail(tx, email)
	if err != nil {
		return nil, err
	}
	if err := access.RequireOwnerOrStaff(actor, owner.ID); err != nil {
		return nil, err
	}

	views := []PickView{}
	err = tx.Model(&domain.Pick{}).
		Select("picks.id, picks.entry_id, entries.nickname AS entry_nickname, entries.verified AS entry_verified, picks.week, picks.team").
		Joins("JOIN entries ON entries.id = picks.entry_id").
		Where("entries.user_id = ?", owner.ID).
		Order("entries.id, picks.week").
		Scan(&views).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list picks: %w", err)
	}
	for i := range views {
		views[i].Deadline = s.policy.DeadlineFor(views[i].Week)
		views[i].Locked = s.policy.IsLocked(views[i].Week)
	}
	return views, nil
}

// ListEntriesForUser returns the entries owned by the user with email
func (s *LedgerService) ListEntriesForUser(ctx context.Context, actor *domain.User, email string) ([]domain.Entry, error) {
	if err := requireSelfOrStaff(actor, email); err != nil {
		return nil, err
	}
	tx := s.db.WithContext(ctx)
	owner, err := findUserByEmail(tx, email)
	if err != nil {
		return nil, err
	}
	if err := access.RequireOwnerOrStaff(actor, owner.ID); err != nil {
		return nil, err
	}

	entries := []domain.Entry{}
	if err := tx.Where("user_id = ?", owner.ID).Order("id").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	return entries, nil
}

// Dashboard returns every user with nested entries and picks. Managers and
// admins only. cached reports whether the result was served from Redis.
func (s *LedgerService) Dashboard(ctx context.Context, actor *domain.User) (users []DashboardUser, cached bool, err error) {
	if err := access.Require(actor, access.Staff...); err != nil {
		return nil, false, err
	}
	return cache.Remember(ctx, s.cache, cache.KeyDashboard, func() ([]DashboardUser, error) {
		return s.loadDashboard(ctx)
	})
}

func (s *LedgerService) loadDashboard(ctx context.Context) ([]DashboardUser, error) {
	var users []domain.User
	err := s.db.WithContext(ctx).
		Preload("Entries", func(tx *gorm.DB) *gorm.DB { return tx.Order("entries.id") }).
		Preload("Entries.Picks", func(tx *gorm.DB) *gorm.DB { return tx.Order("picks.week") }).
		Order("users.id").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load dashboard: %w", err)
	}

	result := make([]DashboardUser, 0, len(users))
	for _, u := range users {
		du := DashboardUser{Email: u.Email, Role: u.Role, Verified: u.Verified, Entries: []DashboardEntry{}}
		for _, e := range u.Entries {
			de := DashboardEntry{ID: e.ID, Nickname: e.Nickname, Verified: e.Verified, Picks: []DashboardPick{}}
			for _, p := range e.Picks {
				de.Picks = append(de.Picks, DashboardPick{ID: p.ID, Week: p.Week, Team: p.Team})
			}
			du.Entries = append(du.Entries, de)
		}
		result = append(result, du)
	}
	return result, nil
}

// entryByID loads an entry by primary key
func entryByID(tx *gorm.DB, id uint) (*domain.Entry, error) {
	var entry domain.Entry
	if err := tx.First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to load entry: %w", err)
	}
	return &entry, nil
}

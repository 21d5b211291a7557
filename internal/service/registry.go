package service

import (
	"context" // Request context
	"errors"  // Error inspection
	"fmt"     // Error wrapping
	"time"    // Result timestamps

	"survivor_pool/internal/access" // Role checks
	"survivor_pool/internal/cache"  // Listing cache
	"survivor_pool/internal/db"     // Constraint detection
	"survivor_pool/internal/domain" // Domain models
	apperrors "survivor_pool/internal/errors"

	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
	"gorm.io/gorm/clause"        // Upsert clauses
)

// RegistryService owns the team list and weekly results
type RegistryService struct {
	db    *gorm.DB
	cache *cache.Cache
}

// NewRegistryService creates a registry service
func NewRegistryService(db *gorm.DB, c *cache.Cache) *RegistryService {
	return &RegistryService{db: db, cache: c}
}

// ListTeams returns all teams ordered by name
func (s *RegistryService) ListTeams(ctx context.Context) ([]domain.Team, bool, error) {
	return cache.Remember(ctx, s.cache, cache.KeyTeams, func() ([]domain.Team, error) {
		teams := []domain.Team{}
		if err := s.db.WithContext(ctx).Order("name").Find(&teams).Error; err != nil {
			return nil, fmt.Errorf("failed to list teams: %w", err)
		}
		return teams, nil
	})
}

// CreateTeam registers a team name. Admin only.
func (s *RegistryService) CreateTeam(ctx context.Context, actor *domain.User, name string) (*domain.Team, error) {
	if err := access.Require(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	name, err := validTeamName(name)
	if err != nil {
		return nil, err
	}

	team := &domain.Team{Name: name}
	if err := s.db.WithContext(ctx).Create(team).Error; err != nil {
		if db.IsDuplicateKey(err) {
			return nil, apperrors.ErrTeamExists
		}
		return nil, fmt.Errorf("failed to create team: %w", err)
	}
	s.cache.Invalidate(ctx, cache.KeyTeams)

	logrus.WithField("team", name).Info("Team created")
	return team, nil
}

// RenameTeam changes a team's name. Picks and results keep the old name. Admin only.
func (s *RegistryService) RenameTeam(ctx context.Context, actor *domain.User, id uint, name string) (*domain.Team, error) {
	if err := access.Require(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	name, err := validTeamName(name)
	if err != nil {
		return nil, err
	}

	var team domain.Team
	err = inTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.First(&team, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrTeamNotFound
			}
			return fmt.Errorf("failed to load team: %w", err)
		}
		if err := tx.Model(&team).Update("name", name).Error; err != nil {
			if db.IsDuplicateKey(err) {
				return apperrors.ErrTeamExists
			}
			return fmt.Errorf("failed to rename team: %w", err)
		}
		team.Name = name
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.KeyTeams)

	logrus.WithFields(logrus.Fields{
		"team_id": id,   // Renamed team
		"name":    name, // New name
	}).Info("Team renamed")
	return &team, nil
}

// DeleteTeam removes a team. Existing picks and results naming it are left alone. Admin only.
func (s *RegistryService) DeleteTeam(ctx context.Context, actor *domain.User, id uint) error {
	if err := access.Require(actor, domain.RoleAdmin); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Delete(&domain.Team{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete team: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrTeamNotFound
	}
	s.cache.Invalidate(ctx, cache.KeyTeams)

	logrus.WithField("team_id", id).Info("Team deleted")
	return nil
}

// SetResult records the outcome of a team for a week, replacing any earlier record. Admin only.
func (s *RegistryService) SetResult(ctx context.Context, actor *domain.User, week int, team, result string) (*domain.TeamResult, error) {
	if err := access.Require(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	r, ok := domain.ParseResult(result)
	if !ok {
		return nil, apperrors.ErrInvalidResult
	}
	if err := validWeek(week); err != nil {
		return nil, err
	}
	team = cleanName(team)

	var saved domain.TeamResult
	err := inTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := requireTeam(tx, team); err != nil {
			return err
		}
		row := &domain.TeamResult{Week: week, Team: team, Result: r, UpdatedAt: time.Now().UTC()}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "week"}, {Name: "team"}},
			DoUpdates: clause.AssignmentColumns([]string{"result", "updated_at"}),
		}).Create(row).Error
		if err != nil {
			return fmt.Errorf("failed to save result: %w", err)
		}
		// Reload, the insert may have been an update with another ID
		return tx.Where("week = ? AND team = ?", week, team).First(&saved).Error
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.KeyResults)

	logrus.WithFields(logrus.Fields{
		"week":   week, // Week
		"team":   team, // Team
		"result": r,    // Outcome
	}).Info("Result recorded")
	return &saved, nil
}

// ListResults returns results ordered by week then team. A nil week lists
// the whole season, which is the only cached form.
func (s *RegistryService) ListResults(ctx context.Context, week *int) ([]domain.TeamResult, bool, error) {
	load := func() ([]domain.TeamResult, error) {
		results := []domain.TeamResult{}
		q := s.db.WithContext(ctx).Order("week").Order("team")
		if week != nil {
			q = q.Where("week = ?", *week)
		}
		if err := q.Find(&results).Error; err != nil {
			return nil, fmt.Errorf("failed to list results: %w", err)
		}
		return results, nil
	}
	if week != nil {
		if err := validWeek(*week); err != nil {
			return nil, false, err
		}
		results, err := load()
		return results, false, err
	}
	return cache.Remember(ctx, s.cache, cache.KeyResults, load)
}

// validTeamName trims name and rejects empty or oversized names
func validTeamName(name string) (string, error) {
	name = cleanName(name)
	if name == "" || len(name) > 100 {
		return "", apperrors.NewValidationError("name", "must be 1-100 characters")
	}
	return name, nil
}

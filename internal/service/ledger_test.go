package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"survivor_pool/internal/cache"
	"survivor_pool/internal/deadline"
	"survivor_pool/internal/domain"
	apperrors "survivor_pool/internal/errors"
	"survivor_pool/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ledgerFixture seeds a player with one verified and one unverified entry
type ledgerFixture struct {
	db         *gorm.DB
	svc        *LedgerService
	admin      *domain.User
	manager    *domain.User
	player     *domain.User
	other      *domain.User
	verified   *domain.Entry
	unverified *domain.Entry
}

// beforeWeek1 is one hour before the first deadline
var beforeWeek1 = deadline.DefaultBase.Add(-time.Hour)

// afterWeek1 is one hour after the first deadline, week 2 still open
var afterWeek1 = deadline.DefaultBase.Add(time.Hour)

func newLedger(t *testing.T, now time.Time, opts ...deadline.Option) *ledgerFixture {
	t.Helper()

	gdb := testutil.SetupTestDB(t)
	opts = append([]deadline.Option{deadline.WithClock(testutil.FixedClock(now))}, opts...)
	policy := deadline.NewPolicy(deadline.DefaultBase, opts...)

	f := &ledgerFixture{db: gdb, svc: NewLedgerService(gdb, policy, cache.New(nil, 0))}
	f.admin = testutil.CreateUser(t, gdb, "admin@example.com", domain.RoleAdmin, true)
	f.manager = testutil.CreateUser(t, gdb, "manager@example.com", domain.RoleManager, true)
	f.player = testutil.CreateUser(t, gdb, "player@example.com", domain.RolePlayer, true)
	f.other = testutil.CreateUser(t, gdb, "other@example.com", domain.RolePlayer, true)
	f.verified = testutil.CreateEntry(t, gdb, f.player, "lucky", true)
	f.unverified = testutil.CreateEntry(t, gdb, f.player, "pending", false)
	testutil.CreateTeams(t, gdb, "Eagles", "Bears", "Lions")
	return f
}

func TestCreateEntry(t *testing.T) {
	ctx := context.Background()
	f := newLedger(t, beforeWeek1)

	t.Run("player creates own entry", func(t *testing.T) {
		entry, err := f.svc.CreateEntry(ctx, f.player, "Player@Example.com", "  second chance ")
		require.NoError(t, err)
		assert.Equal(t, f.player.ID, entry.UserID)
		assert.Equal(t, "second chance", entry.Nickname)
		assert.False(t, entry.Verified)
	})

	t.Run("player cannot create for someone else", func(t *testing.T) {
		_, err := f.svc.CreateEntry(ctx, f.other, "player@example.com", "hijack")
		assert.ErrorIs(t, err, apperrors.ErrNotEntryOwner)
	})

	t.Run("manager creates for anyone", func(t *testing.T) {
		entry, err := f.svc.CreateEntry(ctx, f.manager, "other@example.com", "assisted")
		require.NoError(t, err)
		assert.Equal(t, f.other.ID, entry.UserID)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := f.svc.CreateEntry(ctx, f.admin, "ghost@example.com", "boo")
		assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
	})

	t.Run("empty nickname", func(t *testing.T) {
		_, err := f.svc.CreateEntry(ctx, f.player, "player@example.com", "   ")
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestVerifyEntry(t *testing.T) {
	ctx := context.Background()
	f := newLedger(t, beforeWeek1)

	_, err := f.svc.VerifyEntry(ctx, f.player, f.unverified.ID)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientRole)

	entry, err := f.svc.VerifyEntry(ctx, f.manager, f.unverified.ID)
	require.NoError(t, err)
	assert.True(t, entry.Verified)

	// Idempotent
	entry, err = f.svc.VerifyEntry(ctx, f.admin, f.unverified.ID)
	require.NoError(t, err)
	assert.True(t, entry.Verified)

	_, err = f.svc.VerifyEntry(ctx, f.admin, 9999)
	assert.ErrorIs(t, err, apperrors.ErrEntryNotFound)
}

func TestSubmitPick(t *testing.T) {
	ctx := context.Background()

	t.Run("verified entry picks a registered team", func(t *testing.T) {
		f := newLedger(t, beforeWeek1)

		pick, err := f.svc.SubmitPick(ctx, f.player, f.verified.ID, 1, "Eagles")
		require.NoError(t, err)
		assert.Equal(t, 1, pick.Week)
		assert.Equal(t, "Eagles", pick.Team)
	})

	t.Run("unverified entry is forbidden", func(t *testing.T) {
		f := newLedger(t, beforeWeek1)

		_, err := f.svc.SubmitPick(ctx, f.player, f.unverified.ID, 1, "Eagles")
		assert.ErrorIs(t, err, apperrors.ErrEntryNotVerified)
		assert.Equal(t, apperrors.CodeForbidden, apperrors.Code(err))
	})

	t.Run("second pick for a week conflicts", func(t *testing.T) {
		f := newLedger(t, beforeWeek1)

		_, err := f.svc.SubmitPick(ctx, f.player, f.verified.ID, 1, "Eagles")
		require.NoError(t, err)
		_, err = f.svc.SubmitPick(ctx, f.player, f.verified.ID, 1, "Bears")
		assert.ErrorIs(t, err, apperrors.ErrPickExists)

		// Another week is fine
		_, err = f.svc.SubmitPick(ctx, f.player, f.verified.ID, 2, "Bears")
		assert.NoError(t, err)
	})

	t.Run("unknown team", func(t *testing.T) {
		f := newLedger(t, beforeWeek1)

		_, err := f.svc.SubmitPick(ctx, f.player, f.verified.ID, 1, "Unicorns")
		assert.ErrorIs(t, err, apperrors.ErrUnknownTeam)
	})

	t.Run("invalid week", func(t *testing.T) {
		f := newLedger(t, beforeWeek1)

		_, err := f.svc.SubmitPick(ctx, f.player, f.verified.ID, 0, "Eagles")
		assert.ErrorIs(t, err, apperrors.ErrInvalidWeek)
		_, err = f.svc.SubmitPick(ctx, f.player, f.verified.ID, deadline.MaxWeek+1, "Eagles")
		assert.ErrorIs(t, err, apperrors.ErrInvalidWeek)
	})

	t.Run("far future week does not wrap into a locked past", func(t *testing.T) {
		f := newLedger(t, afterWeek1)

		_, err := f.svc.SubmitPick(ctx, f.player, f.verified.ID, 15300, "Eagles")
		assert.ErrorIs(t, err, apperrors.ErrInvalidWeek)

		_, err = f.svc.SubmitPick(ctx, f.player, f.verified.ID, deadline.MaxWeek, "Eagles")
		assert.NoError(t, err)
	})

	t.Run("other player's entry", func(t *testing.T) {
		f := newLedger(t, beforeWeek1)

		_, err := f.svc.SubmitPick(ctx, f.other, f.verified.ID, 1, "Eagles")
		assert.ErrorIs(t, err, apperrors.ErrNotEntryOwner)
	})

	t.Run("missing entry", func(t *testing.T) {
		f := newLedger(t, beforeWeek1)

		_, err := f.svc.SubmitPick(ctx, f.admin, 9999, 1, "Eagles")
		assert.ErrorIs(t, err, apperrors.ErrEntryNotFound)
	})

	t.Run("past deadline is locked", func(t *testing.T) {
		f := newLedger(t, afterWeek1)

		_, err := f.svc.SubmitPick(ctx, f.player, f.verified.ID, 1, "Eagles")
		assert.True(t, apperrors.IsLocked(err))

		_, err = f.svc.SubmitPick(ctx, f.player, f.verified.ID, 2, "Eagles")
		assert.NoError(t, err)
	})

	t.Run("deadline ignored when new picks are not locked", func(t *testing.T) {
		f := newLedger(t, afterWeek1, deadline.WithLockNewPicks(false))

		_, err := f.svc.SubmitPick(ctx, f.player, f.verified.ID, 1, "Eagles")
		assert.NoError(t, err)
	})

	t.Run("exactly at the deadline is open", func(t *testing.T) {
		f := newLedger(t, deadline.DefaultBase)

		_, err := f.svc.SubmitPick(ctx, f.player, f.verified.ID, 1, "Eagles")
		assert.NoError(t, err)
	})
}

// Runs on the single-connection memory database, so writers queue up and the
// losing insert is turned away by the unique index once the winner commits.
func TestSubmitPickConcurrent(t *testing.T) {
	ctx := context.Background()
	f := newLedger(t, beforeWeek1)

	const workers = 2
	errs := make([]error, workers)
	teams := []string{"Eagles", "Bears"}

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = f.svc.SubmitPick(ctx, f.player, f.verified.ID, 3, teams[i])
		}(i)
	}
	close(start)
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apperrors.IsAlreadyExists(err):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)

	var count int64
	require.NoError(t, f.db.Model(&domain.Pick{}).Where("entry_id = ? AND week = ?", f.verified.ID, 3).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

// Same race with several pooled connections to one file database, so the
// transactions overlap instead of queueing on one connection.
func TestSubmitPickConcurrentConnections(t *testing.T) {
	ctx := context.Background()
	const workers = 8

	gdb := testutil.SetupFileTestDB(t, workers)
	policy := deadline.NewPolicy(deadline.DefaultBase, deadline.WithClock(testutil.FixedClock(beforeWeek1)))
	svc := NewLedgerService(gdb, policy, cache.New(nil, 0))
	player := testutil.CreateUser(t, gdb, "player@example.com", domain.RolePlayer, true)
	entry := testutil.CreateEntry(t, gdb, player, "lucky", true)
	testutil.CreateTeams(t, gdb, "Eagles", "Bears", "Lions")
	teams := []string{"Eagles", "Bears", "Lions"}

	errs := make([]error, workers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = svc.SubmitPick(ctx, player, entry.ID, 4, teams[i%len(teams)])
		}(i)
	}
	close(start)
	wg.Wait()

	var ok int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apperrors.IsAlreadyExists(err), testutil.IsBusy(err):
			// Lost the race, either at the index or at the write lock
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)

	var count int64
	require.NoError(t, gdb.Model(&domain.Pick{}).Where("entry_id = ? AND week = ?", entry.ID, 4).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUpdatePick(t *testing.T) {
	ctx := context.Background()

	t.Run("changes team before the deadline", func(t *testing.T) {
		f := newLedger(t, beforeWeek1)
		pick, err := f.svc.SubmitPick(ctx, f.player, f.verified.ID, 1, "Eagles")
		require.NoError(t, err)

		updated, err := f.svc.UpdatePick(ctx, f.player, pick.ID, 1, "Lions")
		require.NoError(t, err)
		assert.Equal(t, "Lions", updated.Team)

		var stored domain.Pick
		require.NoError(t, f.db.First(&stored, pick.ID).Error)
		assert.Equal(t, "Lions", stored.Team)
	})

	t.Run("locked after the deadline", func(t *testing.T) {
		f := newLedger(t, afterWeek1)
		pick := &domain.Pick{EntryID: f.verified.ID, Week: 1, Team: "Eagles"}
		require.NoError(t, f.db.Create(pick).Error)

		_, err := f.svc.UpdatePick(ctx, f.player, pick.ID, 1, "Bears")
		assert.True(t, apperrors.IsLocked(err))
	})

	t.Run("locked even when new picks are not", func(t *testing.T) {
		f := newLedger(t, afterWeek1, deadline.WithLockNewPicks(false))
		pick, err := f.svc.SubmitPick(ctx, f.player, f.verified.ID, 1, "Eagles")
		require.NoError(t, err)

		_, err = f.svc.UpdatePick(ctx, f.player, pick.ID, 1, "Bears")
		assert.True(t, apperrors.IsLocked(err))
	})

	t.Run("cannot move a pick out of a locked week", func(t *testing.T) {
		f := newLedger(t, afterWeek1)
		pick := &domain.Pick{EntryID: f.verified.ID, Week: 1, Team: "Eagles"}
		require.NoError(t, f.db.Create(pick).Error)

		_, err := f.svc.UpdatePick(ctx, f.player, pick.ID, 2, "Eagles")
		assert.ErrorIs(t, err, apperrors.ErrPickWeekLocked)
	})

	t.Run("moving onto an occupied week conflicts", func(t *testing.T) {
		f := newLedger(t, beforeWeek1)
		first, err := f.svc.SubmitPick(ctx, f.player, f.verified.ID, 2, "Eagles")
		require.NoError(t, err)
		_, err = f.svc.SubmitPick(ctx, f.player, f.verified.ID, 3, "Bears")
		require.NoError(t, err)

		_, err = f.svc.UpdatePick(ctx, f.player, first.ID, 3, "Lions")
		assert.ErrorIs(t, err, apperrors.ErrPickExists)
	})

	t.Run("other player's pick", func(t *testing.T) {
		f := newLedger(t, beforeWeek1)
		pick, err := f.svc.SubmitPick(ctx, f.player, f.verified.ID, 1, "Eagles")
		require.NoError(t, err)

		_, err = f.svc.UpdatePick(ctx, f.other, pick.ID, 1, "Bears")
		assert.ErrorIs(t, err, apperrors.ErrNotEntryOwner)
	})

	t.Run("missing pick", func(t *testing.T) {
		f := newLedger(t, beforeWeek1)

		_, err := f.svc.UpdatePick(ctx, f.admin, 9999, 1, "Bears")
		assert.ErrorIs(t, err, apperrors.ErrPickNotFound)
	})

	t.Run("week out of range", func(t *testing.T) {
		f := newLedger(t, afterWeek1)
		pick, err := f.svc.SubmitPick(ctx, f.player, f.verified.ID, 2, "Eagles")
		require.NoError(t, err)

		_, err = f.svc.UpdatePick(ctx, f.player, pick.ID, 15300, "Bears")
		assert.ErrorIs(t, err, apperrors.ErrInvalidWeek)

		var stored domain.Pick
		require.NoError(t, f.db.First(&stored, pick.ID).Error)
		assert.Equal(t, 2, stored.Week)
	})
}

func TestListForUser(t *testing.T) {
	ctx := context.Background()
	f := newLedger(t, afterWeek1, deadline.WithLockNewPicks(false))

	_, err := f.svc.SubmitPick(ctx, f.player, f.verified.ID, 2, "Bears")
	require.NoError(t, err)
	_, err = f.svc.SubmitPick(ctx, f.player, f.verified.ID, 1, "Eagles")
	require.NoError(t, err)

	picks, err := f.svc.ListPicksForUser(ctx, f.player, "player@example.com")
	require.NoError(t, err)
	require.Len(t, picks, 2)
	assert.Equal(t, 1, picks[0].Week)
	assert.Equal(t, "lucky", picks[0].EntryNickname)
	assert.True(t, picks[0].EntryVerified)
	assert.True(t, picks[0].Locked)
	assert.False(t, picks[1].Locked)
	assert.Equal(t, deadline.DefaultBase.Add(deadline.Week), picks[1].Deadline)

	entries, err := f.svc.ListEntriesForUser(ctx, f.manager, "player@example.com")
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	_, err = f.svc.ListPicksForUser(ctx, f.other, "player@example.com")
	assert.ErrorIs(t, err, apperrors.ErrNotEntryOwner)
	_, err = f.svc.ListEntriesForUser(ctx, f.other, "player@example.com")
	assert.ErrorIs(t, err, apperrors.ErrNotEntryOwner)

	picks, err = f.svc.ListPicksForUser(ctx, f.other, "other@example.com")
	require.NoError(t, err)
	assert.Empty(t, picks)
}

func TestListForUserHidesWhoIsRegistered(t *testing.T) {
	ctx := context.Background()
	f := newLedger(t, beforeWeek1)

	// A player gets the same answer for a stranger and for nobody at all
	for _, email := range []string{"player@example.com", "ghost@example.com"} {
		_, err := f.svc.ListPicksForUser(ctx, f.other, email)
		assert.ErrorIs(t, err, apperrors.ErrNotEntryOwner, email)
		_, err = f.svc.ListEntriesForUser(ctx, f.other, email)
		assert.ErrorIs(t, err, apperrors.ErrNotEntryOwner, email)
		_, err = f.svc.CreateEntry(ctx, f.other, email, "nosy")
		assert.ErrorIs(t, err, apperrors.ErrNotEntryOwner, email)
	}

	_, err := f.svc.ListPicksForUser(ctx, nil, "player@example.com")
	assert.ErrorIs(t, err, apperrors.ErrMissingSession)

	// Staff still learn that the address is unknown
	_, err = f.svc.ListPicksForUser(ctx, f.manager, "ghost@example.com")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
	_, err = f.svc.ListEntriesForUser(ctx, f.admin, "ghost@example.com")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	f := newLedger(t, beforeWeek1)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	f.svc.cache = cache.New(rdb, time.Minute)

	_, err := f.svc.SubmitPick(ctx, f.player, f.verified.ID, 1, "Eagles")
	require.NoError(t, err)

	_, _, err = f.svc.Dashboard(ctx, f.player)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientRole)

	users, cached, err := f.svc.Dashboard(ctx, f.manager)
	require.NoError(t, err)
	assert.False(t, cached)
	require.Len(t, users, 4)

	player := users[2]
	assert.Equal(t, "player@example.com", player.Email)
	require.Len(t, player.Entries, 2)
	assert.Equal(t, "lucky", player.Entries[0].Nickname)
	require.Len(t, player.Entries[0].Picks, 1)
	assert.Equal(t, "Eagles", player.Entries[0].Picks[0].Team)
	assert.Empty(t, users[0].Entries)

	_, cached, err = f.svc.Dashboard(ctx, f.admin)
	require.NoError(t, err)
	assert.True(t, cached)

	// A write drops the cached copy
	_, err = f.svc.SubmitPick(ctx, f.player, f.verified.ID, 2, "Bears")
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.KeyDashboard))

	users, cached, err = f.svc.Dashboard(ctx, f.admin)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Len(t, users[2].Entries[0].Picks, 2)
}

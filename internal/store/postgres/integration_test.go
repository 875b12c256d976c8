// internal/store/postgres/integration_test.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"club-tickets/internal/allocation"
	"club-tickets/internal/common/logger"
	"club-tickets/internal/models"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB connects to TEST_DATABASE_DSN and applies the schema.
func openTestDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, db.PingContext(ctx))

	schema, err := os.ReadFile("../../../migrations/001_create_tables.sql")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, string(schema))
	require.NoError(t, err)

	return db
}

func seedGame(t *testing.T, store *Store, capacity int) *models.Game {
	now := time.Now().UTC().Truncate(time.Microsecond)
	game := &models.Game{
		ID:                uuid.New().String(),
		Team1:             "FC Home",
		Team2:             "SV Away",
		TotalCapacity:     capacity,
		RemainingCapacity: capacity,
		ScheduledAt:       now.Add(20 * 24 * time.Hour),
		DecisionLeadDays:  7,
		CreatedAt:         now,
	}
	require.NoError(t, store.InsertGame(context.Background(), game))
	return game
}

func TestIntegration_SubmitAndRun(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := context.Background()
	game := seedGame(t, store, 1)
	c := allocation.NewCoordinator(store, logger.NewTestLogger(t), allocation.Options{})

	first := "it-" + uuid.New().String()
	second := "it-" + uuid.New().String()
	now := time.Now().UTC()

	_, err := c.SubmitApplication(ctx, game.ID, first, now)
	require.NoError(t, err)
	_, err = c.SubmitApplication(ctx, game.ID, second, now.Add(time.Second))
	require.NoError(t, err)

	_, err = c.SubmitApplication(ctx, game.ID, first, now)
	assert.True(t, errors.Is(err, allocation.ErrDuplicateApplication))

	result, err := c.RunAllocation(ctx, game.ID, "it-admin")
	require.NoError(t, err)
	assert.Equal(t, 1, result.ApprovedCount)
	assert.Equal(t, first, result.Decisions[0].ApplicantID)

	reloaded, err := store.GetGame(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.RemainingCapacity)
	assert.Equal(t, int64(1), reloaded.Version)

	_, err = c.RunAllocation(ctx, game.ID, "it-admin")
	assert.True(t, errors.Is(err, allocation.ErrNothingToDecide))
}

func TestIntegration_ConcurrentRunsNeverOverAllocate(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		game := seedGame(t, store, 1)
		now := time.Now().UTC()
		for j := 0; j < 2; j++ {
			app := allocation.NewApplication(game.ID, "it-"+uuid.New().String(), now.Add(time.Duration(j)*time.Second))
			require.NoError(t, store.CreateApplication(ctx, app))
		}

		c := allocation.NewCoordinator(store, logger.NewNoOpLogger(), allocation.Options{})

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for j := range errs {
			wg.Add(1)
			go func(j int) {
				defer wg.Done()
				_, errs[j] = c.RunAllocation(ctx, game.ID, "it-admin")
			}(j)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.True(t, errors.Is(err, allocation.ErrStorageConflict) || errors.Is(err, allocation.ErrNothingToDecide), err)
		}
		assert.Equal(t, 1, succeeded)

		apps, err := store.ApplicationsForGame(ctx, game.ID)
		require.NoError(t, err)
		approved := 0
		for _, a := range apps {
			if a.Status == models.StatusApproved {
				approved++
			}
			assert.NotEqual(t, models.StatusPending, a.Status)
		}
		assert.Equal(t, 1, approved)

		reloaded, err := store.GetGame(ctx, game.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, reloaded.RemainingCapacity)
	}
}

package allocation

import (
	"errors"
	"testing"
	"time"

	"club-tickets/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewApplication(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	app := NewApplication("game-1", "user-1", now)

	assert.NotEmpty(t, app.ID)
	assert.Equal(t, models.StatusPending, app.Status)
	assert.Equal(t, time.UTC, app.AppliedAt.Location())
	assert.True(t, app.AppliedAt.Equal(now))
	assert.Nil(t, app.DecidedAt)
	assert.Empty(t, app.DecidedBy)
	assert.False(t, app.IsDecided())
}

func TestCanTransition(t *testing.T) {
	statuses := []models.ApplicationStatus{models.StatusPending, models.StatusApproved, models.StatusRejected}

	for _, from := range statuses {
		for _, to := range statuses {
			expected := from == models.StatusPending && to != models.StatusPending
			assert.Equal(t, expected, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestDecide(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("pending to approved stamps decision fields", func(t *testing.T) {
		app := NewApplication("game-1", "user-1", at.Add(-time.Hour))
		require.NoError(t, Decide(app, models.StatusApproved, at, "admin-1"))

		assert.Equal(t, models.StatusApproved, app.Status)
		require.NotNil(t, app.DecidedAt)
		assert.True(t, app.DecidedAt.Equal(at))
		assert.Equal(t, "admin-1", app.DecidedBy)
	})

	t.Run("terminal states are sinks", func(t *testing.T) {
		app := NewApplication("game-1", "user-1", at)
		require.NoError(t, Decide(app, models.StatusRejected, at, "admin-1"))

		err := Decide(app, models.StatusApproved, at.Add(time.Hour), "admin-2")
		assert.True(t, errors.Is(err, ErrAlreadyDecided))
		assert.Equal(t, models.StatusRejected, app.Status)
		assert.Equal(t, "admin-1", app.DecidedBy)
	})

	t.Run("pending is not a decision", func(t *testing.T) {
		app := NewApplication("game-1", "user-1", at)
		err := Decide(app, models.StatusPending, at, "admin-1")
		assert.True(t, errors.Is(err, ErrInvalidTransition))
		assert.Nil(t, app.DecidedAt)
	})

	t.Run("actor is required", func(t *testing.T) {
		app := NewApplication("game-1", "user-1", at)
		err := Decide(app, models.StatusApproved, at, "")
		assert.ErrorIs(t, err, ErrActorRequired)
		assert.Equal(t, models.StatusPending, app.Status)
		assert.Nil(t, app.DecidedAt)
	})
}

func TestSubmissionErrorsShareParent(t *testing.T) {
	assert.ErrorIs(t, ErrWindowClosed, ErrApplicationRejected)
	assert.ErrorIs(t, ErrDuplicateApplication, ErrApplicationRejected)
	assert.False(t, errors.Is(ErrWindowClosed, ErrDuplicateApplication))
	assert.False(t, errors.Is(ErrNotFound, ErrApplicationRejected))
}

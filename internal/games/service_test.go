// internal/games/service_test.go
package games

import (
	"context"
	"errors"
	"testing"
	"time"

	"club-tickets/internal/allocation"
	"club-tickets/internal/common/logger"
	"club-tickets/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 5, 10, 18, 0, 0, 0, time.UTC)

type mockStore struct {
	inserted []*models.Game
	upcoming []models.Game
	own      map[string]models.Application
	byGame   []models.Application
	pending  map[string]int
	deleted  []string
	err      error

	ownCalls int
}

func (m *mockStore) InsertGame(_ context.Context, g *models.Game) error {
	if m.err != nil {
		return m.err
	}
	m.inserted = append(m.inserted, g)
	return nil
}

func (m *mockStore) ListUpcomingGames(_ context.Context, from time.Time) ([]models.Game, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []models.Game
	for _, g := range m.upcoming {
		if !g.ScheduledAt.Before(from) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *mockStore) ApplicationsForApplicant(_ context.Context, _ string, _ []string) (map[string]models.Application, error) {
	m.ownCalls++
	if m.own == nil {
		return map[string]models.Application{}, nil
	}
	return m.own, nil
}

func (m *mockStore) ApplicationsForGame(_ context.Context, _ string) ([]models.Application, error) {
	return m.byGame, m.err
}

func (m *mockStore) ListGames(_ context.Context) ([]models.Game, error) {
	return m.upcoming, m.err
}

func (m *mockStore) PendingCounts(_ context.Context, _ []string) (map[string]int, error) {
	if m.pending == nil {
		return map[string]int{}, nil
	}
	return m.pending, nil
}

func (m *mockStore) DeleteGame(_ context.Context, gameID string) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, gameID)
	return nil
}

func createTestNewGame() models.NewGame {
	return models.NewGame{
		Team1:            "  FC Home ",
		Team2:            "SV Away",
		TotalCapacity:    120,
		ScheduledAt:      testNow.Add(21 * 24 * time.Hour),
		DecisionLeadDays: 7,
	}
}

func TestService_CreateGame_Success(t *testing.T) {
	store := &mockStore{}
	svc := NewService(store, logger.NewTestLogger(t))

	game, err := svc.CreateGame(context.Background(), createTestNewGame(), "admin-1", testNow)

	require.NoError(t, err)
	assert.NotEmpty(t, game.ID)
	assert.Equal(t, "FC Home", game.Team1)
	assert.Equal(t, 120, game.TotalCapacity)
	assert.Equal(t, 120, game.RemainingCapacity)
	assert.Equal(t, int64(0), game.Version)
	assert.Equal(t, "admin-1", game.CreatedBy)
	require.Len(t, store.inserted, 1)
	assert.Same(t, game, store.inserted[0])
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(g *models.NewGame)
		wantErr string
	}{
		{"valid", func(g *models.NewGame) {}, ""},
		{"blank home team", func(g *models.NewGame) { g.Team1 = "   " }, "team names"},
		{"blank away team", func(g *models.NewGame) { g.Team2 = "" }, "team names"},
		{"zero capacity", func(g *models.NewGame) { g.TotalCapacity = 0 }, "capacity"},
		{"negative capacity", func(g *models.NewGame) { g.TotalCapacity = -5 }, "capacity"},
		{"lead below range", func(g *models.NewGame) { g.DecisionLeadDays = 0 }, "between 1 and 30"},
		{"lead above range", func(g *models.NewGame) { g.DecisionLeadDays = 31 }, "between 1 and 30"},
		{"lead at upper bound", func(g *models.NewGame) { g.DecisionLeadDays = 30 }, ""},
		{"scheduled now", func(g *models.NewGame) { g.ScheduledAt = testNow }, "future"},
		{"scheduled in the past", func(g *models.NewGame) { g.ScheduledAt = testNow.Add(-time.Hour) }, "future"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := createTestNewGame()
			tt.mutate(&in)

			err := Validate(in, testNow)

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, ErrInvalidGame))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestService_CreateGame_InvalidNotStored(t *testing.T) {
	store := &mockStore{}
	svc := NewService(store, logger.NewNoOpLogger())

	in := createTestNewGame()
	in.TotalCapacity = 0
	_, err := svc.CreateGame(context.Background(), in, "admin-1", testNow)

	assert.True(t, errors.Is(err, ErrInvalidGame))
	assert.Empty(t, store.inserted)
}

func TestService_CreateGame_StoreError(t *testing.T) {
	store := &mockStore{err: errors.New("insert failed")}
	svc := NewService(store, logger.NewNoOpLogger())

	_, err := svc.CreateGame(context.Background(), createTestNewGame(), "admin-1", testNow)

	assert.EqualError(t, err, "insert failed")
}

func TestService_ListAvailable(t *testing.T) {
	day := 24 * time.Hour
	applied := models.Application{ID: "app-1", GameID: "far-applied", ApplicantID: "alice", Status: models.StatusPending}
	store := &mockStore{
		upcoming: []models.Game{
			{ID: "past", ScheduledAt: testNow.Add(-day), DecisionLeadDays: 7},
			{ID: "closed", ScheduledAt: testNow.Add(3 * day), DecisionLeadDays: 7},
			{ID: "far-applied", ScheduledAt: testNow.Add(14 * day), DecisionLeadDays: 7},
			{ID: "far-open", ScheduledAt: testNow.Add(20 * day), DecisionLeadDays: 7},
		},
		own: map[string]models.Application{"far-applied": applied},
	}
	svc := NewService(store, logger.NewTestLogger(t))

	games, err := svc.ListAvailable(context.Background(), "alice", testNow)

	require.NoError(t, err)
	require.Len(t, games, 3)

	assert.Equal(t, "closed", games[0].Game.ID)
	assert.Equal(t, 3, games[0].DaysUntilGame)
	assert.False(t, games[0].CanApply)
	assert.Nil(t, games[0].UserApplication)

	assert.Equal(t, "far-applied", games[1].Game.ID)
	require.NotNil(t, games[1].UserApplication)
	assert.Equal(t, "app-1", games[1].UserApplication.ID)
	assert.False(t, games[1].CanApply)

	assert.Equal(t, "far-open", games[2].Game.ID)
	assert.Equal(t, 20, games[2].DaysUntilGame)
	assert.True(t, games[2].CanApply)
}

func TestService_ListAvailable_Anonymous(t *testing.T) {
	store := &mockStore{
		upcoming: []models.Game{{ID: "g", ScheduledAt: testNow.Add(10 * 24 * time.Hour), DecisionLeadDays: 7}},
	}
	svc := NewService(store, logger.NewNoOpLogger())

	games, err := svc.ListAvailable(context.Background(), "", testNow)

	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.True(t, games[0].CanApply)
	assert.Equal(t, 0, store.ownCalls)
}

func TestService_ApplicationsForGame(t *testing.T) {
	store := &mockStore{byGame: []models.Application{{ID: "a"}, {ID: "b"}}}
	svc := NewService(store, logger.NewNoOpLogger())

	apps, err := svc.ApplicationsForGame(context.Background(), "game-1")

	require.NoError(t, err)
	assert.Len(t, apps, 2)
}

func TestService_ListGames(t *testing.T) {
	day := 24 * time.Hour
	store := &mockStore{
		upcoming: []models.Game{
			{ID: "played", ScheduledAt: testNow.Add(-2 * day), DecisionLeadDays: 7},
			{ID: "closed", ScheduledAt: testNow.Add(3 * day), DecisionLeadDays: 7},
			{ID: "closed-decided", ScheduledAt: testNow.Add(4 * day), DecisionLeadDays: 7},
			{ID: "open", ScheduledAt: testNow.Add(20 * day), DecisionLeadDays: 7},
		},
		pending: map[string]int{"played": 1, "closed": 4, "open": 2},
	}
	svc := NewService(store, logger.NewTestLogger(t))

	games, err := svc.ListGames(context.Background(), testNow)

	require.NoError(t, err)
	require.Len(t, games, 4)

	played := games[0]
	assert.Equal(t, "played", played.Game.ID)
	assert.True(t, played.Played)
	assert.False(t, played.WindowOpen)
	assert.False(t, played.AwaitingAllocation)

	closed := games[1]
	assert.False(t, closed.WindowOpen)
	assert.Equal(t, 4, closed.PendingCount)
	assert.True(t, closed.AwaitingAllocation)

	assert.False(t, games[2].AwaitingAllocation)
	assert.Zero(t, games[2].PendingCount)

	open := games[3]
	assert.True(t, open.WindowOpen)
	assert.False(t, open.Played)
	assert.False(t, open.AwaitingAllocation)
}

func TestService_ListGames_StoreError(t *testing.T) {
	store := &mockStore{err: errors.New("connection reset")}
	svc := NewService(store, logger.NewNoOpLogger())

	_, err := svc.ListGames(context.Background(), testNow)

	assert.EqualError(t, err, "connection reset")
}

func TestService_DeleteGame(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		store := &mockStore{}
		svc := NewService(store, logger.NewTestLogger(t))

		require.NoError(t, svc.DeleteGame(context.Background(), "game-1", "admin-1"))
		assert.Equal(t, []string{"game-1"}, store.deleted)
	})

	t.Run("admin required", func(t *testing.T) {
		store := &mockStore{}
		svc := NewService(store, logger.NewNoOpLogger())

		err := svc.DeleteGame(context.Background(), "game-1", "  ")

		assert.True(t, errors.Is(err, allocation.ErrActorRequired))
		assert.Empty(t, store.deleted)
	})

	t.Run("unknown game", func(t *testing.T) {
		store := &mockStore{err: allocation.ErrNotFound}
		svc := NewService(store, logger.NewNoOpLogger())

		err := svc.DeleteGame(context.Background(), "game-1", "admin-1")

		assert.True(t, errors.Is(err, allocation.ErrNotFound))
	})
}

// internal/workers/allocation/compute-eligibility/handler_test.go
package computeeligibility

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"club-tickets/internal/allocation"
	"club-tickets/internal/common/logger"
	"club-tickets/internal/common/validation"
	"club-tickets/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var testNow = time.Date(2026, 5, 10, 18, 0, 0, 0, time.UTC)

type mockEligibilityService struct {
	games   map[string]*models.Game
	calls   []time.Time
	failErr error
}

func (m *mockEligibilityService) Eligibility(ctx context.Context, gameID string, now time.Time) (*models.Game, allocation.Eligibility, error) {
	m.calls = append(m.calls, now)
	if m.failErr != nil {
		return nil, allocation.Eligibility{}, m.failErr
	}
	game, ok := m.games[gameID]
	if !ok {
		return nil, allocation.Eligibility{}, allocation.ErrNotFound
	}
	return game, allocation.ComputeEligibility(game.ScheduledAt, game.DecisionLeadDays, now), nil
}

func createTestService() *mockEligibilityService {
	return &mockEligibilityService{games: map[string]*models.Game{
		"game-1": {
			ID:                "game-1",
			Team1:             "Lions",
			Team2:             "Tigers",
			TotalCapacity:     10,
			RemainingCapacity: 4,
			ScheduledAt:       testNow.Add(10 * 24 * time.Hour),
			DecisionLeadDays:  7,
		},
	}}
}

func createTestHandler(t *testing.T, svc EligibilityService) *Handler {
	h := NewHandler(LoadConfig(), svc, nil, logger.NewTestLogger(t))
	h.now = func() time.Time { return testNow }
	return h
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Open(t *testing.T) {
	svc := createTestService()
	h := createTestHandler(t, svc)

	output, err := h.Execute(context.Background(), &Input{GameID: "game-1"})
	require.NoError(t, err)

	assert.Equal(t, "game-1", output.GameID)
	assert.Equal(t, 10, output.DaysUntilGame)
	assert.True(t, output.IsOpen)
	assert.Equal(t, 7, output.DecisionLeadDays)
	assert.Equal(t, 4, output.RemainingCapacity)
	assert.Equal(t, []time.Time{testNow}, svc.calls)
}

func TestHandler_Execute_ExplicitNowClosesWindow(t *testing.T) {
	svc := createTestService()
	h := createTestHandler(t, svc)

	// 5 days before the game with a 7 day lead
	output, err := h.Execute(context.Background(), &Input{
		GameID: "game-1",
		Now:    "2026-05-15T18:00:00Z",
	})
	require.NoError(t, err)

	assert.Equal(t, 5, output.DaysUntilGame)
	assert.False(t, output.IsOpen)
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_GameNotFound(t *testing.T) {
	h := createTestHandler(t, createTestService())

	_, err := h.Execute(context.Background(), &Input{GameID: "missing"})
	assert.True(t, stderrors.Is(err, allocation.ErrNotFound))
}

func TestHandler_Execute_InvalidNow(t *testing.T) {
	svc := createTestService()
	h := createTestHandler(t, svc)

	_, err := h.Execute(context.Background(), &Input{GameID: "game-1", Now: "yesterday"})
	assert.True(t, stderrors.Is(err, validation.ErrInputValidation))
	assert.Empty(t, svc.calls)
}

func TestHandler_Execute_StoreFailure(t *testing.T) {
	svc := createTestService()
	svc.failErr = stderrors.New("connection reset")
	h := createTestHandler(t, svc)

	_, err := h.Execute(context.Background(), &Input{GameID: "game-1"})
	assert.EqualError(t, err, "connection reset")
}

// internal/workers/applications/submit-application/handler_test.go
package submitapplication

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"club-tickets/internal/allocation"
	"club-tickets/internal/common/errors"
	"club-tickets/internal/common/logger"
	"club-tickets/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var testNow = time.Date(2026, 5, 10, 18, 0, 0, 0, time.UTC)

type MockSubmitter struct {
	SubmitFunc func(ctx context.Context, gameID, applicantID string, now time.Time) (*models.Application, error)
}

func (m *MockSubmitter) SubmitApplication(ctx context.Context, gameID, applicantID string, now time.Time) (*models.Application, error) {
	return m.SubmitFunc(ctx, gameID, applicantID, now)
}

func createTestHandler(t *testing.T, submitter Submitter) *Handler {
	h := NewHandler(LoadConfig(), submitter, nil, logger.NewTestLogger(t))
	h.now = func() time.Time { return testNow }
	return h
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	var gotNow time.Time
	submitter := &MockSubmitter{SubmitFunc: func(ctx context.Context, gameID, applicantID string, now time.Time) (*models.Application, error) {
		gotNow = now
		return allocation.NewApplication(gameID, applicantID, now), nil
	}}
	h := createTestHandler(t, submitter)

	output, err := h.Execute(context.Background(), &Input{GameID: "game-1", ApplicantID: "user-1"})
	require.NoError(t, err)

	assert.NotEmpty(t, output.ApplicationID)
	assert.Equal(t, "pending", output.Status)
	assert.Equal(t, "2026-05-10T18:00:00Z", output.AppliedAt)
	assert.Equal(t, testNow, gotNow)
}

// ==========================
// Business Rule Tests
// ==========================

func TestHandler_Execute_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode errors.ErrorCode
	}{
		{
			name:     "window closed",
			err:      fmt.Errorf("%w: applications close 7 days before the game, 5 days remain", allocation.ErrWindowClosed),
			wantCode: errors.ErrCodeWindowClosed,
		},
		{
			name:     "duplicate",
			err:      fmt.Errorf("%w: applicant user-1 already applied for game game-1", allocation.ErrDuplicateApplication),
			wantCode: errors.ErrCodeDuplicateApplication,
		},
		{
			name:     "game not found",
			err:      allocation.ErrNotFound,
			wantCode: errors.ErrCodeGameNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			submitter := &MockSubmitter{SubmitFunc: func(ctx context.Context, gameID, applicantID string, now time.Time) (*models.Application, error) {
				return nil, tt.err
			}}
			h := createTestHandler(t, submitter)

			output, err := h.Execute(context.Background(), &Input{GameID: "game-1", ApplicantID: "user-1"})
			assert.Nil(t, output)
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, tt.err))

			stdErr := errors.FromDomainError(err)
			assert.Equal(t, tt.wantCode, stdErr.Code)
			assert.False(t, stdErr.Retryable)
		})
	}
}

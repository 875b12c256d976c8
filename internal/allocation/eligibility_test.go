package allocation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeEligibility(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		scheduledAt  time.Time
		leadDays     int
		expectedDays int
		expectedOpen bool
	}{
		{"exactly on the lead day", now.Add(7 * 24 * time.Hour), 7, 7, true},
		{"partial day rounds up", now.Add(6*24*time.Hour + time.Minute), 7, 7, true},
		{"one day short", now.Add(6 * 24 * time.Hour), 7, 6, false},
		{"well before the window closes", now.Add(30 * 24 * time.Hour), 3, 30, true},
		{"a few hours ahead counts as one day", now.Add(3 * time.Hour), 1, 1, true},
		{"game starting now", now, 1, 0, false},
		{"game in the past", now.Add(-36 * time.Hour), 1, -1, false},
		{"game far in the past", now.Add(-10 * 24 * time.Hour), 1, -10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeEligibility(tt.scheduledAt, tt.leadDays, now)
			assert.Equal(t, tt.expectedDays, got.DaysUntilGame)
			assert.Equal(t, tt.expectedOpen, got.IsOpen)
		})
	}
}

func TestComputeEligibility_PastGameAlwaysClosed(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for lead := 0; lead <= 30; lead++ {
		got := ComputeEligibility(now.Add(-time.Second), lead, now)
		assert.False(t, got.IsOpen, "lead %d", lead)
		assert.LessOrEqual(t, got.DaysUntilGame, 0)
	}
}

func TestDaysUntil_TimezoneIndependent(t *testing.T) {
	berlin := time.FixedZone("CET", 3600)
	now := time.Date(2026, 3, 1, 23, 30, 0, 0, berlin)
	game := time.Date(2026, 3, 3, 0, 30, 0, 0, time.UTC)

	// 26 hours apart in absolute time.
	assert.Equal(t, 2, DaysUntil(game, now))
}

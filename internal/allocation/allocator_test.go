package allocation

import (
	"fmt"
	"testing"

	"club-tickets/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestAllocate_Scenarios(t *testing.T) {
	tests := []struct {
		name              string
		ranked            []Candidate
		remaining         int
		expectedApproved  []string
		expectedRejected  []string
		expectedRemaining int
	}{
		{
			name:              "scenario A: capacity 2, three ranked",
			ranked:            Rank([]Candidate{candidate("A", 1, false), candidate("B", 2, false), candidate("C", 0, true)}),
			remaining:         2,
			expectedApproved:  []string{"A", "B"},
			expectedRejected:  []string{"C"},
			expectedRemaining: 0,
		},
		{
			name:              "scenario B: capacity 5, one pending",
			ranked:            []Candidate{candidate("A", 0, false)},
			remaining:         5,
			expectedApproved:  []string{"A"},
			expectedRejected:  nil,
			expectedRemaining: 4,
		},
		{
			name:              "scenario C: capacity 0, two pending",
			ranked:            []Candidate{candidate("A", 0, false), candidate("B", 1, false)},
			remaining:         0,
			expectedApproved:  nil,
			expectedRejected:  []string{"A", "B"},
			expectedRemaining: 0,
		},
		{
			name:              "negative capacity behaves as zero",
			ranked:            []Candidate{candidate("A", 0, false)},
			remaining:         -3,
			expectedApproved:  nil,
			expectedRejected:  []string{"A"},
			expectedRemaining: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Allocate(tt.ranked, tt.remaining)

			var approved, rejected []string
			for _, d := range got.Decisions {
				switch d.Status {
				case models.StatusApproved:
					approved = append(approved, d.ApplicationID)
				case models.StatusRejected:
					rejected = append(rejected, d.ApplicationID)
				default:
					t.Fatalf("unexpected status %s", d.Status)
				}
			}

			assert.Equal(t, tt.expectedApproved, approved)
			assert.Equal(t, tt.expectedRejected, rejected)
			assert.Equal(t, tt.expectedRemaining, got.RemainingAfter)
			assert.Equal(t, len(tt.expectedApproved), got.ApprovedCount)
			assert.Equal(t, len(tt.expectedRejected), got.RejectedCount)
		})
	}
}

func TestAllocate_Empty(t *testing.T) {
	got := Allocate(nil, 10)
	assert.True(t, got.Empty())
	assert.Equal(t, 10, got.RemainingAfter)
	assert.Zero(t, got.ApprovedCount)
}

func TestAllocate_CountsMatchMinRule(t *testing.T) {
	for r := 0; r <= 6; r++ {
		for n := 0; n <= 6; n++ {
			ranked := make([]Candidate, n)
			for i := range ranked {
				ranked[i] = candidate(fmt.Sprintf("app-%d", i), i, i%2 == 0)
			}

			got := Allocate(ranked, r)

			expectedApproved := r
			if n < r {
				expectedApproved = n
			}
			expectedRemaining := r - n
			if expectedRemaining < 0 {
				expectedRemaining = 0
			}

			assert.Equal(t, expectedApproved, got.ApprovedCount, "R=%d N=%d", r, n)
			assert.Equal(t, n-expectedApproved, got.RejectedCount, "R=%d N=%d", r, n)
			assert.Equal(t, expectedRemaining, got.RemainingAfter, "R=%d N=%d", r, n)
			assert.Len(t, got.Decisions, n)
			for i, d := range got.Decisions {
				assert.Equal(t, i+1, d.Rank)
				assert.Equal(t, i < expectedApproved, d.Status == models.StatusApproved)
			}
		}
	}
}

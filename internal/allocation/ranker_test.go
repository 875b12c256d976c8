package allocation

import (
	"testing"
	"time"

	"club-tickets/internal/models"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func candidate(id string, appliedAt int, recent bool) Candidate {
	return Candidate{
		Application: models.Application{
			ID:          id,
			GameID:      "game-1",
			ApplicantID: "user-" + id,
			Status:      models.StatusPending,
			AppliedAt:   epoch.Add(time.Duration(appliedAt) * time.Minute),
		},
		HasRecentGrant: recent,
	}
}

func ids(cs []Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Application.ID
	}
	return out
}

func TestRank_ScenarioA(t *testing.T) {
	input := []Candidate{
		candidate("C", 0, true),
		candidate("B", 2, false),
		candidate("A", 1, false),
	}

	ranked := Rank(input)

	assert.Equal(t, []string{"A", "B", "C"}, ids(ranked))
	// Input order untouched.
	assert.Equal(t, []string{"C", "B", "A"}, ids(input))
}

func TestRank_NoRecentGrantAlwaysFirst(t *testing.T) {
	input := []Candidate{
		candidate("r1", 0, true),
		candidate("r2", 1, true),
		candidate("f1", 50, false),
		candidate("r3", 2, true),
		candidate("f2", 40, false),
	}

	ranked := Rank(input)

	assert.Equal(t, []string{"f2", "f1", "r1", "r2", "r3"}, ids(ranked))
	seenRecent := false
	for _, c := range ranked {
		if c.HasRecentGrant {
			seenRecent = true
			continue
		}
		assert.False(t, seenRecent, "fresh applicant %s ranked after a recent winner", c.Application.ID)
	}
}

func TestRank_TiesBrokenByID(t *testing.T) {
	input := []Candidate{
		candidate("b", 5, false),
		candidate("c", 5, false),
		candidate("a", 5, false),
	}

	assert.Equal(t, []string{"a", "b", "c"}, ids(Rank(input)))
}

func TestRank_Deterministic(t *testing.T) {
	input := []Candidate{
		candidate("x", 3, true),
		candidate("y", 1, false),
		candidate("z", 2, false),
		candidate("w", 0, true),
	}
	reversed := make([]Candidate, len(input))
	for i := range input {
		reversed[len(input)-1-i] = input[i]
	}

	assert.Equal(t, ids(Rank(input)), ids(Rank(reversed)))
}

func TestRank_Empty(t *testing.T) {
	assert.Empty(t, Rank(nil))
}

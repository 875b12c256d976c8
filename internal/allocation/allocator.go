package allocation

import "club-tickets/internal/models"

// Allocation is the capacity-constrained outcome for one ranked batch.
type Allocation struct {
	Decisions       []models.Decision
	ApprovedCount   int
	RejectedCount   int
	RemainingBefore int
	RemainingAfter  int
}

// Empty reports whether there was nothing to decide.
func (a Allocation) Empty() bool {
	return len(a.Decisions) == 0
}

// Allocate approves the first min(remaining, len(ranked)) candidates and
// rejects the rest. It never approves more than remaining and never yields a
// negative remaining capacity.
func Allocate(ranked []Candidate, remaining int) Allocation {
	if remaining < 0 {
		remaining = 0
	}

	approved := remaining
	if len(ranked) < approved {
		approved = len(ranked)
	}

	decisions := make([]models.Decision, 0, len(ranked))
	for i, c := range ranked {
		status := models.StatusRejected
		if i < approved {
			status = models.StatusApproved
		}
		decisions = append(decisions, models.Decision{
			ApplicationID:  c.Application.ID,
			ApplicantID:    c.Application.ApplicantID,
			Status:         status,
			Rank:           i + 1,
			HasRecentGrant: c.HasRecentGrant,
		})
	}

	return Allocation{
		Decisions:       decisions,
		ApprovedCount:   approved,
		RejectedCount:   len(ranked) - approved,
		RemainingBefore: remaining,
		RemainingAfter:  remaining - approved,
	}
}

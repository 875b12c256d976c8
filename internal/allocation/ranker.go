package allocation

import (
	"sort"

	"club-tickets/internal/models"
)

// Candidate is a pending application annotated with the applicant's
// recent-grant signal.
type Candidate struct {
	Application    models.Application
	HasRecentGrant bool
}

// Rank orders candidates for allocation: applicants without a recent grant
// first, then earliest submission. Application id breaks any remaining tie so
// the order is total and a retried run ranks identically. The input slice is
// not modified.
func Rank(candidates []Candidate) []Candidate {
	ranked := make([]Candidate, len(candidates))
	copy(ranked, candidates)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.HasRecentGrant != b.HasRecentGrant {
			return !a.HasRecentGrant
		}
		if !a.Application.AppliedAt.Equal(b.Application.AppliedAt) {
			return a.Application.AppliedAt.Before(b.Application.AppliedAt)
		}
		return a.Application.ID < b.Application.ID
	})

	return ranked
}

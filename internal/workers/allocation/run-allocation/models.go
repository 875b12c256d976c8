// internal/workers/allocation/run-allocation/models.go
package runallocation

import "club-tickets/internal/models"

type Input struct {
	GameID  string `json:"gameId"`
	AdminID string `json:"adminId"`
}

// Output is returned for every run. Decided is false when no application was
// pending, so the process can branch without an error boundary.
type Output struct {
	GameID            string            `json:"gameId"`
	Decided           bool              `json:"decided"`
	RunID             string            `json:"runId,omitempty"`
	ApprovedCount     int               `json:"approvedCount"`
	RejectedCount     int               `json:"rejectedCount"`
	RemainingCapacity int               `json:"remainingCapacity"`
	DecidedAt         string            `json:"decidedAt,omitempty"` // ISO 8601
	Decisions         []models.Decision `json:"decisions"`
	// Applications is the game's full application list after the run.
	Applications []models.Application `json:"applications"`
}

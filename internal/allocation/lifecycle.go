package allocation

import (
	"fmt"
	"time"

	"club-tickets/internal/models"

	"github.com/google/uuid"
)

// NewApplication builds a pending application for the (applicant, game) pair.
func NewApplication(gameID, applicantID string, now time.Time) *models.Application {
	return &models.Application{
		ID:          uuid.New().String(),
		GameID:      gameID,
		ApplicantID: applicantID,
		Status:      models.StatusPending,
		AppliedAt:   now.UTC(),
	}
}

// CanTransition reports whether an allocation run may move an application
// from one status to another. Approved and rejected are terminal.
func CanTransition(from, to models.ApplicationStatus) bool {
	if from != models.StatusPending {
		return false
	}
	return to == models.StatusApproved || to == models.StatusRejected
}

// Decide moves a pending application to a terminal status and stamps
// decidedAt/decidedBy together.
func Decide(app *models.Application, to models.ApplicationStatus, at time.Time, by string) error {
	if app.IsDecided() {
		return fmt.Errorf("%w: application %s is %s", ErrAlreadyDecided, app.ID, app.Status)
	}
	if !CanTransition(app.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, app.Status, to)
	}
	if by == "" {
		return ErrActorRequired
	}

	decidedAt := at.UTC()
	app.Status = to
	app.DecidedAt = &decidedAt
	app.DecidedBy = by
	return nil
}

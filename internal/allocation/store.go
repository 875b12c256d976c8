package allocation

import (
	"context"
	"time"

	"club-tickets/internal/models"
)

// Store is the persistence collaborator of the engine.
type Store interface {
	// GetGame returns ErrNotFound when the game does not exist.
	GetGame(ctx context.Context, gameID string) (*models.Game, error)

	// PendingApplications returns every pending application of the game.
	PendingApplications(ctx context.Context, gameID string) ([]models.Application, error)

	// RecentGrants reports, for each applicant, whether they hold an approved
	// application decided at or after since. Loaded once per run.
	RecentGrants(ctx context.Context, applicantIDs []string, since time.Time) (map[string]bool, error)

	// HasApplication reports whether the applicant already applied for the game.
	HasApplication(ctx context.Context, gameID, applicantID string) (bool, error)

	// CreateApplication inserts a pending application. A uniqueness violation
	// on (applicant, game) must surface as ErrDuplicateApplication.
	CreateApplication(ctx context.Context, app *models.Application) error

	// CommitRun writes every decision and the game's new remaining capacity as
	// one atomic unit. It returns ErrStorageConflict, with nothing written,
	// when the game's version no longer matches ExpectedVersion or any of the
	// applications is no longer pending.
	CommitRun(ctx context.Context, commit RunCommit) error
}

// RunCommit is the complete write set of one allocation run.
type RunCommit struct {
	GameID          string
	ExpectedVersion int64
	NewRemaining    int
	DecidedAt       time.Time
	DecidedBy       string
	Decisions       []models.Decision
}

// RunLocker serialises runs for the same game across processes. Acquire
// returns acquired=false when another run holds the lock.
type RunLocker interface {
	Acquire(ctx context.Context, gameID string) (release func(context.Context) error, acquired bool, err error)
}

// Auditor persists a record of every committed run.
type Auditor interface {
	Record(ctx context.Context, record models.RunRecord) error
}

// internal/models/application.go
package models

import "time"

// ApplicationStatus is the lifecycle state of a ticket application.
type ApplicationStatus string

const (
	StatusPending  ApplicationStatus = "pending"
	StatusApproved ApplicationStatus = "approved"
	StatusRejected ApplicationStatus = "rejected"
)

// Application is one applicant's request for a ticket to one game.
// DecidedAt and DecidedBy are set together, exactly when Status leaves pending.
type Application struct {
	ID          string            `json:"id" db:"id"`
	GameID      string            `json:"gameId" db:"game_id"`
	ApplicantID string            `json:"applicantId" db:"user_id"`
	Status      ApplicationStatus `json:"status" db:"status"`
	AppliedAt   time.Time         `json:"appliedAt" db:"applied_at"`
	DecidedAt   *time.Time        `json:"decidedAt,omitempty" db:"decided_at"`
	DecidedBy   string            `json:"decidedBy,omitempty" db:"decided_by"`

	// Applicant is filled by the admin listing only.
	Applicant *Applicant `json:"applicant,omitempty"`
}

// IsDecided reports whether the application has left the pending state.
func (a *Application) IsDecided() bool {
	return a.Status != StatusPending
}

// Applicant holds the contact data the notification path needs.
type Applicant struct {
	ID    string `json:"id" db:"id"`
	Email string `json:"email" db:"email"`
	Name  string `json:"name" db:"name"`
	Phone string `json:"phone,omitempty" db:"phone"`
}

// GameAvailability is a game as seen by one applicant.
type GameAvailability struct {
	Game            Game         `json:"game"`
	UserApplication *Application `json:"userApplication,omitempty"`
	DaysUntilGame   int          `json:"daysUntilGame"`
	CanApply        bool         `json:"canApply"`
}

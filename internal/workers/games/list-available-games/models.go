// internal/workers/games/list-available-games/models.go
package listavailablegames

import "club-tickets/internal/models"

type Input struct {
	ApplicantID string `json:"applicantId,omitempty"`
	Now         string `json:"now,omitempty"` // RFC 3339, defaults to the current time
}

type Output struct {
	Games     []models.GameAvailability `json:"games"`
	Count     int                       `json:"count"`
	OpenCount int                       `json:"openCount"`
}

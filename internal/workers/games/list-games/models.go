// internal/workers/games/list-games/models.go
package listgames

import "club-tickets/internal/models"

type Input struct {
	Now string `json:"now,omitempty"` // RFC 3339, defaults to the current time
}

type Output struct {
	Games                   []models.GameOverview `json:"games"`
	Count                   int                   `json:"count"`
	AwaitingAllocationCount int                   `json:"awaitingAllocationCount"`
}

// internal/models/game.go
package models

import "time"

// Game is a scheduled match with a fixed ticket capacity.
type Game struct {
	ID                string    `json:"id" db:"id"`
	Team1             string    `json:"team1" db:"team1"`
	Team2             string    `json:"team2" db:"team2"`
	TotalCapacity     int       `json:"totalCapacity" db:"total_tickets"`
	RemainingCapacity int       `json:"remainingCapacity" db:"available_tickets"`
	ScheduledAt       time.Time `json:"scheduledAt" db:"game_date"`
	DecisionLeadDays  int       `json:"decisionLeadDays" db:"ticket_decision_days"`
	Version           int64     `json:"version" db:"version"`
	CreatedBy         string    `json:"createdBy,omitempty" db:"created_by"`
	CreatedAt         time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time `json:"updatedAt" db:"updated_at"`
}

// Matchup returns the display label used in notifications, e.g. "Home vs Away".
func (g *Game) Matchup() string {
	return g.Team1 + " vs " + g.Team2
}

// NewGame is the payload for creating a game.
type NewGame struct {
	Team1            string    `json:"team1"`
	Team2            string    `json:"team2"`
	TotalCapacity    int       `json:"totalCapacity"`
	ScheduledAt      time.Time `json:"scheduledAt"`
	DecisionLeadDays int       `json:"decisionLeadDays"`
}

// GameOverview is a game as seen from the admin panel.
type GameOverview struct {
	Game          Game `json:"game"`
	DaysUntilGame int  `json:"daysUntilGame"`
	WindowOpen    bool `json:"windowOpen"`
	Played        bool `json:"played"`
	PendingCount  int  `json:"pendingCount"`
	// AwaitingAllocation marks unplayed games with a closed window that still
	// hold pending applications.
	AwaitingAllocation bool `json:"awaitingAllocation"`
}

// internal/workers/games/create-game/models.go
package creategame

type Input struct {
	Team1            string `json:"team1"`
	Team2            string `json:"team2"`
	TotalCapacity    int    `json:"totalCapacity"`
	ScheduledAt      string `json:"scheduledAt"` // RFC 3339
	DecisionLeadDays int    `json:"decisionLeadDays"`
	AdminID          string `json:"adminId"`
}

type Output struct {
	GameID            string `json:"gameId"`
	Matchup           string `json:"matchup"`
	TotalCapacity     int    `json:"totalCapacity"`
	RemainingCapacity int    `json:"remainingCapacity"`
	ScheduledAt       string `json:"scheduledAt"`
	DecisionLeadDays  int    `json:"decisionLeadDays"`
}

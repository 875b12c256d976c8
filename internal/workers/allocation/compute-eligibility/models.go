// internal/workers/allocation/compute-eligibility/models.go
package computeeligibility

type Input struct {
	GameID string `json:"gameId"`
	Now    string `json:"now,omitempty"` // RFC 3339, defaults to the current time
}

type Output struct {
	GameID            string `json:"gameId"`
	DaysUntilGame     int    `json:"daysUntilGame"`
	IsOpen            bool   `json:"isOpen"`
	DecisionLeadDays  int    `json:"decisionLeadDays"`
	RemainingCapacity int    `json:"remainingCapacity"`
}

// internal/workers/games/delete-game/models.go
package deletegame

type Input struct {
	GameID  string `json:"gameId"`
	AdminID string `json:"adminId"`
}

type Output struct {
	GameID    string `json:"gameId"`
	Deleted   bool   `json:"deleted"`
	DeletedAt string `json:"deletedAt"` // ISO 8601
}

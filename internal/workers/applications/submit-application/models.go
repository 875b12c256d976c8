// internal/workers/applications/submit-application/models.go
package submitapplication

type Input struct {
	GameID      string `json:"gameId"`
	ApplicantID string `json:"applicantId"`
}

type Output struct {
	ApplicationID string `json:"applicationId"`
	Status        string `json:"status"`
	AppliedAt     string `json:"appliedAt"` // ISO 8601
}

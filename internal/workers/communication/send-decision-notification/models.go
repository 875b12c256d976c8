// internal/workers/communication/send-decision-notification/models.go
package senddecisionnotification

type Input struct {
	GameID        string `json:"gameId"`
	ApplicationID string `json:"applicationId"`
	ApplicantID   string `json:"applicantId"`
	Status        string `json:"status,omitempty"` // informational, the stored status is sent
}

type Output struct {
	NotificationID string   `json:"notificationId"`
	Status         string   `json:"status"`
	Channels       []string `json:"channels"`
	SentAt         string   `json:"sentAt"` // ISO 8601
}

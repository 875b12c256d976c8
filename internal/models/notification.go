// internal/models/notification.go
package models

// DecisionNotice tells an applicant how their application was decided.
type DecisionNotice struct {
	ApplicationID string            `json:"applicationId"`
	GameID        string            `json:"gameId"`
	Matchup       string            `json:"matchup"`
	Status        ApplicationStatus `json:"status"`
	Recipient     Applicant         `json:"recipient"`
}

// Notification channels and statuses.
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"

	NotificationSent     = "sent"
	NotificationFailed   = "failed"
	NotificationDisabled = "disabled"
)

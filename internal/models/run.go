// internal/models/run.go
package models

import "time"

// Decision is the outcome the allocator assigned to one application.
type Decision struct {
	ApplicationID  string            `json:"applicationId"`
	ApplicantID    string            `json:"applicantId"`
	Status         ApplicationStatus `json:"status"`
	Rank           int               `json:"rank"`
	HasRecentGrant bool              `json:"hasRecentGrant"`
}

// RunRecord is the audit document written for every committed allocation run.
type RunRecord struct {
	RunID              string     `json:"runId"`
	GameID             string     `json:"gameId"`
	DecidedBy          string     `json:"decidedBy"`
	DecidedAt          time.Time  `json:"decidedAt"`
	RemainingBefore    int        `json:"remainingBefore"`
	RemainingAfter     int        `json:"remainingAfter"`
	ApprovedCount      int        `json:"approvedCount"`
	RejectedCount      int        `json:"rejectedCount"`
	FairnessWindowDays int        `json:"fairnessWindowDays"`
	Decisions          []Decision `json:"decisions"`
}

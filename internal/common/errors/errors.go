// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"club-tickets/internal/allocation"
	"club-tickets/internal/audit"
	"club-tickets/internal/common/validation"
	"club-tickets/internal/games"
	"club-tickets/internal/notify"
	"club-tickets/internal/store/postgres"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Business rule errors
const (
	ErrCodeGameNotFound          ErrorCode = "GAME_NOT_FOUND"
	ErrCodeWindowClosed          ErrorCode = "WINDOW_CLOSED"
	ErrCodeDuplicateApplication  ErrorCode = "DUPLICATE_APPLICATION"
	ErrCodeNothingToDecide       ErrorCode = "NOTHING_TO_DECIDE"
	ErrCodeInvalidGame           ErrorCode = "INVALID_GAME"
	ErrCodeActorRequired         ErrorCode = "ACTOR_REQUIRED"
	ErrCodeApplicantNotFound     ErrorCode = "APPLICANT_NOT_FOUND"
	ErrCodeApplicationNotFound   ErrorCode = "APPLICATION_NOT_FOUND"
	ErrCodeApplicationNotDecided ErrorCode = "APPLICATION_NOT_DECIDED"
	ErrCodeInputValidation       ErrorCode = "INPUT_VALIDATION_FAILED"
)

// Technical errors
const (
	ErrCodeStorageConflict          ErrorCode = "STORAGE_CONFLICT"
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeDatabaseQueryFailed      ErrorCode = "DATABASE_QUERY_FAILED"
	ErrCodeDatabaseCommitFailed     ErrorCode = "DATABASE_COMMIT_FAILED"
	ErrCodeNotificationSendFailed   ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeAuditIndexFailed         ErrorCode = "AUDIT_INDEX_FAILED"
	ErrCodeInternal                 ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

func NewGameNotFoundError(details string) *StandardError {
	return newError(ErrCodeGameNotFound, "Game not found", details, false)
}

func NewWindowClosedError(details string) *StandardError {
	return newError(ErrCodeWindowClosed, "Application window is closed", details, false)
}

func NewDuplicateApplicationError(details string) *StandardError {
	return newError(ErrCodeDuplicateApplication, "Application already exists", details, false)
}

func NewInvalidGameError(details string) *StandardError {
	return newError(ErrCodeInvalidGame, "Game rejected by validation", details, false)
}

// NewInputValidationError is returned when job variables do not match the
// activity's input schema.
func NewInputValidationError(details string) *StandardError {
	return newError(ErrCodeInputValidation, "Job input validation failed", details, false)
}

// NewStorageConflictError creates a retryable conflict: a concurrent run won.
func NewStorageConflictError(details string) *StandardError {
	return newError(ErrCodeStorageConflict, "Concurrent allocation run detected", details, true)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err.Error(), true)
}

func NewDatabaseQueryFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseQueryFailed, "Database query failed", err.Error(), true)
}

func NewDatabaseCommitFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseCommitFailed, "Allocation commit failed", err.Error(), true)
}

func NewNotificationSendFailedError(err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed", err.Error(), true)
}

func NewAuditIndexFailedError(err error) *StandardError {
	return newError(ErrCodeAuditIndexFailed, "Audit indexing failed", err.Error(), true)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
}

// FromDomainError maps the sentinel errors of the domain packages onto a
// StandardError. Unknown errors become INTERNAL_ERROR.
func FromDomainError(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}

	details := err.Error()
	switch {
	case stderrors.Is(err, allocation.ErrNotFound):
		return NewGameNotFoundError(details)
	case stderrors.Is(err, allocation.ErrWindowClosed):
		return NewWindowClosedError(details)
	case stderrors.Is(err, allocation.ErrDuplicateApplication):
		return NewDuplicateApplicationError(details)
	case stderrors.Is(err, allocation.ErrNothingToDecide):
		return newError(ErrCodeNothingToDecide, "No pending applications", details, false)
	case stderrors.Is(err, allocation.ErrActorRequired):
		return newError(ErrCodeActorRequired, "Acting administrator is required", details, false)
	case stderrors.Is(err, allocation.ErrStorageConflict):
		return NewStorageConflictError(details)
	case stderrors.Is(err, games.ErrInvalidGame):
		return NewInvalidGameError(details)
	case stderrors.Is(err, validation.ErrInputValidation):
		return NewInputValidationError(details)
	case stderrors.Is(err, postgres.ErrApplicantNotFound):
		return newError(ErrCodeApplicantNotFound, "Applicant not found", details, false)
	case stderrors.Is(err, postgres.ErrApplicationNotFound):
		return newError(ErrCodeApplicationNotFound, "Application not found", details, false)
	case stderrors.Is(err, postgres.ErrCommitFailed):
		return NewDatabaseCommitFailedError(err)
	case stderrors.Is(err, postgres.ErrQueryFailed):
		return NewDatabaseQueryFailedError(err)
	case stderrors.Is(err, notify.ErrNotDecided):
		return newError(ErrCodeApplicationNotDecided, "Application is still pending", details, false)
	case stderrors.Is(err, notify.ErrSendFailed), stderrors.Is(err, notify.ErrNoRecipient):
		std := NewNotificationSendFailedError(err)
		std.Retryable = stderrors.Is(err, notify.ErrSendFailed)
		return std
	case stderrors.Is(err, audit.ErrIndexFailed):
		return NewAuditIndexFailedError(err)
	default:
		return NewInternalError(err)
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeStorageConflict,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeDatabaseQueryFailed,
		ErrCodeDatabaseCommitFailed,
		ErrCodeNotificationSendFailed:
		return 3

	case ErrCodeAuditIndexFailed:
		return 2

	default:
		return 0 // Business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
// BPMN codes are the internal codes.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "STORAGE"):
		return "DATABASE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "AUDIT"):
		return "SEARCH"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	case codeStr == string(ErrCodeInternal):
		return "OTHER"
	default:
		return "BUSINESS_RULE"
	}
}

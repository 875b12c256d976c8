// internal/allocation/errors.go
package allocation

import (
	"errors"
	"fmt"
)

// ErrApplicationRejected is the parent of every submission-time business rule
// violation. Use errors.Is against the specific kind to tell them apart.
var ErrApplicationRejected = errors.New("APPLICATION_REJECTED")

var (
	ErrNotFound             = errors.New("GAME_NOT_FOUND")
	ErrWindowClosed         = fmt.Errorf("%w: WINDOW_CLOSED", ErrApplicationRejected)
	ErrDuplicateApplication = fmt.Errorf("%w: DUPLICATE_APPLICATION", ErrApplicationRejected)
	ErrNothingToDecide      = errors.New("NOTHING_TO_DECIDE")
	ErrStorageConflict      = errors.New("STORAGE_CONFLICT")
	ErrAlreadyDecided       = errors.New("ALREADY_DECIDED")
	ErrInvalidTransition    = errors.New("INVALID_TRANSITION")
	ErrActorRequired        = errors.New("ACTOR_REQUIRED")
)

package service

import "errors"

// Failure taxonomy reported to callers. The API layer maps these to HTTP
// statuses; anything not in this list is treated as an infrastructure
// failure.
var (
	ErrNotFound           = errors.New("entity not found")
	ErrForbidden          = errors.New("action not allowed for this user")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidInput       = errors.New("invalid input")
	ErrDuplicate          = errors.New("already exists")

	// State machine precondition violations
	ErrConflict            = errors.New("conflicting state")
	ErrAlreadyValidated    = errors.New("already validated")
	ErrAlreadyDecided      = errors.New("request already decided")
	ErrAlreadyClosed       = errors.New("loan already closed")
	ErrNotOpen             = errors.New("request is not open")
	ErrNotInProgress       = errors.New("request is not in progress")
	ErrNotCompleted        = errors.New("request is not completed")
	ErrNoVolunteer         = errors.New("no volunteer available")
	ErrIncompleteRelations = errors.New("owner or borrower relation missing")

	// Ledger
	ErrInsufficientFunds = errors.New("insufficient Cares balance")
)

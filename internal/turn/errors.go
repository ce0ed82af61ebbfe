package turn

import "errors"

// Failure categories surfaced to callers. The HTTP layer maps these to
// status codes; everything else is an internal error.
var (
	// ErrInvalidRequest indicates the caller supplied an unusable page
	// observation or goal.
	ErrInvalidRequest = errors.New("invalid turn request")
	// ErrSessionNotFound indicates the request referenced an unknown session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidState indicates the session is already completed and accepts
	// no further turns.
	ErrInvalidState = errors.New("session already completed")
	// ErrModelCall indicates the model backend failed and produced nothing
	// usable.
	ErrModelCall = errors.New("model call failed")
	// ErrPersistence indicates the turn could not be committed; no partial
	// writes survive.
	ErrPersistence = errors.New("failed to persist turn")
)

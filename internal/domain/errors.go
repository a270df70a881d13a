package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a PIN or id does not resolve to a session.
	ErrSessionNotFound = errors.New("game session not found")
	// ErrPlayerNotFound is returned when a player acts before joining.
	ErrPlayerNotFound = errors.New("player not found in game")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrEventNotFound indicates the referenced event does not exist.
	ErrEventNotFound = errors.New("event not found")
	// ErrInvalidAction is returned for action names outside the supported set.
	ErrInvalidAction = errors.New("unsupported action")
	// ErrPreconditionFailed covers wrong-state actions and malformed input.
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrUnavailable signals that the request could not be served right now.
	ErrUnavailable = errors.New("service unavailable")
	// ErrPinConflict is returned by stores when a PIN is already taken.
	ErrPinConflict = errors.New("game pin already in use")
)

package apperrors

import "errors"

var (
	// ErrValidation marks input rejected before any side effect took place.
	ErrValidation = errors.New("invalid argument")
	// ErrNotFound is the generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrChatNotFound marks a message submitted against an unknown chat.
	ErrChatNotFound = errors.New("chat not found")
	// ErrUnauthorized is the generic sentinel for auth failures.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRateLimited marks an upstream model call rejected for rate limiting.
	ErrRateLimited = errors.New("rate limited")
)

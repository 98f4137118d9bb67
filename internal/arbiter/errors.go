package arbiter

import "errors"

var (
	// ErrValidation marks a missing or malformed request field.
	ErrValidation = errors.New("invalid request")
	// ErrPriority is returned when the requested mode is below the device mode.
	ErrPriority = errors.New("specified mode is less than current device mode")
	// ErrLockConflict is returned when a requested channel is already leased.
	ErrLockConflict = errors.New("one or more requested lights already locked")
	// ErrUnknownLock is returned for a token that owns no active channels.
	ErrUnknownLock = errors.New("lock code unknown or expired")
	// ErrDriver wraps a channel store failure.
	ErrDriver = errors.New("channel store failed")
)

package domain

import "errors"

// Fatal: the bridge cannot start.
var (
	ErrAuthentication   = errors.New("authentication failed")
	ErrLocalUnavailable = errors.New("local service unavailable")
)

// ErrRecoverable marks a failed cycle; the loop keeps going.
var ErrRecoverable = errors.New("cycle failed")

var ErrUnexpectedStatus = errors.New("unexpected status")

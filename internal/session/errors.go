package session

import "errors"

// Domain-specific errors for session operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrAutomationActive is returned when a channel write arrives while the
	// session is in automatic mode. The automation agent owns the channels;
	// the write is rejected without touching state or the broker.
	ErrAutomationActive = errors.New("session: automation owns the channels")

	// ErrUnknownChannel is returned for writes to a channel outside the
	// fixed channel set.
	ErrUnknownChannel = errors.New("session: unknown channel")

	// ErrSessionClosed is returned for writes after Close.
	ErrSessionClosed = errors.New("session: closed")

	// ErrInvalidPayload is returned by Decode when a known topic carries a
	// payload that cannot be interpreted. The message must be ignored and
	// prior state retained.
	ErrInvalidPayload = errors.New("session: invalid payload")
)

package proctor

import "errors"

var (
	// ErrSessionNotFound is returned when no session exists for the id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionClosed is returned when an operation requires an active
	// session but the session has already completed or been terminated.
	ErrSessionClosed = errors.New("session is no longer active")

	// ErrDetectorUnavailable is returned when frame analysis is requested
	// but no detection capability is configured or reachable. Callers may
	// keep the interview going without proctoring.
	ErrDetectorUnavailable = errors.New("detection capability unavailable")

	// ErrInvalidFrame is returned for payloads that do not decode to an image.
	ErrInvalidFrame = errors.New("frame payload could not be decoded")

	// ErrInterviewNotFound is returned when a session references a scheduled
	// interview that does not exist or already has a session attached.
	ErrInterviewNotFound = errors.New("interview not found or already taken")
)

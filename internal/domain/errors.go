package domain

import "errors"

var (
	// ErrInvalidTransition indicates a timer operation that the current
	// state does not allow, such as pausing an idle timer.
	ErrInvalidTransition = errors.New("invalid timer transition")

	// ErrSessionNotFound indicates an operation on a task with no live timer.
	ErrSessionNotFound = errors.New("no live timer for task")

	// ErrFinalizePending indicates the task's previous session is stopped
	// but its finalize write has not been confirmed yet.
	ErrFinalizePending = errors.New("previous session is still being saved")

	// ErrPersistenceWriteFailed indicates a session write did not land.
	// It is reported through the sync status, never to the timer caller.
	ErrPersistenceWriteFailed = errors.New("session write failed")

	// ErrAmbiguousRecovery marks an active session record found at startup
	// with no live timer. It needs a user decision: resume or finalize.
	ErrAmbiguousRecovery = errors.New("active session needs recovery decision")
)

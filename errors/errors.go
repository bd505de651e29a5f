package errors

import "fmt"

var (
	// Validation / registration
	ErrEmptyCredentials = fmt.Errorf("login and password cannot be empty")
	ErrInvalidLogin     = fmt.Errorf("login contains invalid characters")
	ErrLoginTaken       = fmt.Errorf("login is already registered")

	// Authentication / sessions
	ErrInvalidCredentials = fmt.Errorf("invalid login or password")
	ErrAlreadyActive      = fmt.Errorf("login already has an active session")
	ErrNotLoggedIn        = fmt.Errorf("no authenticated session")
	ErrSessionStillActive = fmt.Errorf("account still has an active session")

	// Messaging
	ErrUnknownReceiver = fmt.Errorf("receiver does not exist")
	ErrUnknownLogin    = fmt.Errorf("login does not exist")
	ErrEmptyMessage    = fmt.Errorf("message cannot be empty")

	// Wire protocol (fatal for the offending connection only)
	ErrFrameTooLong   = fmt.Errorf("frame exceeds maximum length")
	ErrMalformedFrame = fmt.Errorf("malformed frame")

	// Infrastructure
	ErrWorkerPanic = fmt.Errorf("worker panic")
)

package domain

import "errors"

var (
	// ErrAlreadyRunning reports that another sync run holds the single-flight
	// claim for the connection. The losing caller must not wait or retry.
	ErrAlreadyRunning = errors.New("sync already running for connection")

	// ErrConnectionNotFound reports an unknown connection id.
	ErrConnectionNotFound = errors.New("connection not found")

	// ErrMissingCredentials reports absent OAuth client configuration.
	// Operator intervention required.
	ErrMissingCredentials = errors.New("missing Google client credentials")

	// ErrTokenRefresh reports that the provider rejected the refresh token.
	// Fatal for the run, not for the process.
	ErrTokenRefresh = errors.New("token refresh failed")

	// ErrCursorExpired reports that the provider no longer honors the stored
	// incremental cursor; the run must fall back to a full sync.
	ErrCursorExpired = errors.New("incremental cursor expired")

	// ErrLabelNotFound reports that the configured label does not exist in
	// the mailbox.
	ErrLabelNotFound = errors.New("label not found")
)

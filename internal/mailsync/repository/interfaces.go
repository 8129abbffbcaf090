package repository

import (
	"context"
	"time"

	syncdomain "ats-backend/internal/mailsync/domain"
)

// ConnectionRepository persists the per-mailbox OAuth and sync state.
type ConnectionRepository interface {
	GetByID(ctx context.Context, id string) (*syncdomain.Connection, error)
	// Upsert creates the connection at first OAuth grant or refreshes its
	// token fields on re-grant. A stored refresh token is never overwritten
	// with an empty value.
	Upsert(ctx context.Context, conn *syncdomain.Connection) error
	// UpdateTokens persists a refreshed access token. Exactly one write per
	// successful refresh.
	UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error
	// UpdateSyncState mirrors a finished run onto the connection: status,
	// error message, cursor, and total-synced increment.
	UpdateSyncState(ctx context.Context, id, status string, syncErr *string, historyID uint64, insertedDelta int) error
}

// SyncRunRepository persists the append-only run log and carries the
// single-flight guarantee.
type SyncRunRepository interface {
	// Claim atomically inserts a running run row for the connection, failing
	// with ErrAlreadyRunning when a non-stale running row already exists.
	// The conditional insert is the cross-process lock.
	Claim(ctx context.Context, connectionID string, staleThreshold time.Duration) (*syncdomain.SyncRun, error)
	// Finalize completes a run exactly once; finalizing an already-completed
	// run is a no-op.
	Finalize(ctx context.Context, runID, status, syncType string, fetched, inserted int, executionTime time.Duration, errMsg *string) error
	ListByConnection(ctx context.Context, connectionID string, limit int) ([]syncdomain.SyncRun, error)
}

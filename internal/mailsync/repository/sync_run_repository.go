package repository

import (
	"context"
	"time"

	syncdomain "ats-backend/internal/mailsync/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// syncRunRepository implements SyncRunRepository on gorm.
type syncRunRepository struct {
	db *gorm.DB
}

func NewSyncRunRepository(db *gorm.DB) SyncRunRepository {
	return &syncRunRepository{db: db}
}

// Claim inserts the running row only when no live running row exists for the
// connection. The conditional insert is a single statement, so concurrent
// claimants race on the database, not in process memory; exactly one wins.
// Running rows older than the stale threshold are treated as abandoned by a
// crashed process and do not block the claim.
func (r *syncRunRepository) Claim(ctx context.Context, connectionID string, staleThreshold time.Duration) (*syncdomain.SyncRun, error) {
	run := &syncdomain.SyncRun{
		ID:           uuid.New().String(),
		ConnectionID: connectionID,
		// Provisional; the orchestrator records the decided type at finalize.
		SyncType:  syncdomain.SyncTypeIncremental,
		Status:    syncdomain.SyncStatusRunning,
		StartedAt: time.Now(),
	}
	staleCutoff := run.StartedAt.Add(-staleThreshold)

	result := r.db.WithContext(ctx).Exec(`
		INSERT INTO gmail_sync_runs
			(id, connection_id, sync_type, status, started_at, messages_fetched, messages_inserted, execution_time_ms)
		SELECT ?, ?, ?, ?, ?, 0, 0, 0
		WHERE NOT EXISTS (
			SELECT 1 FROM gmail_sync_runs
			WHERE connection_id = ? AND status = ? AND started_at > ?
		)
	`, run.ID, run.ConnectionID, run.SyncType, run.Status, run.StartedAt,
		connectionID, syncdomain.SyncStatusRunning, staleCutoff)

	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, syncdomain.ErrAlreadyRunning
	}
	return run, nil
}

// Finalize completes a run. The completed_at guard makes the write
// idempotent: a second finalize attempt affects zero rows.
func (r *syncRunRepository) Finalize(ctx context.Context, runID, status, syncType string, fetched, inserted int, executionTime time.Duration, errMsg *string) error {
	return r.db.WithContext(ctx).Model(&syncdomain.SyncRun{}).
		Where("id = ? AND completed_at IS NULL", runID).
		Updates(map[string]interface{}{
			"status":            status,
			"sync_type":         syncType,
			"completed_at":      time.Now(),
			"messages_fetched":  fetched,
			"messages_inserted": inserted,
			"execution_time_ms": executionTime.Milliseconds(),
			"error_message":     errMsg,
		}).Error
}

func (r *syncRunRepository) ListByConnection(ctx context.Context, connectionID string, limit int) ([]syncdomain.SyncRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []syncdomain.SyncRun
	err := r.db.WithContext(ctx).
		Where("connection_id = ?", connectionID).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}

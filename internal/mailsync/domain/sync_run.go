package domain

import "time"

// Sync type values.
const (
	SyncTypeFull        = "full"
	SyncTypeIncremental = "incremental"
)

// SyncRun is the append-only audit record of one sync execution. A run is
// created in running status when the single-flight claim succeeds and is
// finalized exactly once. At most one run per connection may be running at
// any instant; that row is the concurrency guard.
type SyncRun struct {
	ID               string     `json:"id" gorm:"primaryKey"`
	ConnectionID     string     `json:"connection_id" gorm:"index"`
	SyncType         string     `json:"sync_type"`
	Status           string     `json:"status" gorm:"index"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at"`
	MessagesFetched  int        `json:"messages_fetched"`
	MessagesInserted int        `json:"messages_inserted"`
	ExecutionTimeMs  int64      `json:"execution_time_ms"`
	ErrorMessage     *string    `json:"error,omitempty"`
}

func (SyncRun) TableName() string {
	return "gmail_sync_runs"
}

package domain

import "time"

// DefaultConnectionID is the id of the single mailbox integration this
// deployment runs against. Every operation is still keyed by connection id so
// additional mailboxes only need new rows.
const DefaultConnectionID = "central"

// Sync status values mirrored on the connection record.
const (
	SyncStatusIdle    = "idle"
	SyncStatusRunning = "running"
	SyncStatusSuccess = "success"
	SyncStatusError   = "error"
)

// Connection holds the OAuth credential state and sync progress for one
// mailbox integration. Token fields are written by the token manager, sync
// fields by the orchestrator; nothing ever deletes the row.
type Connection struct {
	ID           string     `json:"id" gorm:"primaryKey"`
	Email        string     `json:"email"`
	AccessToken  string     `json:"-"`
	RefreshToken string     `json:"-"`
	TokenType    string     `json:"-"`
	Scope        string     `json:"-"`
	ExpiresAt    *time.Time `json:"expires_at"`

	// LastHistoryID is the incremental sync cursor: the Gmail history id
	// captured at the start of the most recent successful run. Zero means no
	// successful run yet.
	LastHistoryID uint64 `json:"last_history_id"`

	LastSyncAt     *time.Time `json:"last_sync_at"`
	LastSyncStatus string     `json:"last_sync_status"`
	LastSyncError  *string    `json:"last_sync_error,omitempty"`
	TotalSynced    int64      `json:"total_synced"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Connection) TableName() string {
	return "gmail_connections"
}

// TokenRefresh is the result of exchanging a refresh token with the provider.
// RefreshToken carries the previously stored value when the provider did not
// reissue one.
type TokenRefresh struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

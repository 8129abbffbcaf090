package domain

// SyncOptions control a single orchestrator run.
type SyncOptions struct {
	Label         string
	ForceFullSync bool
}

// SyncResult is the structured outcome of one run, returned to the trigger
// caller and recorded on the run row.
type SyncResult struct {
	OK               bool     `json:"ok"`
	SyncType         string   `json:"sync_type"`
	MessagesFetched  int      `json:"messages_fetched"`
	MessagesInserted int      `json:"messages_inserted"`
	Error            string   `json:"error,omitempty"`
	NewApplicantIDs  []string `json:"-"`
}

// NotificationSummary reports the fan-out outcome alongside a sync result.
// Delivery failures are counted here and never affect the sync status.
type NotificationSummary struct {
	TotalSent    int `json:"total_sent"`
	TotalSuccess int `json:"total_success"`
	TotalFailed  int `json:"total_failed"`
}

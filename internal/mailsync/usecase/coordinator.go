package usecase

import (
	"context"
	"log"

	syncdomain "ats-backend/internal/mailsync/domain"
)

// Coordinator chains a sync run with the new-applicant notification fan-out.
// Notification delivery runs after the run is finalized and can never change
// its outcome.
type Coordinator struct {
	sync     *SyncUsecase
	notifier Notifier
}

func NewCoordinator(sync *SyncUsecase, notifier Notifier) *Coordinator {
	return &Coordinator{sync: sync, notifier: notifier}
}

// RunSync executes one sync and, when it inserted anything, notifies client
// users. The notification summary is nil when nothing was sent.
func (c *Coordinator) RunSync(ctx context.Context, connectionID string, opts syncdomain.SyncOptions) (*syncdomain.SyncResult, *syncdomain.NotificationSummary, error) {
	result, err := c.sync.Sync(ctx, connectionID, opts)
	if err != nil {
		return nil, nil, err
	}

	if !result.OK || result.MessagesInserted == 0 || c.notifier == nil {
		return result, nil, nil
	}

	summary, err := c.notifier.NotifyNewApplicants(ctx, result.NewApplicantIDs)
	if err != nil {
		log.Printf("[Coordinator] Notification dispatch failed: %v", err)
		return result, nil, nil
	}
	return result, summary, nil
}

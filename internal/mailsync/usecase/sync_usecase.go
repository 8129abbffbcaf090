package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	syncdomain "ats-backend/internal/mailsync/domain"
	syncrepo "ats-backend/internal/mailsync/repository"
)

// finalizeTimeout bounds the bookkeeping writes that close out a run.
const finalizeTimeout = 10 * time.Second

// SyncConfig carries the tunables of one orchestrator instance.
type SyncConfig struct {
	Label          string
	PageSize       int64
	MaxTotal       int64
	RunTimeout     time.Duration
	StaleThreshold time.Duration
}

// SyncUsecase runs one mailbox sync end to end: claim the run, obtain a
// token, list and fetch messages, ingest applicants, finalize the run log and
// mirror the outcome onto the connection.
type SyncUsecase struct {
	connRepo syncrepo.ConnectionRepository
	runRepo  syncrepo.SyncRunRepository
	source   MessageSource
	ingester ApplicantIngester
	tokens   *TokenManager
	cfg      SyncConfig
}

func NewSyncUsecase(
	connRepo syncrepo.ConnectionRepository,
	runRepo syncrepo.SyncRunRepository,
	source MessageSource,
	ingester ApplicantIngester,
	cfg SyncConfig,
) *SyncUsecase {
	return &SyncUsecase{
		connRepo: connRepo,
		runRepo:  runRepo,
		source:   source,
		ingester: ingester,
		tokens:   NewTokenManager(source, connRepo),
		cfg:      cfg,
	}
}

// Sync executes one run for the connection. It returns an error only when no
// run was started (unknown connection, or another run in flight); once a run
// is claimed every outcome is finalized into the run log and reported in the
// result.
func (u *SyncUsecase) Sync(ctx context.Context, connectionID string, opts syncdomain.SyncOptions) (*syncdomain.SyncResult, error) {
	conn, err := u.connRepo.GetByID(ctx, connectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load connection: %w", err)
	}
	if conn == nil {
		return nil, syncdomain.ErrConnectionNotFound
	}

	run, err := u.runRepo.Claim(ctx, connectionID, u.cfg.StaleThreshold)
	if err != nil {
		return nil, err
	}

	label := u.cfg.Label
	if opts.Label != "" {
		label = opts.Label
	}

	start := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, u.cfg.RunTimeout)
	defer cancel()

	result, newCursor := u.execute(runCtx, conn, label, opts.ForceFullSync)

	status := syncdomain.SyncStatusSuccess
	var errMsg *string
	if !result.OK {
		status = syncdomain.SyncStatusError
		msg := result.Error
		errMsg = &msg
	}

	elapsed := time.Since(start)

	// The run log must be closed even when the caller's context was
	// cancelled mid-run, otherwise the row stays running until the stale
	// threshold and blocks new runs in the meantime.
	finalizeCtx, cancelFinalize := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancelFinalize()

	if err := u.runRepo.Finalize(finalizeCtx, run.ID, status, result.SyncType, result.MessagesFetched, result.MessagesInserted, elapsed, errMsg); err != nil {
		log.Printf("[Sync] Failed to finalize run %s: %v", run.ID, err)
	}
	if err := u.connRepo.UpdateSyncState(finalizeCtx, connectionID, status, errMsg, newCursor, result.MessagesInserted); err != nil {
		log.Printf("[Sync] Failed to update connection state for %s: %v", connectionID, err)
	}

	log.Printf("[Sync] Run %s finished: type=%s status=%s fetched=%d inserted=%d elapsed=%s",
		run.ID, result.SyncType, status, result.MessagesFetched, result.MessagesInserted, elapsed.Round(time.Millisecond))
	return result, nil
}

// execute performs the provider work for a claimed run. The returned cursor
// is the history id to persist on success; zero when it was never captured.
func (u *SyncUsecase) execute(ctx context.Context, conn *syncdomain.Connection, label string, forceFull bool) (*syncdomain.SyncResult, uint64) {
	syncType := syncdomain.SyncTypeIncremental
	if forceFull || conn.LastHistoryID == 0 {
		syncType = syncdomain.SyncTypeFull
	}
	result := &syncdomain.SyncResult{SyncType: syncType}

	accessToken, err := u.tokens.EnsureValidToken(ctx, conn)
	if err != nil {
		result.Error = err.Error()
		return result, 0
	}

	labelID, err := u.source.ResolveLabelID(ctx, accessToken, label)
	if err != nil {
		if errors.Is(err, syncdomain.ErrLabelNotFound) {
			// Nothing to ingest until the label exists; not a failure.
			log.Printf("[Sync] Label %q not found for connection %s, nothing to sync", label, conn.ID)
			result.OK = true
			return result, 0
		}
		result.Error = err.Error()
		return result, 0
	}

	// Capture the cursor before listing so messages arriving mid-run land in
	// the next incremental window instead of being skipped.
	newCursor, err := u.source.CurrentHistoryID(ctx, accessToken)
	if err != nil {
		result.Error = err.Error()
		return result, 0
	}

	var messageIDs []string
	if syncType == syncdomain.SyncTypeIncremental {
		messageIDs, err = u.source.ListHistoryMessageIDs(ctx, accessToken, labelID, conn.LastHistoryID, u.cfg.PageSize, u.cfg.MaxTotal)
		if errors.Is(err, syncdomain.ErrCursorExpired) {
			log.Printf("[Sync] History cursor expired for connection %s, falling back to full sync", conn.ID)
			syncType = syncdomain.SyncTypeFull
			result.SyncType = syncType
			messageIDs, err = u.source.ListMessageIDs(ctx, accessToken, labelID, u.cfg.PageSize, u.cfg.MaxTotal)
		}
	} else {
		messageIDs, err = u.source.ListMessageIDs(ctx, accessToken, labelID, u.cfg.PageSize, u.cfg.MaxTotal)
	}
	if err != nil {
		result.Error = err.Error()
		return result, 0
	}

	// A capped listing left older messages behind. Keeping the previous
	// cursor makes the next run see them again instead of skipping past.
	if u.cfg.MaxTotal > 0 && int64(len(messageIDs)) >= u.cfg.MaxTotal {
		log.Printf("[Sync] Listing for connection %s hit the %d message cap, cursor not advanced", conn.ID, u.cfg.MaxTotal)
		newCursor = 0
	}

	for _, id := range messageIDs {
		if ctx.Err() != nil {
			result.Error = fmt.Sprintf("sync run aborted: %v", ctx.Err())
			return result, 0
		}

		msg, err := u.source.FetchMessage(ctx, accessToken, id)
		if err != nil {
			log.Printf("[Sync] Skipping message %s: fetch failed: %v", id, err)
			continue
		}
		result.MessagesFetched++

		applicantID, inserted, err := u.ingester.MapAndInsert(ctx, msg)
		if err != nil {
			log.Printf("[Sync] Skipping message %s: ingest failed: %v", id, err)
			continue
		}
		if inserted {
			result.MessagesInserted++
			result.NewApplicantIDs = append(result.NewApplicantIDs, applicantID)
		}
	}

	result.OK = true
	return result, newCursor
}

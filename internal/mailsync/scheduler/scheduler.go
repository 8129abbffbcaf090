package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	syncdomain "ats-backend/internal/mailsync/domain"
)

// Trigger starts one sync run. usecase.Coordinator satisfies it.
type Trigger interface {
	RunSync(ctx context.Context, connectionID string, opts syncdomain.SyncOptions) (*syncdomain.SyncResult, *syncdomain.NotificationSummary, error)
}

// Scheduler runs an incremental sync for the central connection on a fixed
// interval. A run still in flight when the ticker fires is simply skipped;
// the single-flight claim makes the overlap harmless.
type Scheduler struct {
	trigger  Trigger
	interval time.Duration
	stop     chan struct{}
}

func New(trigger Trigger, interval time.Duration) *Scheduler {
	return &Scheduler{
		trigger:  trigger,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start launches the loop in its own goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	log.Printf("[Scheduler] Starting periodic sync every %s", s.interval)
	go s.run(ctx)
}

func (s *Scheduler) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-s.stop:
			log.Println("[Scheduler] Stopped")
			return
		case <-ctx.Done():
			log.Println("[Scheduler] Context cancelled, stopping")
			return
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	result, _, err := s.trigger.RunSync(ctx, syncdomain.DefaultConnectionID, syncdomain.SyncOptions{})
	if err != nil {
		if errors.Is(err, syncdomain.ErrAlreadyRunning) {
			log.Println("[Scheduler] Previous sync still running, skipping tick")
			return
		}
		if errors.Is(err, syncdomain.ErrConnectionNotFound) {
			log.Println("[Scheduler] No mailbox connected yet, skipping tick")
			return
		}
		log.Printf("[Scheduler] Sync failed to start: %v", err)
		return
	}
	log.Printf("[Scheduler] Periodic sync done: type=%s fetched=%d inserted=%d",
		result.SyncType, result.MessagesFetched, result.MessagesInserted)
}

func (s *Scheduler) Stop() {
	close(s.stop)
}

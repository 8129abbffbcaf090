package notification

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	syncdomain "ats-backend/internal/mailsync/domain"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// mailboxNotification is the payload Gmail publishes to the watch topic.
type mailboxNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// SyncTrigger starts a sync run for a connection. usecase.Coordinator
// satisfies it.
type SyncTrigger interface {
	RunSync(ctx context.Context, connectionID string, opts syncdomain.SyncOptions) (*syncdomain.SyncResult, *syncdomain.NotificationSummary, error)
}

// PushListener consumes Gmail watch notifications from Pub/Sub and kicks an
// incremental sync for the central connection. It is an accelerator on top
// of the interval scheduler, not a replacement; a dropped notification is
// caught by the next scheduled run.
type PushListener struct {
	pubsubClient *pubsub.Client
	trigger      SyncTrigger
	topicName    string
	subName      string

	mu            sync.Mutex
	lastHistoryID uint64
}

func NewPushListener(projectID, topicName, credentialsFile string, trigger SyncTrigger) (*PushListener, error) {
	ctx := context.Background()

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, err
	}

	return &PushListener{
		pubsubClient: client,
		trigger:      trigger,
		topicName:    topicName,
		subName:      topicName + "-sub",
	}, nil
}

// Start blocks receiving notifications until ctx is cancelled.
func (l *PushListener) Start(ctx context.Context) {
	log.Printf("[PubSub] Starting push listener, topic: %s, subscription: %s", l.topicName, l.subName)

	sub := l.pubsubClient.Subscription(l.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		log.Printf("[PubSub] Error checking subscription existence: %v", err)
		return
	}

	if !exists {
		topic := l.pubsubClient.Topic(l.topicName)
		topicExists, err := topic.Exists(ctx)
		if err != nil {
			log.Printf("[PubSub] Error checking topic existence: %v", err)
			return
		}
		if !topicExists {
			log.Printf("[PubSub] Topic %s does not exist, push listener disabled", l.topicName)
			return
		}

		sub, err = l.pubsubClient.CreateSubscription(ctx, l.subName, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 10 * time.Second,
		})
		if err != nil {
			log.Printf("[PubSub] Failed to create subscription: %v", err)
			return
		}
		log.Printf("[PubSub] Created subscription: %s", l.subName)
	}

	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		l.handleMessage(ctx, msg)
		msg.Ack()
	})
	if err != nil {
		log.Printf("[PubSub] Receive stopped: %v", err)
	}
}

func (l *PushListener) handleMessage(ctx context.Context, msg *pubsub.Message) {
	var notification mailboxNotification
	if err := json.Unmarshal(msg.Data, &notification); err != nil {
		log.Printf("[PubSub] Failed to unmarshal notification: %v", err)
		return
	}

	log.Printf("[PubSub] Mailbox update for %s (historyId: %d)", notification.EmailAddress, notification.HistoryID)

	// Gmail redelivers aggressively; skip history ids already seen.
	l.mu.Lock()
	if notification.HistoryID != 0 && notification.HistoryID <= l.lastHistoryID {
		l.mu.Unlock()
		log.Printf("[PubSub] Skipping duplicate notification (historyId %d <= %d)", notification.HistoryID, l.lastHistoryID)
		return
	}
	l.lastHistoryID = notification.HistoryID
	l.mu.Unlock()

	_, _, err := l.trigger.RunSync(ctx, syncdomain.DefaultConnectionID, syncdomain.SyncOptions{})
	if err != nil {
		if errors.Is(err, syncdomain.ErrAlreadyRunning) {
			log.Printf("[PubSub] Sync already in flight, notification absorbed")
			return
		}
		log.Printf("[PubSub] Triggered sync failed to start: %v", err)
	}
}

func (l *PushListener) Close() error {
	return l.pubsubClient.Close()
}

package usecase

import (
	"context"

	syncdomain "ats-backend/internal/mailsync/domain"
)

// MessageSource is the mailbox provider surface the orchestrator needs.
// pkg/gmail.Service satisfies it.
type MessageSource interface {
	RefreshAccessToken(ctx context.Context, refreshToken string) (*syncdomain.TokenRefresh, error)
	ResolveLabelID(ctx context.Context, accessToken, labelName string) (string, error)
	ListMessageIDs(ctx context.Context, accessToken, labelID string, pageSize, maxTotal int64) ([]string, error)
	ListHistoryMessageIDs(ctx context.Context, accessToken, labelID string, startHistoryID uint64, pageSize, maxTotal int64) ([]string, error)
	CurrentHistoryID(ctx context.Context, accessToken string) (uint64, error)
	FetchMessage(ctx context.Context, accessToken, messageID string) (*syncdomain.Message, error)
}

// ApplicantIngester turns a fetched message into a stored applicant record.
// The bool reports whether a new row was written; false means the message was
// already ingested.
type ApplicantIngester interface {
	MapAndInsert(ctx context.Context, msg *syncdomain.Message) (string, bool, error)
}

// Notifier fans a batch of newly ingested applicants out to client devices.
// Implementations must swallow delivery failures into the summary.
type Notifier interface {
	NotifyNewApplicants(ctx context.Context, applicantIDs []string) (*syncdomain.NotificationSummary, error)
}

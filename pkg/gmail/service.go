package gmail

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	syncdomain "ats-backend/internal/mailsync/domain"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	maxRequestAttempts = 3
	retryBaseDelay     = 500 * time.Millisecond
)

// Service talks to the Gmail REST API for one OAuth application.
type Service struct {
	clientID     string
	clientSecret string
}

func NewService(clientID, clientSecret string) *Service {
	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// OAuthConfig returns the oauth2 configuration used for the grant flow and
// token refresh.
func (s *Service) OAuthConfig(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		RedirectURL:  redirectURI,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmail.GmailReadonlyScope},
	}
}

func (s *Service) gmailService(ctx context.Context, accessToken string) (*gmail.Service, error) {
	token := &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}

	srv, err := gmail.NewService(ctx, option.WithTokenSource(oauth2.StaticTokenSource(token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return srv, nil
}

// RefreshAccessToken exchanges a refresh token for a new access token.
// Providers do not always reissue refresh tokens; the previously stored one
// is carried forward when the response omits it.
func (s *Service) RefreshAccessToken(ctx context.Context, refreshToken string) (*syncdomain.TokenRefresh, error) {
	if s.clientID == "" || s.clientSecret == "" {
		return nil, syncdomain.ErrMissingCredentials
	}
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token stored", syncdomain.ErrTokenRefresh)
	}

	config := s.OAuthConfig("")
	tokenSource := config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	newToken, err := tokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", syncdomain.ErrTokenRefresh, err)
	}

	result := &syncdomain.TokenRefresh{
		AccessToken:  newToken.AccessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    newToken.Expiry,
	}
	if newToken.RefreshToken != "" {
		result.RefreshToken = newToken.RefreshToken
	}

	log.Printf("[Gmail] Token refreshed, expires at %s", result.ExpiresAt.Format(time.RFC3339))
	return result, nil
}

// ResolveLabelID finds the label id for a label name, tolerating the
// name variants Gmail produces for shared labels (full-width slashes and
// spaces, dash vs slash separators).
func (s *Service) ResolveLabelID(ctx context.Context, accessToken, labelName string) (string, error) {
	srv, err := s.gmailService(ctx, accessToken)
	if err != nil {
		return "", err
	}

	var resp *gmail.ListLabelsResponse
	err = withRetry(ctx, func() error {
		resp, err = srv.Users.Labels.List("me").Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to list labels: %w", err)
	}

	want := normalizeLabelName(labelName)
	wantDash := normalizeLabelName(strings.ReplaceAll(labelName, "/", "-"))
	wantSlash := normalizeLabelName(strings.ReplaceAll(labelName, "-", "/"))

	for _, label := range resp.Labels {
		got := normalizeLabelName(label.Name)
		if got == want || got == wantDash || got == wantSlash {
			return label.Id, nil
		}
	}

	return "", fmt.Errorf("%w: %q", syncdomain.ErrLabelNotFound, labelName)
}

func normalizeLabelName(s string) string {
	s = strings.ReplaceAll(s, "／", "/")
	s = strings.ReplaceAll(s, "　", " ")
	return strings.ToLower(strings.TrimSpace(s))
}

// ListMessageIDs lists all message ids under a label (full sync mode),
// following pagination up to maxTotal ids.
func (s *Service) ListMessageIDs(ctx context.Context, accessToken, labelID string, pageSize, maxTotal int64) ([]string, error) {
	srv, err := s.gmailService(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, pageSize)
	pageToken := ""

	for int64(len(ids)) < maxTotal {
		call := srv.Users.Messages.List("me").MaxResults(pageSize).Context(ctx)
		if labelID != "" {
			call = call.LabelIds(labelID)
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		var resp *gmail.ListMessagesResponse
		err = withRetry(ctx, func() error {
			resp, err = call.Do()
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}

		for _, msg := range resp.Messages {
			ids = append(ids, msg.Id)
			if int64(len(ids)) >= maxTotal {
				break
			}
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	log.Printf("[Gmail] Listed %d message ids for label %s", len(ids), labelID)
	return ids, nil
}

// ListHistoryMessageIDs lists ids of messages added under a label since the
// given history id (incremental sync mode). A 404 from the history API means
// Gmail's retention window rolled past the cursor; the caller must fall back
// to a full sync.
func (s *Service) ListHistoryMessageIDs(ctx context.Context, accessToken, labelID string, startHistoryID uint64, pageSize, maxTotal int64) ([]string, error) {
	srv, err := s.gmailService(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	ids := make([]string, 0)
	pageToken := ""

	for {
		call := srv.Users.History.List("me").
			StartHistoryId(startHistoryID).
			HistoryTypes("messageAdded").
			MaxResults(pageSize).
			Context(ctx)
		if labelID != "" {
			call = call.LabelId(labelID)
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		var resp *gmail.ListHistoryResponse
		err = withRetry(ctx, func() error {
			resp, err = call.Do()
			return err
		})
		if err != nil {
			var apiErr *googleapi.Error
			if errors.As(err, &apiErr) && apiErr.Code == 404 {
				return nil, fmt.Errorf("%w: history id %d", syncdomain.ErrCursorExpired, startHistoryID)
			}
			return nil, fmt.Errorf("failed to list history: %w", err)
		}

		for _, h := range resp.History {
			for _, added := range h.MessagesAdded {
				if added.Message == nil {
					continue
				}
				if _, dup := seen[added.Message.Id]; dup {
					continue
				}
				seen[added.Message.Id] = struct{}{}
				ids = append(ids, added.Message.Id)
				if int64(len(ids)) >= maxTotal {
					return ids, nil
				}
			}
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	log.Printf("[Gmail] History since %d yielded %d new message ids", startHistoryID, len(ids))
	return ids, nil
}

// CurrentHistoryID returns the mailbox's current history id, captured as the
// cursor for the next incremental run.
func (s *Service) CurrentHistoryID(ctx context.Context, accessToken string) (uint64, error) {
	srv, err := s.gmailService(ctx, accessToken)
	if err != nil {
		return 0, err
	}

	var profile *gmail.Profile
	err = withRetry(ctx, func() error {
		profile, err = srv.Users.GetProfile("me").Context(ctx).Do()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile.HistoryId, nil
}

// ProfileEmail returns the address of the authorized mailbox.
func (s *Service) ProfileEmail(ctx context.Context, accessToken string) (string, error) {
	srv, err := s.gmailService(ctx, accessToken)
	if err != nil {
		return "", err
	}

	var profile *gmail.Profile
	err = withRetry(ctx, func() error {
		profile, err = srv.Users.GetProfile("me").Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to get profile: %w", err)
	}
	return profile.EmailAddress, nil
}

// FetchMessage fetches one full message and reduces it to the domain shape,
// decoding the MIME bodies.
func (s *Service) FetchMessage(ctx context.Context, accessToken, messageID string) (*syncdomain.Message, error) {
	srv, err := s.gmailService(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	var msg *gmail.Message
	err = withRetry(ctx, func() error {
		msg, err = srv.Users.Messages.Get("me", messageID).Format("full").Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}

	return convertMessage(msg), nil
}

func convertMessage(msg *gmail.Message) *syncdomain.Message {
	out := &syncdomain.Message{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Snippet:  msg.Snippet,
		Headers:  make(map[string]string),
	}

	if msg.InternalDate > 0 {
		out.ReceivedAt = time.UnixMilli(msg.InternalDate)
	} else {
		out.ReceivedAt = time.Now()
	}

	if msg.Payload != nil {
		for _, header := range msg.Payload.Headers {
			name := strings.ToLower(header.Name)
			// First occurrence wins; the mapper only needs one value per name.
			if _, ok := out.Headers[name]; !ok {
				out.Headers[name] = header.Value
			}
		}
		out.Subject = out.Headers["subject"]
		out.Bodies = ExtractBodies(msg.Payload)
	}

	return out
}

// Watch registers the mailbox for push notifications on a Pub/Sub topic and
// returns the history id the watch starts from.
func (s *Service) Watch(ctx context.Context, accessToken, topicName, labelID string) (uint64, error) {
	srv, err := s.gmailService(ctx, accessToken)
	if err != nil {
		return 0, err
	}

	// Gmail allows one push client per mailbox; clear any previous watch.
	_ = srv.Users.Stop("me").Do()

	req := &gmail.WatchRequest{TopicName: topicName}
	if labelID != "" {
		req.LabelIds = []string{labelID}
	}

	resp, err := srv.Users.Watch("me", req).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("unable to watch mailbox: %w", err)
	}

	log.Printf("[Gmail] Watch registered on %s, expires %d, historyId %d", topicName, resp.Expiration, resp.HistoryId)
	return resp.HistoryId, nil
}

// StopWatch cancels push notifications for the mailbox.
func (s *Service) StopWatch(ctx context.Context, accessToken string) error {
	srv, err := s.gmailService(ctx, accessToken)
	if err != nil {
		return err
	}

	if err := srv.Users.Stop("me").Context(ctx).Do(); err != nil {
		return fmt.Errorf("unable to stop mailbox watch: %w", err)
	}
	return nil
}

// withRetry retries a single API request on rate-limit and server errors with
// exponential backoff. Exhausting the attempts returns the last error; the
// caller decides whether that skips a message or fails the run.
func withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxRequestAttempts; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay << (attempt - 1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err = fn()
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		log.Printf("[Gmail] Retryable API error (attempt %d/%d): %v", attempt+1, maxRequestAttempts, err)
	}
	return err
}

func isRetryable(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code >= 500
	}
	return false
}

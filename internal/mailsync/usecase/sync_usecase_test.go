package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	syncdomain "ats-backend/internal/mailsync/domain"
)

type fakeConnRepo struct {
	conn *syncdomain.Connection

	updateTokenCalls int
	savedAccess      string
	savedRefresh     string

	stateStatus string
	stateErr    *string
	stateCursor uint64
	stateDelta  int
}

func (f *fakeConnRepo) GetByID(ctx context.Context, id string) (*syncdomain.Connection, error) {
	if f.conn == nil || f.conn.ID != id {
		return nil, nil
	}
	return f.conn, nil
}

func (f *fakeConnRepo) Upsert(ctx context.Context, conn *syncdomain.Connection) error {
	f.conn = conn
	return nil
}

func (f *fakeConnRepo) UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error {
	f.updateTokenCalls++
	f.savedAccess = accessToken
	f.savedRefresh = refreshToken
	return nil
}

func (f *fakeConnRepo) UpdateSyncState(ctx context.Context, id, status string, syncErr *string, historyID uint64, insertedDelta int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.stateStatus = status
	f.stateErr = syncErr
	f.stateCursor = historyID
	f.stateDelta = insertedDelta
	return nil
}

type fakeRunRepo struct {
	claimErr error

	finalStatus   string
	finalSyncType string
	finalFetched  int
	finalInserted int
	finalErrMsg   *string
	finalized     int
}

func (f *fakeRunRepo) Claim(ctx context.Context, connectionID string, staleThreshold time.Duration) (*syncdomain.SyncRun, error) {
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	return &syncdomain.SyncRun{ID: "run-1", ConnectionID: connectionID, Status: syncdomain.SyncStatusRunning, StartedAt: time.Now()}, nil
}

func (f *fakeRunRepo) Finalize(ctx context.Context, runID, status, syncType string, fetched, inserted int, executionTime time.Duration, errMsg *string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.finalized++
	f.finalStatus = status
	f.finalSyncType = syncType
	f.finalFetched = fetched
	f.finalInserted = inserted
	f.finalErrMsg = errMsg
	return nil
}

func (f *fakeRunRepo) ListByConnection(ctx context.Context, connectionID string, limit int) ([]syncdomain.SyncRun, error) {
	return nil, nil
}

type fakeSource struct {
	messages map[string]*syncdomain.Message
	order    []string

	labelErr   error
	historyErr error
	listErr    error
	refreshErr error
	fetchErr   map[string]error

	historyID uint64

	refreshCalls int
	listCalls    int
	historyCalls int
	lastStartID  uint64

	onFetch func()
}

func (f *fakeSource) RefreshAccessToken(ctx context.Context, refreshToken string) (*syncdomain.TokenRefresh, error) {
	f.refreshCalls++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &syncdomain.TokenRefresh{AccessToken: "fresh-token", RefreshToken: refreshToken, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeSource) ResolveLabelID(ctx context.Context, accessToken, labelName string) (string, error) {
	if f.labelErr != nil {
		return "", f.labelErr
	}
	return "Label_1", nil
}

func (f *fakeSource) ListMessageIDs(ctx context.Context, accessToken, labelID string, pageSize, maxTotal int64) ([]string, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.order, nil
}

func (f *fakeSource) ListHistoryMessageIDs(ctx context.Context, accessToken, labelID string, startHistoryID uint64, pageSize, maxTotal int64) ([]string, error) {
	f.historyCalls++
	f.lastStartID = startHistoryID
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.order, nil
}

func (f *fakeSource) CurrentHistoryID(ctx context.Context, accessToken string) (uint64, error) {
	return f.historyID, nil
}

func (f *fakeSource) FetchMessage(ctx context.Context, accessToken, messageID string) (*syncdomain.Message, error) {
	if f.onFetch != nil {
		f.onFetch()
	}
	if err, ok := f.fetchErr[messageID]; ok {
		return nil, err
	}
	msg, ok := f.messages[messageID]
	if !ok {
		return nil, errors.New("unknown message")
	}
	return msg, nil
}

type fakeIngester struct {
	seen      map[string]bool
	failOn    map[string]error
	insertIDs []string
}

func newFakeIngester() *fakeIngester {
	return &fakeIngester{seen: map[string]bool{}, failOn: map[string]error{}}
}

func (f *fakeIngester) MapAndInsert(ctx context.Context, msg *syncdomain.Message) (string, bool, error) {
	if err, ok := f.failOn[msg.ID]; ok {
		return "", false, err
	}
	if f.seen[msg.ID] {
		return "applicant-" + msg.ID, false, nil
	}
	f.seen[msg.ID] = true
	f.insertIDs = append(f.insertIDs, "applicant-"+msg.ID)
	return "applicant-" + msg.ID, true, nil
}

func validConnection() *syncdomain.Connection {
	expires := time.Now().Add(time.Hour)
	return &syncdomain.Connection{
		ID:           syncdomain.DefaultConnectionID,
		AccessToken:  "token",
		RefreshToken: "refresh",
		ExpiresAt:    &expires,
	}
}

func messageSet(ids ...string) (map[string]*syncdomain.Message, []string) {
	msgs := make(map[string]*syncdomain.Message, len(ids))
	for _, id := range ids {
		msgs[id] = &syncdomain.Message{ID: id, ThreadID: "t-" + id, ReceivedAt: time.Now()}
	}
	return msgs, ids
}

func newTestUsecase(connRepo *fakeConnRepo, runRepo *fakeRunRepo, source *fakeSource, ingester *fakeIngester) *SyncUsecase {
	return NewSyncUsecase(connRepo, runRepo, source, ingester, SyncConfig{
		Label:          "ATS/Applications",
		PageSize:       200,
		MaxTotal:       5000,
		RunTimeout:     time.Minute,
		StaleThreshold: 3 * time.Minute,
	})
}

func TestSyncFullIngestsAndPersistsCursor(t *testing.T) {
	msgs, order := messageSet("m1", "m2", "m3")
	connRepo := &fakeConnRepo{conn: validConnection()}
	runRepo := &fakeRunRepo{}
	source := &fakeSource{messages: msgs, order: order, historyID: 42}
	ingester := newFakeIngester()

	result, err := newTestUsecase(connRepo, runRepo, source, ingester).
		Sync(context.Background(), syncdomain.DefaultConnectionID, syncdomain.SyncOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.OK || result.SyncType != syncdomain.SyncTypeFull {
		t.Fatalf("expected successful full sync, got %+v", result)
	}
	if result.MessagesFetched != 3 || result.MessagesInserted != 3 {
		t.Errorf("fetched=%d inserted=%d, want 3/3", result.MessagesFetched, result.MessagesInserted)
	}
	if len(result.NewApplicantIDs) != 3 {
		t.Errorf("expected 3 new applicant ids, got %v", result.NewApplicantIDs)
	}
	if connRepo.stateStatus != syncdomain.SyncStatusSuccess || connRepo.stateCursor != 42 || connRepo.stateDelta != 3 {
		t.Errorf("connection state not mirrored: status=%s cursor=%d delta=%d",
			connRepo.stateStatus, connRepo.stateCursor, connRepo.stateDelta)
	}
	if runRepo.finalized != 1 || runRepo.finalStatus != syncdomain.SyncStatusSuccess {
		t.Errorf("run not finalized as success: %+v", runRepo)
	}
	if source.historyCalls != 0 {
		t.Errorf("full sync must not use the history API, got %d calls", source.historyCalls)
	}
}

func TestSyncIncrementalUsesStoredCursor(t *testing.T) {
	msgs, order := messageSet("m4")
	conn := validConnection()
	conn.LastHistoryID = 1000
	connRepo := &fakeConnRepo{conn: conn}
	runRepo := &fakeRunRepo{}
	source := &fakeSource{messages: msgs, order: order, historyID: 1050}
	ingester := newFakeIngester()

	result, err := newTestUsecase(connRepo, runRepo, source, ingester).
		Sync(context.Background(), syncdomain.DefaultConnectionID, syncdomain.SyncOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.SyncType != syncdomain.SyncTypeIncremental {
		t.Errorf("expected incremental sync, got %s", result.SyncType)
	}
	if source.historyCalls != 1 || source.lastStartID != 1000 {
		t.Errorf("history called %d times with start %d, want 1/1000", source.historyCalls, source.lastStartID)
	}
	if source.listCalls != 0 {
		t.Errorf("incremental sync must not list the full label, got %d calls", source.listCalls)
	}
	if connRepo.stateCursor != 1050 {
		t.Errorf("new cursor not persisted, got %d", connRepo.stateCursor)
	}
}

func TestSyncExpiredCursorFallsBackToFull(t *testing.T) {
	msgs, order := messageSet("m5", "m6")
	conn := validConnection()
	conn.LastHistoryID = 1000
	connRepo := &fakeConnRepo{conn: conn}
	runRepo := &fakeRunRepo{}
	source := &fakeSource{messages: msgs, order: order, historyID: 2000, historyErr: syncdomain.ErrCursorExpired}
	ingester := newFakeIngester()

	result, err := newTestUsecase(connRepo, runRepo, source, ingester).
		Sync(context.Background(), syncdomain.DefaultConnectionID, syncdomain.SyncOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.OK || result.SyncType != syncdomain.SyncTypeFull {
		t.Fatalf("expected successful fallback to full, got %+v", result)
	}
	if source.historyCalls != 1 || source.listCalls != 1 {
		t.Errorf("expected one history attempt then one full listing, got %d/%d", source.historyCalls, source.listCalls)
	}
	if runRepo.finalSyncType != syncdomain.SyncTypeFull {
		t.Errorf("run log records %s, want full", runRepo.finalSyncType)
	}
}

func TestSyncForceFullIgnoresCursor(t *testing.T) {
	msgs, order := messageSet("m7")
	conn := validConnection()
	conn.LastHistoryID = 1000
	connRepo := &fakeConnRepo{conn: conn}
	source := &fakeSource{messages: msgs, order: order, historyID: 2000}

	result, err := newTestUsecase(connRepo, &fakeRunRepo{}, source, newFakeIngester()).
		Sync(context.Background(), syncdomain.DefaultConnectionID, syncdomain.SyncOptions{ForceFullSync: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SyncType != syncdomain.SyncTypeFull || source.historyCalls != 0 {
		t.Errorf("forced run must do a full listing, got type=%s historyCalls=%d", result.SyncType, source.historyCalls)
	}
}

func TestSyncRerunInsertsNothingNew(t *testing.T) {
	msgs, order := messageSet("m1", "m2")
	connRepo := &fakeConnRepo{conn: validConnection()}
	source := &fakeSource{messages: msgs, order: order, historyID: 10}
	ingester := newFakeIngester()
	usecase := newTestUsecase(connRepo, &fakeRunRepo{}, source, ingester)

	first, err := usecase.Sync(context.Background(), syncdomain.DefaultConnectionID, syncdomain.SyncOptions{})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := usecase.Sync(context.Background(), syncdomain.DefaultConnectionID, syncdomain.SyncOptions{ForceFullSync: true})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if first.MessagesInserted != 2 {
		t.Errorf("first run inserted %d, want 2", first.MessagesInserted)
	}
	if !second.OK || second.MessagesInserted != 0 || second.MessagesFetched != 2 {
		t.Errorf("rerun must fetch but insert nothing: %+v", second)
	}
}

func TestSyncPartialIngestFailureStaysSuccessful(t *testing.T) {
	msgs, order := messageSet("m1", "m2", "m3")
	connRepo := &fakeConnRepo{conn: validConnection()}
	runRepo := &fakeRunRepo{}
	source := &fakeSource{messages: msgs, order: order, historyID: 7}
	ingester := newFakeIngester()
	ingester.failOn["m2"] = errors.New("malformed payload")

	result, err := newTestUsecase(connRepo, runRepo, source, ingester).
		Sync(context.Background(), syncdomain.DefaultConnectionID, syncdomain.SyncOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.OK {
		t.Fatalf("one bad message must not fail the run: %+v", result)
	}
	if result.MessagesFetched != 3 || result.MessagesInserted != 2 {
		t.Errorf("fetched=%d inserted=%d, want 3/2", result.MessagesFetched, result.MessagesInserted)
	}
	if runRepo.finalStatus != syncdomain.SyncStatusSuccess {
		t.Errorf("run finalized as %s, want success", runRepo.finalStatus)
	}
}

func TestSyncFetchFailureSkipsMessage(t *testing.T) {
	msgs, order := messageSet("m1", "m2")
	connRepo := &fakeConnRepo{conn: validConnection()}
	source := &fakeSource{messages: msgs, order: order, historyID: 7, fetchErr: map[string]error{"m1": errors.New("boom")}}

	result, err := newTestUsecase(connRepo, &fakeRunRepo{}, source, newFakeIngester()).
		Sync(context.Background(), syncdomain.DefaultConnectionID, syncdomain.SyncOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.OK || result.MessagesFetched != 1 || result.MessagesInserted != 1 {
		t.Errorf("expected the remaining message to be ingested: %+v", result)
	}
}

func TestSyncAlreadyRunningFailsFast(t *testing.T) {
	connRepo := &fakeConnRepo{conn: validConnection()}
	source := &fakeSource{}

	_, err := newTestUsecase(connRepo, &fakeRunRepo{claimErr: syncdomain.ErrAlreadyRunning}, source, newFakeIngester()).
		Sync(context.Background(), syncdomain.DefaultConnectionID, syncdomain.SyncOptions{})
	if !errors.Is(err, syncdomain.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	if source.refreshCalls != 0 || source.listCalls != 0 || source.historyCalls != 0 {
		t.Errorf("losing caller must not touch the provider: %+v", source)
	}
}

func TestSyncUnknownConnection(t *testing.T) {
	_, err := newTestUsecase(&fakeConnRepo{}, &fakeRunRepo{}, &fakeSource{}, newFakeIngester()).
		Sync(context.Background(), "nope", syncdomain.SyncOptions{})
	if !errors.Is(err, syncdomain.ErrConnectionNotFound) {
		t.Fatalf("expected ErrConnectionNotFound, got %v", err)
	}
}

func TestSyncExpiredTokenRefreshedOnce(t *testing.T) {
	msgs, order := messageSet("m1")
	conn := validConnection()
	expired := time.Now().Add(-time.Minute)
	conn.ExpiresAt = &expired
	connRepo := &fakeConnRepo{conn: conn}
	source := &fakeSource{messages: msgs, order: order, historyID: 3}

	result, err := newTestUsecase(connRepo, &fakeRunRepo{}, source, newFakeIngester()).
		Sync(context.Background(), syncdomain.DefaultConnectionID, syncdomain.SyncOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.OK {
		t.Fatalf("run should succeed after refresh: %+v", result)
	}
	if source.refreshCalls != 1 {
		t.Errorf("expected exactly one refresh, got %d", source.refreshCalls)
	}
	if connRepo.updateTokenCalls != 1 || connRepo.savedAccess != "fresh-token" {
		t.Errorf("refreshed token not persisted exactly once: calls=%d access=%q",
			connRepo.updateTokenCalls, connRepo.savedAccess)
	}
	if connRepo.savedRefresh != "refresh" {
		t.Errorf("stored refresh token must be preserved, got %q", connRepo.savedRefresh)
	}
}

func TestSyncTokenRefreshFailureFinalizesError(t *testing.T) {
	conn := validConnection()
	expired := time.Now().Add(-time.Minute)
	conn.ExpiresAt = &expired
	connRepo := &fakeConnRepo{conn: conn}
	runRepo := &fakeRunRepo{}
	source := &fakeSource{refreshErr: syncdomain.ErrTokenRefresh}

	result, err := newTestUsecase(connRepo, runRepo, source, newFakeIngester()).
		Sync(context.Background(), syncdomain.DefaultConnectionID, syncdomain.SyncOptions{})
	if err != nil {
		t.Fatalf("claimed run must not return an error: %v", err)
	}

	if result.OK || result.Error == "" {
		t.Fatalf("expected failed result, got %+v", result)
	}
	if runRepo.finalStatus != syncdomain.SyncStatusError || runRepo.finalErrMsg == nil {
		t.Errorf("run not finalized as error: %+v", runRepo)
	}
	if connRepo.stateStatus != syncdomain.SyncStatusError {
		t.Errorf("connection status = %s, want error", connRepo.stateStatus)
	}
}

func TestSyncMissingLabelSucceedsEmpty(t *testing.T) {
	connRepo := &fakeConnRepo{conn: validConnection()}
	runRepo := &fakeRunRepo{}
	source := &fakeSource{labelErr: syncdomain.ErrLabelNotFound}

	result, err := newTestUsecase(connRepo, runRepo, source, newFakeIngester()).
		Sync(context.Background(), syncdomain.DefaultConnectionID, syncdomain.SyncOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.OK || result.MessagesFetched != 0 || result.MessagesInserted != 0 {
		t.Errorf("missing label should be an empty success: %+v", result)
	}
	if runRepo.finalStatus != syncdomain.SyncStatusSuccess {
		t.Errorf("run finalized as %s, want success", runRepo.finalStatus)
	}
}

func TestSyncCallerCancellationStillFinalizesRun(t *testing.T) {
	msgs, order := messageSet("m1", "m2")
	connRepo := &fakeConnRepo{conn: validConnection()}
	runRepo := &fakeRunRepo{}
	source := &fakeSource{messages: msgs, order: order, historyID: 9}
	ingester := newFakeIngester()

	// The caller's deadline fires after the first fetch; the fakes reject
	// writes on a dead context the way gorm would.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	source.onFetch = cancel

	result, err := newTestUsecase(connRepo, runRepo, source, ingester).
		Sync(ctx, syncdomain.DefaultConnectionID, syncdomain.SyncOptions{})
	if err != nil {
		t.Fatalf("claimed run must not return an error: %v", err)
	}

	if result.OK {
		t.Fatalf("cancelled run must not report success: %+v", result)
	}
	if runRepo.finalized != 1 || runRepo.finalStatus != syncdomain.SyncStatusError {
		t.Errorf("run must be finalized as error despite the dead caller context: %+v", runRepo)
	}
	if connRepo.stateStatus != syncdomain.SyncStatusError {
		t.Errorf("connection status = %s, want error", connRepo.stateStatus)
	}
}

func TestSyncCappedListingKeepsCursor(t *testing.T) {
	msgs, order := messageSet("m1", "m2")
	connRepo := &fakeConnRepo{conn: validConnection()}
	runRepo := &fakeRunRepo{}
	source := &fakeSource{messages: msgs, order: order, historyID: 77}

	usecase := NewSyncUsecase(connRepo, runRepo, source, newFakeIngester(), SyncConfig{
		Label:          "ATS/Applications",
		PageSize:       1,
		MaxTotal:       2,
		RunTimeout:     time.Minute,
		StaleThreshold: 3 * time.Minute,
	})

	result, err := usecase.Sync(context.Background(), syncdomain.DefaultConnectionID, syncdomain.SyncOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.OK || result.MessagesInserted != 2 {
		t.Fatalf("capped run should still ingest what it listed: %+v", result)
	}
	if connRepo.stateCursor != 0 {
		t.Errorf("cursor advanced to %d past unlisted messages, want 0", connRepo.stateCursor)
	}
	if runRepo.finalStatus != syncdomain.SyncStatusSuccess {
		t.Errorf("run finalized as %s, want success", runRepo.finalStatus)
	}
}

func TestTokenManagerValidTokenPassesThrough(t *testing.T) {
	connRepo := &fakeConnRepo{}
	source := &fakeSource{}
	conn := validConnection()

	token, err := NewTokenManager(source, connRepo).EnsureValidToken(context.Background(), conn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "token" || source.refreshCalls != 0 || connRepo.updateTokenCalls != 0 {
		t.Errorf("valid token must be returned without refresh: token=%q refreshes=%d writes=%d",
			token, source.refreshCalls, connRepo.updateTokenCalls)
	}
}

func TestTokenManagerNearExpiryTriggersRefresh(t *testing.T) {
	connRepo := &fakeConnRepo{}
	source := &fakeSource{}
	conn := validConnection()
	soon := time.Now().Add(30 * time.Second)
	conn.ExpiresAt = &soon

	token, err := NewTokenManager(source, connRepo).EnsureValidToken(context.Background(), conn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "fresh-token" || source.refreshCalls != 1 {
		t.Errorf("token expiring inside the margin must be refreshed: token=%q refreshes=%d", token, source.refreshCalls)
	}
	if conn.AccessToken != "fresh-token" {
		t.Errorf("in-memory connection not updated: %q", conn.AccessToken)
	}
}

func TestTokenManagerMissingRefreshToken(t *testing.T) {
	conn := validConnection()
	conn.AccessToken = ""
	conn.RefreshToken = ""

	_, err := NewTokenManager(&fakeSource{}, &fakeConnRepo{}).EnsureValidToken(context.Background(), conn)
	if !errors.Is(err, syncdomain.ErrTokenRefresh) {
		t.Fatalf("expected ErrTokenRefresh, got %v", err)
	}
}

type fakeNotifier struct {
	calls int
	ids   []string
	err   error
}

func (f *fakeNotifier) NotifyNewApplicants(ctx context.Context, applicantIDs []string) (*syncdomain.NotificationSummary, error) {
	f.calls++
	f.ids = applicantIDs
	if f.err != nil {
		return nil, f.err
	}
	return &syncdomain.NotificationSummary{TotalSent: len(applicantIDs), TotalSuccess: len(applicantIDs)}, nil
}

func TestCoordinatorNotifiesOnNewApplicants(t *testing.T) {
	msgs, order := messageSet("m1", "m2")
	connRepo := &fakeConnRepo{conn: validConnection()}
	source := &fakeSource{messages: msgs, order: order, historyID: 5}
	notifier := &fakeNotifier{}
	coordinator := NewCoordinator(newTestUsecase(connRepo, &fakeRunRepo{}, source, newFakeIngester()), notifier)

	result, summary, err := coordinator.RunSync(context.Background(), syncdomain.DefaultConnectionID, syncdomain.SyncOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if notifier.calls != 1 || len(notifier.ids) != 2 {
		t.Errorf("expected one dispatch with 2 applicants, got calls=%d ids=%v", notifier.calls, notifier.ids)
	}
	if summary == nil || summary.TotalSent != 2 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if result.MessagesInserted != 2 {
		t.Errorf("inserted=%d, want 2", result.MessagesInserted)
	}
}

func TestCoordinatorSkipsNotifyWhenNothingInserted(t *testing.T) {
	connRepo := &fakeConnRepo{conn: validConnection()}
	source := &fakeSource{messages: map[string]*syncdomain.Message{}, historyID: 5}
	notifier := &fakeNotifier{}
	coordinator := NewCoordinator(newTestUsecase(connRepo, &fakeRunRepo{}, source, newFakeIngester()), notifier)

	_, summary, err := coordinator.RunSync(context.Background(), syncdomain.DefaultConnectionID, syncdomain.SyncOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if notifier.calls != 0 || summary != nil {
		t.Errorf("empty run must not notify: calls=%d summary=%+v", notifier.calls, summary)
	}
}

func TestCoordinatorNotifierFailureDoesNotFailRun(t *testing.T) {
	msgs, order := messageSet("m1")
	connRepo := &fakeConnRepo{conn: validConnection()}
	source := &fakeSource{messages: msgs, order: order, historyID: 5}
	notifier := &fakeNotifier{err: errors.New("fcm down")}
	coordinator := NewCoordinator(newTestUsecase(connRepo, &fakeRunRepo{}, source, newFakeIngester()), notifier)

	result, summary, err := coordinator.RunSync(context.Background(), syncdomain.DefaultConnectionID, syncdomain.SyncOptions{})
	if err != nil {
		t.Fatalf("notification failure must not surface: %v", err)
	}
	if !result.OK || summary != nil {
		t.Errorf("sync result must stay successful with nil summary: %+v %+v", result, summary)
	}
}

package delivery

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	syncdomain "ats-backend/internal/mailsync/domain"
	syncrepo "ats-backend/internal/mailsync/repository"
	"ats-backend/internal/mailsync/usecase"
	"ats-backend/pkg/config"
	"ats-backend/pkg/gmail"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

const oauthStateTTL = 10 * time.Minute

type SyncHandler struct {
	coordinator  *usecase.Coordinator
	connRepo     syncrepo.ConnectionRepository
	runRepo      syncrepo.SyncRunRepository
	gmailService *gmail.Service
	tokens       *usecase.TokenManager
	cfg          *config.Config
}

func NewSyncHandler(
	coordinator *usecase.Coordinator,
	connRepo syncrepo.ConnectionRepository,
	runRepo syncrepo.SyncRunRepository,
	gmailService *gmail.Service,
	cfg *config.Config,
) *SyncHandler {
	return &SyncHandler{
		coordinator:  coordinator,
		connRepo:     connRepo,
		runRepo:      runRepo,
		gmailService: gmailService,
		tokens:       usecase.NewTokenManager(gmailService, connRepo),
		cfg:          cfg,
	}
}

// CronAuthMiddleware authenticates the external scheduler with a shared
// bearer secret. An empty configured secret rejects everything.
func CronAuthMiddleware(cronSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if cronSecret == "" || authHeader != "Bearer "+cronSecret {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}

type triggerRequest struct {
	ForceFullSync bool   `json:"force_full_sync"`
	Label         string `json:"label"`
}

// TriggerCronSync runs one sync for the scheduled caller.
func (h *SyncHandler) TriggerCronSync(c *gin.Context) {
	h.runSync(c, syncdomain.SyncOptions{})
}

// TriggerManualSync runs one sync on demand, optionally forced full.
func (h *SyncHandler) TriggerManualSync(c *gin.Context) {
	var req triggerRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	h.runSync(c, syncdomain.SyncOptions{ForceFullSync: req.ForceFullSync, Label: req.Label})
}

func (h *SyncHandler) runSync(c *gin.Context, opts syncdomain.SyncOptions) {
	result, summary, err := h.coordinator.RunSync(c.Request.Context(), syncdomain.DefaultConnectionID, opts)
	if err != nil {
		switch {
		case errors.Is(err, syncdomain.ErrAlreadyRunning):
			c.JSON(http.StatusConflict, gin.H{"error": "sync already running"})
		case errors.Is(err, syncdomain.ErrConnectionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "no mailbox connected"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	response := gin.H{"result": result}
	if summary != nil {
		response["notifications"] = summary
	}

	status := http.StatusOK
	if !result.OK {
		status = http.StatusBadGateway
	}
	c.JSON(status, response)
}

// GetStatus returns the connection's sync state. Token fields never leave
// the struct thanks to their json tags.
func (h *SyncHandler) GetStatus(c *gin.Context) {
	conn, err := h.connRepo.GetByID(c.Request.Context(), syncdomain.DefaultConnectionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if conn == nil {
		c.JSON(http.StatusOK, gin.H{"connected": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true, "connection": conn})
}

// ListRuns returns the most recent sync runs, newest first.
func (h *SyncHandler) ListRuns(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	runs, err := h.runRepo.ListByConnection(c.Request.Context(), syncdomain.DefaultConnectionID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// StartOAuth redirects the admin to Google's consent screen. The state is a
// short-lived signed token so the callback can reject forged requests.
func (h *SyncHandler) StartOAuth(c *gin.Context) {
	state, err := h.signState()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create state"})
		return
	}

	oauthCfg := h.gmailService.OAuthConfig(h.cfg.GoogleRedirectURI)
	url := oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	c.JSON(http.StatusOK, gin.H{"auth_url": url})
}

// OAuthCallback exchanges the authorization code and stores the mailbox
// connection. Google only returns a refresh token on the first consent, so
// the upsert keeps any previously stored one.
func (h *SyncHandler) OAuthCallback(c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "consent denied: " + errParam})
		return
	}

	if err := h.verifyState(c.Query("state")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid state"})
		return
	}

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing authorization code"})
		return
	}

	oauthCfg := h.gmailService.OAuthConfig(h.cfg.GoogleRedirectURI)
	token, err := oauthCfg.Exchange(c.Request.Context(), code)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "code exchange failed"})
		return
	}

	conn := connectionFromToken(token)
	if email, err := h.gmailService.ProfileEmail(c.Request.Context(), token.AccessToken); err == nil {
		conn.Email = email
	} else {
		log.Printf("[OAuth] Could not read mailbox address: %v", err)
	}

	if err := h.connRepo.Upsert(c.Request.Context(), conn); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store connection"})
		return
	}

	log.Printf("[OAuth] Mailbox connection %s stored", conn.ID)
	c.JSON(http.StatusOK, gin.H{"message": "mailbox connected"})
}

// RegisterWatch subscribes the mailbox to push notifications on the
// configured Pub/Sub topic, scoped to the sync label when it exists.
func (h *SyncHandler) RegisterWatch(c *gin.Context) {
	ctx := c.Request.Context()

	conn, err := h.connRepo.GetByID(ctx, syncdomain.DefaultConnectionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if conn == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no mailbox connected"})
		return
	}

	accessToken, err := h.tokens.EnsureValidToken(ctx, conn)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	labelID, err := h.gmailService.ResolveLabelID(ctx, accessToken, h.cfg.SyncLabel)
	if err != nil && !errors.Is(err, syncdomain.ErrLabelNotFound) {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	topic := "projects/" + h.cfg.GoogleProjectID + "/topics/" + h.cfg.GooglePubSubTopic
	historyID, err := h.gmailService.Watch(ctx, accessToken, topic, labelID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "watch registered", "history_id": historyID})
}

// StopWatch cancels the push notification subscription.
func (h *SyncHandler) StopWatch(c *gin.Context) {
	ctx := c.Request.Context()

	conn, err := h.connRepo.GetByID(ctx, syncdomain.DefaultConnectionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if conn == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no mailbox connected"})
		return
	}

	accessToken, err := h.tokens.EnsureValidToken(ctx, conn)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	if err := h.gmailService.StopWatch(ctx, accessToken); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "watch stopped"})
}

// connectionFromToken maps an exchanged OAuth token onto the stored
// connection, including the granted scope the token response carries.
func connectionFromToken(token *oauth2.Token) *syncdomain.Connection {
	conn := &syncdomain.Connection{
		ID:           syncdomain.DefaultConnectionID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		ExpiresAt:    &token.Expiry,
	}
	if scope, ok := token.Extra("scope").(string); ok {
		conn.Scope = scope
	}
	return conn
}

func (h *SyncHandler) signState() (string, error) {
	claims := jwt.MapClaims{
		"purpose": "gmail_oauth",
		"exp":     time.Now().Add(oauthStateTTL).Unix(),
		"iat":     time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.cfg.JWTSecret))
}

func (h *SyncHandler) verifyState(state string) error {
	if strings.TrimSpace(state) == "" {
		return errors.New("empty state")
	}

	token, err := jwt.Parse(state, func(token *jwt.Token) (interface{}, error) {
		return []byte(h.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return errors.New("invalid state token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["purpose"] != "gmail_oauth" {
		return errors.New("unexpected state claims")
	}
	return nil
}

package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	syncdomain "ats-backend/internal/mailsync/domain"
	syncrepo "ats-backend/internal/mailsync/repository"
)

// expiryMargin is how long before actual expiry a token is treated as
// expired, covering clock skew and in-flight request time.
const expiryMargin = 60 * time.Second

// TokenRefresher is the single provider call the token manager depends on.
type TokenRefresher interface {
	RefreshAccessToken(ctx context.Context, refreshToken string) (*syncdomain.TokenRefresh, error)
}

// TokenManager hands out a valid access token for a connection, refreshing
// and persisting it when the stored one is expired or near expiry. At most
// one refresh and one persisted write per call.
type TokenManager struct {
	refresher TokenRefresher
	connRepo  syncrepo.ConnectionRepository
	now       func() time.Time
}

func NewTokenManager(refresher TokenRefresher, connRepo syncrepo.ConnectionRepository) *TokenManager {
	return &TokenManager{refresher: refresher, connRepo: connRepo, now: time.Now}
}

// EnsureValidToken returns an access token usable for at least expiryMargin.
// On refresh it updates both the store and the in-memory connection.
func (t *TokenManager) EnsureValidToken(ctx context.Context, conn *syncdomain.Connection) (string, error) {
	if conn.AccessToken != "" && conn.ExpiresAt != nil && conn.ExpiresAt.After(t.now().Add(expiryMargin)) {
		return conn.AccessToken, nil
	}

	if conn.RefreshToken == "" {
		return "", fmt.Errorf("%w: no refresh token stored for connection %s", syncdomain.ErrTokenRefresh, conn.ID)
	}

	log.Printf("[TokenManager] Refreshing access token for connection %s", conn.ID)
	refreshed, err := t.refresher.RefreshAccessToken(ctx, conn.RefreshToken)
	if err != nil {
		return "", err
	}

	if err := t.connRepo.UpdateTokens(ctx, conn.ID, refreshed.AccessToken, refreshed.RefreshToken, refreshed.ExpiresAt); err != nil {
		return "", fmt.Errorf("failed to persist refreshed token: %w", err)
	}

	conn.AccessToken = refreshed.AccessToken
	conn.RefreshToken = refreshed.RefreshToken
	conn.ExpiresAt = &refreshed.ExpiresAt
	return refreshed.AccessToken, nil
}

package repository

import (
	"context"
	"errors"
	"time"

	syncdomain "ats-backend/internal/mailsync/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// connectionRepository implements ConnectionRepository on gorm.
type connectionRepository struct {
	db *gorm.DB
}

func NewConnectionRepository(db *gorm.DB) ConnectionRepository {
	return &connectionRepository{db: db}
}

func (r *connectionRepository) GetByID(ctx context.Context, id string) (*syncdomain.Connection, error) {
	var conn syncdomain.Connection
	err := r.db.WithContext(ctx).First(&conn, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conn, nil
}

func (r *connectionRepository) Upsert(ctx context.Context, conn *syncdomain.Connection) error {
	now := time.Now()
	conn.CreatedAt = now
	conn.UpdatedAt = now
	if conn.LastSyncStatus == "" {
		conn.LastSyncStatus = syncdomain.SyncStatusIdle
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"email":        conn.Email,
			"access_token": conn.AccessToken,
			// Keep the stored refresh token when the new grant omits one.
			"refresh_token": gorm.Expr("COALESCE(NULLIF(?, ''), gmail_connections.refresh_token)", conn.RefreshToken),
			"token_type":    conn.TokenType,
			"scope":         conn.Scope,
			"expires_at":    conn.ExpiresAt,
			"updated_at":    now,
		}),
	}).Create(conn).Error
}

func (r *connectionRepository) UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error {
	updates := map[string]interface{}{
		"access_token": accessToken,
		"expires_at":   expiresAt,
		"updated_at":   time.Now(),
	}
	if refreshToken != "" {
		updates["refresh_token"] = refreshToken
	}

	return r.db.WithContext(ctx).Model(&syncdomain.Connection{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *connectionRepository) UpdateSyncState(ctx context.Context, id, status string, syncErr *string, historyID uint64, insertedDelta int) error {
	now := time.Now()
	updates := map[string]interface{}{
		"last_sync_status": status,
		"last_sync_error":  syncErr,
		"updated_at":       now,
	}
	if status == syncdomain.SyncStatusSuccess {
		updates["last_sync_at"] = now
		if historyID > 0 {
			updates["last_history_id"] = historyID
		}
		if insertedDelta > 0 {
			updates["total_synced"] = gorm.Expr("total_synced + ?", insertedDelta)
		}
	}

	return r.db.WithContext(ctx).Model(&syncdomain.Connection{}).
		Where("id = ?", id).
		Updates(updates).Error
}

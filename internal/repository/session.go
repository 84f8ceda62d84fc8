package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/homiefindr/internal/logger"
	"github.com/homiefindr/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Upsert вставляет сессию или обновляет существующую по (user_id, device_id).
// Повторный вход с того же устройства перезаписывает старую сессию без duplicate key.
func (r *SessionRepository) Upsert(ctx context.Context, s *model.Session) error {
	defer logger.DeferLogDuration("session.Upsert", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (id, user_id, device_id, device_name, secret_hash, last_seen_at, created_at, revoked_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NULL)
		 ON CONFLICT (user_id, device_id) DO UPDATE SET
		   id = EXCLUDED.id,
		   device_name = EXCLUDED.device_name,
		   secret_hash = EXCLUDED.secret_hash,
		   last_seen_at = EXCLUDED.last_seen_at,
		   created_at = EXCLUDED.created_at,
		   revoked_at = NULL`,
		s.ID, s.UserID, s.DeviceID, s.DeviceName, s.SecretHash, s.LastSeenAt, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sessionRepo.Upsert: %w", err)
	}
	return nil
}

// GetByID возвращает сессию только если она не отозвана (revoked_at IS NULL).
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*model.Session, error) {
	defer logger.DeferLogDuration("session.GetByID", time.Now())()
	s := &model.Session{}
	row := r.pool.QueryRow(ctx,
		`SELECT id, user_id, device_id, device_name, secret_hash, last_seen_at, created_at, revoked_at
		 FROM sessions WHERE id = $1 AND revoked_at IS NULL`, id)
	err := row.Scan(&s.ID, &s.UserID, &s.DeviceID, &s.DeviceName, &s.SecretHash, &s.LastSeenAt, &s.CreatedAt, &s.RevokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("sessionRepo.GetByID: %w", err)
	}
	return s, nil
}

// ListByUserID — только активные сессии (revoked_at IS NULL).
func (r *SessionRepository) ListByUserID(ctx context.Context, userID string) ([]model.Session, error) {
	defer logger.DeferLogDuration("session.ListByUserID", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, device_id, device_name, last_seen_at, created_at, revoked_at
		 FROM sessions WHERE user_id = $1 AND revoked_at IS NULL ORDER BY last_seen_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("sessionRepo.ListByUserID: %w", err)
	}
	defer rows.Close()
	var list []model.Session
	for rows.Next() {
		var s model.Session
		if err := rows.Scan(&s.ID, &s.UserID, &s.DeviceID, &s.DeviceName, &s.LastSeenAt, &s.CreatedAt, &s.RevokedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func (r *SessionRepository) UpdateLastSeen(ctx context.Context, sessionID string, t time.Time) error {
	defer logger.DeferLogDuration("session.UpdateLastSeen", time.Now())()
	_, err := r.pool.Exec(ctx, `UPDATE sessions SET last_seen_at = $1 WHERE id = $2 AND revoked_at IS NULL`, t, sessionID)
	return err
}

// RevokeByID помечает сессию отозванной. Секрет в Redis чистит вызывающий код.
func (r *SessionRepository) RevokeByID(ctx context.Context, sessionID string) (bool, error) {
	defer logger.DeferLogDuration("session.RevokeByID", time.Now())()
	tag, err := r.pool.Exec(ctx, `UPDATE sessions SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`, sessionID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// RevokeByUserID отзывает все сессии пользователя. Возвращает id сессий для очистки Redis.
func (r *SessionRepository) RevokeByUserID(ctx context.Context, userID string) ([]string, error) {
	defer logger.DeferLogDuration("session.RevokeByUserID", time.Now())()
	rows, err := r.pool.Query(ctx, `SELECT id FROM sessions WHERE user_id = $1 AND revoked_at IS NULL`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	_, err = r.pool.Exec(ctx, `UPDATE sessions SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL`, userID)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// SetSessionSecret сохраняет session_secret в БД (режим -dev: сессии переживают перезапуск).
func (r *SessionRepository) SetSessionSecret(ctx context.Context, sessionID, secret string) error {
	defer logger.DeferLogDuration("session.SetSessionSecret", time.Now())()
	_, err := r.pool.Exec(ctx, `UPDATE sessions SET session_secret = $1 WHERE id = $2 AND revoked_at IS NULL`, secret, sessionID)
	return err
}

// GetSessionSecret возвращает session_secret (пусто, если колонка NULL или сессии нет).
func (r *SessionRepository) GetSessionSecret(ctx context.Context, sessionID string) (string, error) {
	defer logger.DeferLogDuration("session.GetSessionSecret", time.Now())()
	var secret *string
	err := r.pool.QueryRow(ctx, `SELECT session_secret FROM sessions WHERE id = $1 AND revoked_at IS NULL`, sessionID).Scan(&secret)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	if secret == nil {
		return "", nil
	}
	return *secret, nil
}

// ClearSessionSecret обнуляет session_secret при выходе/отзыве.
func (r *SessionRepository) ClearSessionSecret(ctx context.Context, sessionID string) error {
	defer logger.DeferLogDuration("session.ClearSessionSecret", time.Now())()
	_, err := r.pool.Exec(ctx, `UPDATE sessions SET session_secret = NULL WHERE id = $1`, sessionID)
	return err
}

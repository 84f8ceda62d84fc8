package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/homiefindr/internal/logger"
	"github.com/homiefindr/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrInvalidParticipant — пустой uid участника диалога.
var ErrInvalidParticipant = errors.New("conversation participant id is empty")

// ConversationID возвращает детерминированный id диалога 1-на-1:
// оба uid сортируются и склеиваются через "_". Порядок аргументов не важен,
// поэтому оба участника всегда получают один и тот же id.
func ConversationID(uid1, uid2 string) (string, error) {
	if strings.TrimSpace(uid1) == "" || strings.TrimSpace(uid2) == "" {
		return "", ErrInvalidParticipant
	}
	ids := []string{uid1, uid2}
	sort.Strings(ids)
	return ids[0] + "_" + ids[1], nil
}

type ConversationRepository struct {
	pool *pgxpool.Pool
}

func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{pool: pool}
}

// Upsert создаёт диалог или обновляет существующий (merge-семантика):
// участники объединяются как множество, непустой title затирает старый,
// пустой — сохраняет прежний. Повторные вызовы идемпотентны.
func (r *ConversationRepository) Upsert(ctx context.Context, c *model.Conversation) error {
	defer logger.DeferLogDuration("conversation.Upsert", time.Now())()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("conversationRepo.Upsert: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO conversations (id, last_msg, title, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET
		   updated_at = EXCLUDED.updated_at,
		   title = COALESCE(NULLIF(EXCLUDED.title, ''), conversations.title)`,
		c.ID, c.LastMsg, c.Title, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("conversationRepo.Upsert: %w", err)
	}
	for _, uid := range c.Members {
		_, err = tx.Exec(ctx,
			`INSERT INTO conversation_members (conversation_id, uid)
			 VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			c.ID, uid,
		)
		if err != nil {
			return fmt.Errorf("conversationRepo.Upsert member: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("conversationRepo.Upsert commit: %w", err)
	}
	return nil
}

func (r *ConversationRepository) GetByID(ctx context.Context, id string) (*model.Conversation, error) {
	defer logger.DeferLogDuration("conversation.GetByID", time.Now())()
	c := &model.Conversation{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, COALESCE(last_msg,''), COALESCE(title,''), updated_at
		 FROM conversations WHERE id = $1`, id,
	).Scan(&c.ID, &c.LastMsg, &c.Title, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("conversationRepo.GetByID: %w", err)
	}
	members, err := r.members(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Members = members
	return c, nil
}

// ListByMember возвращает диалоги пользователя, свежие первыми.
func (r *ConversationRepository) ListByMember(ctx context.Context, uid string) ([]model.Conversation, error) {
	defer logger.DeferLogDuration("conversation.ListByMember", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, COALESCE(c.last_msg,''), COALESCE(c.title,''), c.updated_at
		 FROM conversations c
		 JOIN conversation_members m ON m.conversation_id = c.id
		 WHERE m.uid = $1 ORDER BY c.updated_at DESC`, uid)
	if err != nil {
		return nil, fmt.Errorf("conversationRepo.ListByMember: %w", err)
	}
	defer rows.Close()
	var list []model.Conversation
	for rows.Next() {
		var c model.Conversation
		if err := rows.Scan(&c.ID, &c.LastMsg, &c.Title, &c.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range list {
		members, err := r.members(ctx, list[i].ID)
		if err != nil {
			return nil, err
		}
		list[i].Members = members
	}
	return list, nil
}

// IsMember проверяет участие пользователя в диалоге (для доступа к сообщениям).
func (r *ConversationRepository) IsMember(ctx context.Context, conversationID, uid string) (bool, error) {
	defer logger.DeferLogDuration("conversation.IsMember", time.Now())()
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM conversation_members WHERE conversation_id = $1 AND uid = $2`,
		conversationID, uid,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("conversationRepo.IsMember: %w", err)
	}
	return n > 0, nil
}

// TouchLastMsg обновляет превью последнего сообщения и updated_at.
func (r *ConversationRepository) TouchLastMsg(ctx context.Context, id, lastMsg string, at time.Time) error {
	defer logger.DeferLogDuration("conversation.TouchLastMsg", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE conversations SET last_msg = $1, updated_at = $2 WHERE id = $3`,
		lastMsg, at, id,
	)
	if err != nil {
		return fmt.Errorf("conversationRepo.TouchLastMsg: %w", err)
	}
	return nil
}

func (r *ConversationRepository) members(ctx context.Context, conversationID string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT uid FROM conversation_members WHERE conversation_id = $1 ORDER BY uid`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("conversationRepo.members: %w", err)
	}
	defer rows.Close()
	var members []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		members = append(members, uid)
	}
	return members, rows.Err()
}

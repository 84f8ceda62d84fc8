package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/homiefindr/internal/logger"
	"github.com/homiefindr/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

func (r *MessageRepository) Create(ctx context.Context, m *model.Message) error {
	defer logger.DeferLogDuration("message.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO messages (id, conversation_id, sender_id, text, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.ConversationID, m.SenderID, m.Text, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("messageRepo.Create: %w", err)
	}
	return nil
}

// ListByConversation возвращает сообщения в хронологическом порядке.
func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID string) ([]model.Message, error) {
	defer logger.DeferLogDuration("message.ListByConversation", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT id, conversation_id, sender_id, text, created_at
		 FROM messages WHERE conversation_id = $1 ORDER BY created_at ASC, id ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("messageRepo.ListByConversation: %w", err)
	}
	defer rows.Close()
	var list []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Text, &m.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"inchat/internal/domain"
	"inchat/pkg/logger"
)

type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) error
	ListByChat(ctx context.Context, chatID uuid.UUID, limit int) ([]*domain.Message, error)
}

type messageRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewMessageRepository(db *pgxpool.Pool, log logger.Logger) MessageRepository {
	return &messageRepository{db: db, log: log}
}

// Create сохраняет сообщение и поднимает чат в списке (updated_at).
// Временная метка назначается базой, обе записи - в одной транзакции.
func (r *messageRepository) Create(ctx context.Context, message *domain.Message) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.log.Error("Failed to begin transaction", "error", err)
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO messages (id, chat_id, sender_id, content, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING created_at
	`

	err = tx.QueryRow(ctx, query,
		message.ID, message.ChatID, message.SenderID, message.Content,
	).Scan(&message.CreatedAt)
	if err != nil {
		r.log.Error("Failed to create message", "error", err, "chat_id", message.ChatID)
		return fmt.Errorf("failed to create message: %w", err)
	}

	_, err = tx.Exec(ctx, `UPDATE chats SET updated_at = NOW() WHERE id = $1`, message.ChatID)
	if err != nil {
		r.log.Error("Failed to touch chat", "error", err, "chat_id", message.ChatID)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		r.log.Error("Failed to commit message", "error", err)
		return err
	}

	return nil
}

func (r *messageRepository) ListByChat(ctx context.Context, chatID uuid.UUID, limit int) ([]*domain.Message, error) {
	query := `
		SELECT m.id, m.chat_id, m.sender_id, m.content, m.created_at,
		       u.id, u.display_name
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.chat_id = $1
		ORDER BY m.created_at ASC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, chatID, limit)
	if err != nil {
		r.log.Error("Failed to list messages", "error", err, "chat_id", chatID)
		return nil, err
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		message := &domain.Message{Sender: &domain.UserRef{}}
		err := rows.Scan(
			&message.ID, &message.ChatID, &message.SenderID, &message.Content, &message.CreatedAt,
			&message.Sender.ID, &message.Sender.DisplayName,
		)
		if err != nil {
			r.log.Error("Failed to scan message", "error", err)
			return nil, err
		}
		messages = append(messages, message)
	}

	return messages, nil
}

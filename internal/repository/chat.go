package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"inchat/internal/domain"
	apperrors "inchat/pkg/errors"
	"inchat/pkg/logger"
)

type ChatRepository interface {
	CreateDirect(ctx context.Context, user1ID, user2ID uuid.UUID) (*domain.Chat, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Chat, error)
	GetDirectChatID(ctx context.Context, user1ID, user2ID uuid.UUID) (uuid.UUID, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.ChatSummary, error)
	IsParticipant(ctx context.Context, chatID, userID uuid.UUID) (bool, error)
}

type chatRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewChatRepository(db *pgxpool.Pool, log logger.Logger) ChatRepository {
	return &chatRepository{db: db, log: log}
}

// CreateDirect атомарно создает чат, пару в direct_chats и обе записи
// участников. Пара (user1ID, user2ID) должна быть нормализована вызывающим
// (user1ID < user2ID), уникальный индекс не даст создать дубликат.
func (r *chatRepository) CreateDirect(ctx context.Context, user1ID, user2ID uuid.UUID) (*domain.Chat, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.log.Error("Failed to begin transaction", "error", err)
		return nil, err
	}
	defer tx.Rollback(ctx)

	chat := &domain.Chat{
		ID:        uuid.New(),
		Type:      domain.ChatTypeDirect,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	query := `
		INSERT INTO chats (id, type, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`
	err = tx.QueryRow(ctx, query, chat.ID, chat.Type, chat.CreatedAt, chat.UpdatedAt).
		Scan(&chat.CreatedAt, &chat.UpdatedAt)
	if err != nil {
		r.log.Error("Failed to create chat", "error", err)
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO direct_chats (chat_id, user1_id, user2_id)
		VALUES ($1, $2, $3)
	`, chat.ID, user1ID, user2ID)
	if err != nil {
		r.log.Error("Failed to create direct chat pair", "error", err)
		return nil, fmt.Errorf("failed to create direct chat pair: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO chat_participants (chat_id, user_id, joined_at)
		VALUES ($1, $2, NOW()), ($1, $3, NOW())
	`, chat.ID, user1ID, user2ID)
	if err != nil {
		r.log.Error("Failed to create participants", "error", err)
		return nil, fmt.Errorf("failed to create participants: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		r.log.Error("Failed to commit chat creation", "error", err)
		return nil, err
	}

	return chat, nil
}

func (r *chatRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Chat, error) {
	query := `
		SELECT id, type, created_at, updated_at
		FROM chats
		WHERE id = $1
	`

	chat := &domain.Chat{}
	err := r.db.QueryRow(ctx, query, id).Scan(&chat.ID, &chat.Type, &chat.CreatedAt, &chat.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrChatNotFound
		}
		r.log.Error("Failed to get chat by ID", "error", err)
		return nil, err
	}

	return chat, nil
}

func (r *chatRepository) GetDirectChatID(ctx context.Context, user1ID, user2ID uuid.UUID) (uuid.UUID, error) {
	query := `
		SELECT chat_id
		FROM direct_chats
		WHERE user1_id = $1 AND user2_id = $2
	`

	var chatID uuid.UUID
	err := r.db.QueryRow(ctx, query, user1ID, user2ID).Scan(&chatID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, apperrors.ErrChatNotFound
		}
		r.log.Error("Failed to get direct chat", "error", err)
		return uuid.Nil, err
	}

	return chatID, nil
}

func (r *chatRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.ChatSummary, error) {
	// Собеседник и последнее сообщение подтягиваются одним запросом
	query := `
		SELECT c.id, c.type, c.updated_at,
		       ou.id, ou.display_name, ou.email,
		       m.id, m.chat_id, m.content, m.created_at,
		       s.id, s.display_name
		FROM chats c
		JOIN chat_participants cp ON cp.chat_id = c.id AND cp.user_id = $1
		JOIN chat_participants op ON op.chat_id = c.id AND op.user_id <> $1
		JOIN users ou ON ou.id = op.user_id
		LEFT JOIN LATERAL (
			SELECT id, chat_id, sender_id, content, created_at
			FROM messages
			WHERE chat_id = c.id
			ORDER BY created_at DESC
			LIMIT 1
		) m ON TRUE
		LEFT JOIN users s ON s.id = m.sender_id
		WHERE c.type = $2
		ORDER BY c.updated_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID, domain.ChatTypeDirect)
	if err != nil {
		r.log.Error("Failed to list chats", "error", err)
		return nil, err
	}
	defer rows.Close()

	var chats []*domain.ChatSummary
	for rows.Next() {
		summary := &domain.ChatSummary{OtherUser: &domain.UserInfo{}}

		var msgID, senderID *uuid.UUID
		var msgChatID *uuid.UUID
		var msgContent, senderName *string
		var msgCreatedAt *time.Time

		err := rows.Scan(
			&summary.ID, &summary.Type, &summary.UpdatedAt,
			&summary.OtherUser.ID, &summary.OtherUser.DisplayName, &summary.OtherUser.Email,
			&msgID, &msgChatID, &msgContent, &msgCreatedAt,
			&senderID, &senderName,
		)
		if err != nil {
			r.log.Error("Failed to scan chat summary", "error", err)
			return nil, err
		}

		if msgID != nil {
			summary.LastMessage = &domain.Message{
				ID:        *msgID,
				ChatID:    *msgChatID,
				Content:   *msgContent,
				CreatedAt: *msgCreatedAt,
			}
			if senderID != nil {
				summary.LastMessage.SenderID = *senderID
				summary.LastMessage.Sender = &domain.UserRef{ID: *senderID, DisplayName: *senderName}
			}
		}

		chats = append(chats, summary)
	}

	return chats, nil
}

// IsParticipant - точечная проверка членства по ключу (chat_id, user_id).
// Отсутствие записи не является ошибкой: вызывающий сам решает, 403 это или 404.
func (r *chatRepository) IsParticipant(ctx context.Context, chatID, userID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM chat_participants
			WHERE chat_id = $1 AND user_id = $2
		)
	`

	var exists bool
	err := r.db.QueryRow(ctx, query, chatID, userID).Scan(&exists)
	if err != nil {
		r.log.Error("Failed to check participant", "error", err, "chat_id", chatID, "user_id", userID)
		return false, err
	}

	return exists, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"inchat/internal/domain"
	"inchat/internal/repository"
	apperrors "inchat/pkg/errors"
	"inchat/pkg/logger"
)

type ChatService interface {
	CreateDirect(ctx context.Context, userID, otherUserID uuid.UUID) (uuid.UUID, bool, error)
	List(ctx context.Context, userID uuid.UUID) ([]*domain.ChatSummary, error)
	IsParticipant(ctx context.Context, chatID, userID uuid.UUID) (bool, error)
	GetMessages(ctx context.Context, chatID, userID uuid.UUID, limit int) ([]*domain.Message, error)
	SendMessage(ctx context.Context, chatID uuid.UUID, sender *domain.UserRef, content string) (*domain.Message, error)
}

type chatService struct {
	chatRepo    repository.ChatRepository
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	auditRepo   repository.AuditRepository
	log         logger.Logger
}

func NewChatService(chatRepo repository.ChatRepository, messageRepo repository.MessageRepository, userRepo repository.UserRepository, auditRepo repository.AuditRepository, log logger.Logger) ChatService {
	return &chatService{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		auditRepo:   auditRepo,
		log:         log,
	}
}

// CreateDirect создает двухсторонний чат. Пара нормализуется (меньший id
// первым), поэтому повторный вызов для тех же пользователей вернет
// существующий чат. Возвращает (chatID, создан ли новый, ошибка).
func (s *chatService) CreateDirect(ctx context.Context, userID, otherUserID uuid.UUID) (uuid.UUID, bool, error) {
	if otherUserID == userID || otherUserID == uuid.Nil {
		return uuid.Nil, false, fmt.Errorf("%w: invalid other user", apperrors.ErrBadRequest)
	}

	if _, err := s.userRepo.GetByID(ctx, otherUserID); err != nil {
		return uuid.Nil, false, apperrors.ErrUserNotFound
	}

	user1ID, user2ID := userID, otherUserID
	if user2ID.String() < user1ID.String() {
		user1ID, user2ID = user2ID, user1ID
	}

	existingID, err := s.chatRepo.GetDirectChatID(ctx, user1ID, user2ID)
	if err == nil {
		return existingID, false, nil
	}
	if !errors.Is(err, apperrors.ErrChatNotFound) {
		return uuid.Nil, false, err
	}

	chat, err := s.chatRepo.CreateDirect(ctx, user1ID, user2ID)
	if err != nil {
		return uuid.Nil, false, err
	}

	s.audit(ctx, userID, domain.EventTypeChatCreated, map[string]interface{}{
		"chat_id":       chat.ID.String(),
		"other_user_id": otherUserID.String(),
	})

	return chat.ID, true, nil
}

func (s *chatService) List(ctx context.Context, userID uuid.UUID) ([]*domain.ChatSummary, error) {
	return s.chatRepo.ListByUser(ctx, userID)
}

// IsParticipant всегда ходит в хранилище: членство может быть отозвано
// параллельно с открытым соединением, результат не кешируется.
func (s *chatService) IsParticipant(ctx context.Context, chatID, userID uuid.UUID) (bool, error) {
	return s.chatRepo.IsParticipant(ctx, chatID, userID)
}

// GetMessages - исторический путь чтения. Не-участнику чат не показываем
// вообще (not found, а не forbidden), чтобы не раскрывать его существование.
func (s *chatService) GetMessages(ctx context.Context, chatID, userID uuid.UUID, limit int) ([]*domain.Message, error) {
	ok, err := s.chatRepo.IsParticipant(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrChatNotFound
	}

	if limit <= 0 || limit > 100 {
		limit = 100
	}

	return s.messageRepo.ListByChat(ctx, chatID, limit)
}

// SendMessage - конвейер отправки: валидация, свежая проверка членства,
// запись в БД. Рассылку по подключениям выполняет вызывающий после
// успешного сохранения.
func (s *chatService) SendMessage(ctx context.Context, chatID uuid.UUID, sender *domain.UserRef, content string) (*domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: empty content", apperrors.ErrBadRequest)
	}
	if len([]rune(content)) > domain.MaxMessageLength {
		return nil, fmt.Errorf("%w: content too long", apperrors.ErrBadRequest)
	}

	// Членство перепроверяется на каждую отправку, даже после успешного
	// join: оно могло быть отозвано за время жизни соединения.
	ok, err := s.chatRepo.IsParticipant(ctx, chatID, sender.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrNotParticipant
	}

	message := &domain.Message{
		ID:       uuid.New(),
		ChatID:   chatID,
		SenderID: sender.ID,
		Sender:   &domain.UserRef{ID: sender.ID, DisplayName: sender.DisplayName},
		Content:  content,
	}

	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}

	return message, nil
}

func (s *chatService) audit(ctx context.Context, userID uuid.UUID, eventType string, payload map[string]interface{}) {
	if s.auditRepo == nil {
		return
	}
	entry := &domain.AuditLog{
		EventTime:   time.Now(),
		ActorUserID: &userID,
		EventType:   eventType,
		Payload:     payload,
	}
	if err := s.auditRepo.CreateLog(ctx, entry); err != nil {
		s.log.Warn("Failed to write audit log", "error", err, "event_type", eventType)
	}
}

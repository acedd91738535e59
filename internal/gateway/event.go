package gateway

import (
	"time"

	"github.com/google/uuid"

	"inchat/internal/domain"
)

// Типы кадров протокола. Входящие события декодируются один раз на границе
// транспорта в закрытый набор {chat:join, message:send}, дальше по коду
// ходят только типизированные структуры.
const (
	FrameChatJoin    = "chat:join"
	FrameMessageSend = "message:send"
	FrameAck         = "ack"
	FrameMessageNew  = "message:new"
)

// ClientFrame - кадр клиент -> сервер
type ClientFrame struct {
	Type    string `json:"type"`
	ChatID  string `json:"chatId,omitempty"`
	Content string `json:"content,omitempty"`
}

// AckFrame - булево подтверждение операции. Причина отказа клиенту
// намеренно не сообщается, чтобы нельзя было перебором выяснять
// существование чатов.
type AckFrame struct {
	Type   string `json:"type"`
	Event  string `json:"event"`
	ChatID string `json:"chatId"`
	OK     bool   `json:"ok"`
}

// MessageEvent - полезная нагрузка события message:new
type MessageEvent struct {
	ID        uuid.UUID      `json:"id"`
	ChatID    uuid.UUID      `json:"chatId"`
	Sender    domain.UserRef `json:"sender"`
	Content   string         `json:"content"`
	CreatedAt time.Time      `json:"createdAt"`
}

// MessageNewFrame - кадр сервер -> клиент с новым сообщением
type MessageNewFrame struct {
	Type    string        `json:"type"`
	Message *MessageEvent `json:"message"`
}

// NewMessageEvent строит событие рассылки из сохраненного сообщения
func NewMessageEvent(message *domain.Message) *MessageEvent {
	event := &MessageEvent{
		ID:        message.ID,
		ChatID:    message.ChatID,
		Content:   message.Content,
		CreatedAt: message.CreatedAt,
	}
	if message.Sender != nil {
		event.Sender = *message.Sender
	}
	return event
}

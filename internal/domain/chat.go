package domain

import (
	"time"

	"github.com/google/uuid"
)

type Chat struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

const (
	ChatTypeDirect = "DIRECT"
)

// ChatParticipant - запись об участии пользователя в чате.
// Ее наличие - единственный критерий авторизации для join/send.
type ChatParticipant struct {
	ChatID   uuid.UUID `json:"chatId"`
	UserID   uuid.UUID `json:"userId"`
	JoinedAt time.Time `json:"joinedAt"`
}

type Message struct {
	ID        uuid.UUID `json:"id"`
	ChatID    uuid.UUID `json:"chatId"`
	SenderID  uuid.UUID `json:"-"`
	Sender    *UserRef  `json:"sender,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChatSummary - элемент списка чатов пользователя
type ChatSummary struct {
	ID          uuid.UUID `json:"id"`
	Type        string    `json:"type"`
	OtherUser   *UserInfo `json:"otherUser"`
	LastMessage *Message  `json:"lastMessage"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// MaxMessageLength - максимальная длина сообщения после обрезки пробелов
const MaxMessageLength = 5000

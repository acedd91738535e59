package domain

import (
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID          int64                  `json:"id"`
	EventTime   time.Time              `json:"event_time"`
	ActorUserID *uuid.UUID             `json:"actor_user_id,omitempty"`
	EventType   string                 `json:"event_type"`
	Payload     map[string]interface{} `json:"payload"`
}

const (
	EventTypeUserSignedUp = "USER_SIGNED_UP"
	EventTypeUserLoggedIn = "USER_LOGGED_IN"
	EventTypeChatCreated  = "CHAT_CREATED"
)

package gateway

import (
	"context"

	"github.com/google/uuid"
)

// Backbone - магистраль рассылки. Две реализации: Hub для одиночного
// процесса и RedisBackbone с pub/sub мостом для нескольких шлюзов.
// Выбор делается один раз при старте, а не ветвлением по коду рассылки.
type Backbone interface {
	Subscribe(c *Client, chatID uuid.UUID)
	Unsubscribe(c *Client, chatID uuid.UUID)
	UnsubscribeAll(c *Client)
	Broadcast(ctx context.Context, chatID uuid.UUID, event *MessageEvent)
}

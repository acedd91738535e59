package gateway

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"inchat/pkg/logger"
)

// BridgeChannel - общий канал Redis, через который шлюзы обмениваются
// событиями комнат
const BridgeChannel = "inchat:events"

// envelope - конверт события на pub/sub канале. Origin нужен, чтобы
// процесс не доставлял своим клиентам событие, которое сам же опубликовал.
type envelope struct {
	Origin string        `json:"origin"`
	ChatID uuid.UUID     `json:"chatId"`
	Event  *MessageEvent `json:"event"`
}

// RedisBackbone оборачивает локальный Hub мостом через Redis pub/sub.
// Локальная доставка не зависит от состояния моста: ошибки публикации
// только логируются.
type RedisBackbone struct {
	hub    *Hub
	rdb    *redis.Client
	origin string
	log    logger.Logger
}

func NewRedisBackbone(hub *Hub, rdb *redis.Client, log logger.Logger) *RedisBackbone {
	return &RedisBackbone{
		hub:    hub,
		rdb:    rdb,
		origin: uuid.NewString(),
		log:    log,
	}
}

func (b *RedisBackbone) Subscribe(c *Client, chatID uuid.UUID) {
	b.hub.Subscribe(c, chatID)
}

func (b *RedisBackbone) Unsubscribe(c *Client, chatID uuid.UUID) {
	b.hub.Unsubscribe(c, chatID)
}

func (b *RedisBackbone) UnsubscribeAll(c *Client) {
	b.hub.UnsubscribeAll(c)
}

// Broadcast доставляет событие локальным подписчикам и публикует его
// для остальных шлюзов
func (b *RedisBackbone) Broadcast(ctx context.Context, chatID uuid.UUID, event *MessageEvent) {
	b.hub.Broadcast(ctx, chatID, event)

	data, err := json.Marshal(&envelope{Origin: b.origin, ChatID: chatID, Event: event})
	if err != nil {
		b.log.Error("Failed to marshal bridge envelope", "error", err)
		return
	}

	if err := b.rdb.Publish(ctx, BridgeChannel, data).Err(); err != nil {
		// Сообщение уже сохранено и доставлено локально, деградируем молча
		b.log.Warn("Bridge publish failed, remote delivery skipped", "error", err, "chat_id", chatID)
	}
}

// Run слушает общий канал и доигрывает чужие события локальным
// подписчикам. Блокируется до отмены контекста.
func (b *RedisBackbone) Run(ctx context.Context) {
	pubsub := b.rdb.Subscribe(ctx, BridgeChannel)
	defer pubsub.Close()

	b.log.Info("Fan-out bridge subscribed", "channel", BridgeChannel, "origin", b.origin)

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				b.log.Warn("Bridge subscription closed")
				return
			}
			b.replay([]byte(msg.Payload))

		case <-ctx.Done():
			return
		}
	}
}

// replay доставляет конверт локальным клиентам. Свои конверты
// отбрасываются, повторная публикация не делается никогда -
// иначе шлюзы зациклят друг друга.
func (b *RedisBackbone) replay(payload []byte) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		b.log.Warn("Undecodable bridge envelope ignored", "error", err)
		return
	}

	if env.Origin == b.origin || env.Event == nil {
		return
	}

	b.hub.Broadcast(context.Background(), env.ChatID, env.Event)
}

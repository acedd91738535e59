package gateway

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"inchat/pkg/logger"
)

// Hub - процесс-локальный индекс комната -> подключения. Весь доступ к
// индексу идет через методы под мьютексом, глобального состояния нет.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[uuid.UUID]map[*Client]bool
	byClient map[*Client]map[uuid.UUID]bool
	log      logger.Logger
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		rooms:    make(map[uuid.UUID]map[*Client]bool),
		byClient: make(map[*Client]map[uuid.UUID]bool),
		log:      log,
	}
}

func (h *Hub) Subscribe(c *Client, chatID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[chatID] == nil {
		h.rooms[chatID] = make(map[*Client]bool)
	}
	h.rooms[chatID][c] = true

	if h.byClient[c] == nil {
		h.byClient[c] = make(map[uuid.UUID]bool)
	}
	h.byClient[c][chatID] = true
}

func (h *Hub) Unsubscribe(c *Client, chatID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c, chatID)
}

// UnsubscribeAll убирает подключение из всех комнат; вызывается при
// разрыве соединения
func (h *Hub) UnsubscribeAll(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for chatID := range h.byClient[c] {
		h.removeLocked(c, chatID)
	}
	delete(h.byClient, c)
}

func (h *Hub) removeLocked(c *Client, chatID uuid.UUID) {
	if clients, ok := h.rooms[chatID]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.rooms, chatID)
		}
	}
	if chats, ok := h.byClient[c]; ok {
		delete(chats, chatID)
	}
}

// Broadcast доставляет событие всем локальным подписчикам комнаты.
// Доставка неблокирующая: клиент с переполненной очередью отключается,
// мертвое соединение не должно тормозить остальных.
func (h *Hub) Broadcast(ctx context.Context, chatID uuid.UUID, event *MessageEvent) {
	data, err := json.Marshal(&MessageNewFrame{Type: FrameMessageNew, Message: event})
	if err != nil {
		h.log.Error("Failed to marshal message event", "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[chatID]))
	for c := range h.rooms[chatID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	var dead []*Client
	for _, c := range targets {
		if !c.trySend(data) {
			dead = append(dead, c)
		}
	}

	// Переполненная очередь трактуется как неявная отписка
	for _, c := range dead {
		h.log.Warn("Dropping slow client", "user_id", c.user.ID)
		h.UnsubscribeAll(c)
		c.Close()
	}
}

// RoomSize - количество локальных подключений в комнате
func (h *Hub) RoomSize(chatID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[chatID])
}

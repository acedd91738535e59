package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"inchat/internal/domain"
	"inchat/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	// Лимит чтения должен вмещать максимальное сообщение в худшей
	// кодировке: 5000 рун по 4 байта UTF-8, либо \u-экранирование
	// суррогатных пар в JSON (12 байт на руну), плюс сам кадр
	maxMessageSize = 65536

	sendBufferSize = 256
)

// ChatService - часть сервисного слоя, нужная шлюзу: проверка членства
// и конвейер отправки
type ChatService interface {
	IsParticipant(ctx context.Context, chatID, userID uuid.UUID) (bool, error)
	SendMessage(ctx context.Context, chatID uuid.UUID, sender *domain.UserRef, content string) (*domain.Message, error)
}

// Client - одно живое подключение. Личность пользователя привязывается
// на рукопожатии и не меняется до разрыва соединения.
type Client struct {
	conn     *websocket.Conn
	user     *domain.UserRef
	chats    ChatService
	backbone Backbone
	log      logger.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(conn *websocket.Conn, user *domain.UserRef, chats ChatService, backbone Backbone, log logger.Logger) *Client {
	return &Client{
		conn:     conn,
		user:     user,
		chats:    chats,
		backbone: backbone,
		log:      log,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
	}
}

// Run запускает обе помпы и блокируется до разрыва соединения.
// После выхода подключение снято со всех комнат, очередь брошена.
func (c *Client) Run() {
	go c.writePump()
	c.readPump()

	c.backbone.UnsubscribeAll(c)
	c.Close()
}

// Close помечает подключение закрытым; безопасно вызывать повторно
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// trySend ставит кадр в очередь без блокировки. false означает, что
// клиент закрыт или не успевает читать.
func (c *Client) trySend(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

func (c *Client) readPump() {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Warn("Unexpected websocket close", "error", err, "user_id", c.user.ID)
			}
			return
		}

		var frame ClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.log.Debug("Undecodable frame ignored", "error", err, "user_id", c.user.ID)
			continue
		}

		// Кадры одного подключения обрабатываются последовательно,
		// поэтому порядок отправок одного отправителя сохраняется
		switch frame.Type {
		case FrameChatJoin:
			c.handleJoin(&frame)
		case FrameMessageSend:
			c.handleSend(&frame)
		default:
			c.log.Debug("Unknown frame type ignored", "type", frame.Type, "user_id", c.user.ID)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// handleJoin регистрирует подключение в комнате после свежей проверки
// членства. Любой отказ сворачивается в ack false.
func (c *Client) handleJoin(frame *ClientFrame) {
	chatID, err := uuid.Parse(frame.ChatID)
	if err != nil {
		c.ack(FrameChatJoin, frame.ChatID, false)
		return
	}

	ok, err := c.chats.IsParticipant(context.Background(), chatID, c.user.ID)
	if err != nil {
		c.log.Error("Membership check failed", "error", err, "chat_id", chatID, "user_id", c.user.ID)
		c.ack(FrameChatJoin, frame.ChatID, false)
		return
	}
	if !ok {
		c.ack(FrameChatJoin, frame.ChatID, false)
		return
	}

	c.backbone.Subscribe(c, chatID)
	c.ack(FrameChatJoin, frame.ChatID, true)
}

// handleSend - конвейер отправки. Ack true уходит только после записи в
// хранилище; неудача рассылки подтверждение не отменяет.
func (c *Client) handleSend(frame *ClientFrame) {
	chatID, err := uuid.Parse(frame.ChatID)
	if err != nil {
		c.ack(FrameMessageSend, frame.ChatID, false)
		return
	}

	ctx := context.Background()
	message, err := c.chats.SendMessage(ctx, chatID, c.user, frame.Content)
	if err != nil {
		c.ack(FrameMessageSend, frame.ChatID, false)
		return
	}

	c.ack(FrameMessageSend, frame.ChatID, true)
	c.backbone.Broadcast(ctx, chatID, NewMessageEvent(message))
}

func (c *Client) ack(event, chatID string, ok bool) {
	data, err := json.Marshal(&AckFrame{Type: FrameAck, Event: event, ChatID: chatID, OK: ok})
	if err != nil {
		return
	}
	c.trySend(data)
}

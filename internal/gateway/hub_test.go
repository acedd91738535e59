package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"inchat/internal/domain"
	"inchat/pkg/logger"
)

// Тестовый клиент без живого соединения: помпы не запускаются, кадры
// читаются прямо из очереди
func newTestClient(bufSize int) *Client {
	return &Client{
		user: &domain.UserRef{ID: uuid.New(), DisplayName: "tester"},
		log:  logger.New("error"),
		send: make(chan []byte, bufSize),
		done: make(chan struct{}),
	}
}

func newTestEvent(chatID uuid.UUID, content string) *MessageEvent {
	return &MessageEvent{
		ID:        uuid.New(),
		ChatID:    chatID,
		Sender:    domain.UserRef{ID: uuid.New(), DisplayName: "sender"},
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

func receiveFrame(t *testing.T, c *Client) *MessageNewFrame {
	t.Helper()
	select {
	case data := <-c.send:
		var frame MessageNewFrame
		require.NoError(t, json.Unmarshal(data, &frame))
		return &frame
	default:
		t.Fatal("expected a frame in the send queue")
		return nil
	}
}

func TestHub_BroadcastIsRoomScoped(t *testing.T) {
	req := require.New(t)
	hub := NewHub(logger.New("error"))

	roomA := uuid.New()
	roomB := uuid.New()

	c1 := newTestClient(8)
	c2 := newTestClient(8)
	c3 := newTestClient(8)

	hub.Subscribe(c1, roomA)
	hub.Subscribe(c2, roomA)
	hub.Subscribe(c3, roomB)

	event := newTestEvent(roomA, "hello")
	hub.Broadcast(context.Background(), roomA, event)

	for _, c := range []*Client{c1, c2} {
		frame := receiveFrame(t, c)
		req.Equal(FrameMessageNew, frame.Type)
		req.Equal(event.ID, frame.Message.ID)
		req.Equal(roomA, frame.Message.ChatID)
		req.Equal("hello", frame.Message.Content)
	}

	// Соседняя комната ничего не получает
	req.Empty(c3.send)
}

func TestHub_BroadcastAfterUnsubscribe(t *testing.T) {
	req := require.New(t)
	hub := NewHub(logger.New("error"))

	room := uuid.New()
	c1 := newTestClient(8)
	c2 := newTestClient(8)

	hub.Subscribe(c1, room)
	hub.Subscribe(c2, room)
	hub.Unsubscribe(c1, room)

	hub.Broadcast(context.Background(), room, newTestEvent(room, "after"))

	req.Empty(c1.send)
	req.Len(c2.send, 1)
}

func TestHub_UnsubscribeAll(t *testing.T) {
	req := require.New(t)
	hub := NewHub(logger.New("error"))

	roomA := uuid.New()
	roomB := uuid.New()
	c := newTestClient(8)

	hub.Subscribe(c, roomA)
	hub.Subscribe(c, roomB)
	req.Equal(1, hub.RoomSize(roomA))
	req.Equal(1, hub.RoomSize(roomB))

	hub.UnsubscribeAll(c)
	req.Equal(0, hub.RoomSize(roomA))
	req.Equal(0, hub.RoomSize(roomB))

	hub.Broadcast(context.Background(), roomA, newTestEvent(roomA, "gone"))
	req.Empty(c.send)
}

// Клиент с переполненной очередью снимается со всех комнат и закрывается,
// остальные подписчики продолжают получать события
func TestHub_SlowClientIsDropped(t *testing.T) {
	req := require.New(t)
	hub := NewHub(logger.New("error"))

	room := uuid.New()
	slow := newTestClient(1)
	fast := newTestClient(8)

	hub.Subscribe(slow, room)
	hub.Subscribe(fast, room)

	hub.Broadcast(context.Background(), room, newTestEvent(room, "first"))
	hub.Broadcast(context.Background(), room, newTestEvent(room, "second"))

	req.Len(fast.send, 2)
	req.Equal(1, hub.RoomSize(room))

	select {
	case <-slow.done:
	default:
		t.Fatal("slow client must be closed")
	}
}

func TestHub_ConcurrentSubscribeBroadcast(t *testing.T) {
	hub := NewHub(logger.New("error"))
	room := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)

		go func() {
			defer wg.Done()
			c := newTestClient(64)
			hub.Subscribe(c, room)
			hub.UnsubscribeAll(c)
		}()

		go func(n int) {
			defer wg.Done()
			hub.Broadcast(context.Background(), room, newTestEvent(room, fmt.Sprintf("msg-%d", n)))
		}(i)
	}
	wg.Wait()

	require.Equal(t, 0, hub.RoomSize(room))
}

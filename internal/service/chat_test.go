package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"inchat/internal/domain"
	apperrors "inchat/pkg/errors"
	"inchat/pkg/logger"
)

type chatFixture struct {
	svc      ChatService
	chatRepo *memChatRepo
	msgRepo  *memMessageRepo
	userRepo *memUserRepo
	audit    *memAuditRepo
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	f := &chatFixture{
		chatRepo: newMemChatRepo(),
		msgRepo:  newMemMessageRepo(),
		userRepo: newMemUserRepo(),
		audit:    newMemAuditRepo(),
	}
	f.svc = NewChatService(f.chatRepo, f.msgRepo, f.userRepo, f.audit, logger.New("error"))
	return f
}

func (f *chatFixture) addUser(t *testing.T, name string) *domain.UserRef {
	t.Helper()
	user := &domain.User{
		ID:          uuid.New(),
		Email:       name + "@example.com",
		DisplayName: name,
	}
	require.NoError(t, f.userRepo.Create(context.Background(), user))
	return &domain.UserRef{ID: user.ID, DisplayName: user.DisplayName}
}

func TestChatService_CreateDirectIsIdempotent(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	ctx := context.Background()

	alice := f.addUser(t, "alice")
	bob := f.addUser(t, "bob")

	chatID, created, err := f.svc.CreateDirect(ctx, alice.ID, bob.ID)
	req.NoError(err)
	req.True(created)
	req.NotEqual(uuid.Nil, chatID)

	// Повторный вызов с любой стороны возвращает тот же чат
	again, created, err := f.svc.CreateDirect(ctx, alice.ID, bob.ID)
	req.NoError(err)
	req.False(created)
	req.Equal(chatID, again)

	reversed, created, err := f.svc.CreateDirect(ctx, bob.ID, alice.ID)
	req.NoError(err)
	req.False(created)
	req.Equal(chatID, reversed)

	req.Equal(1, f.chatRepo.createCalls)
	req.Equal(1, f.audit.count())
}

func TestChatService_CreateDirectRejectsSelfAndUnknown(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	ctx := context.Background()

	alice := f.addUser(t, "alice")

	_, _, err := f.svc.CreateDirect(ctx, alice.ID, alice.ID)
	req.ErrorIs(err, apperrors.ErrBadRequest)

	_, _, err = f.svc.CreateDirect(ctx, alice.ID, uuid.Nil)
	req.ErrorIs(err, apperrors.ErrBadRequest)

	_, _, err = f.svc.CreateDirect(ctx, alice.ID, uuid.New())
	req.ErrorIs(err, apperrors.ErrUserNotFound)
}

func TestChatService_SendMessageTrimsContent(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	ctx := context.Background()

	alice := f.addUser(t, "alice")
	bob := f.addUser(t, "bob")
	chatID, _, err := f.svc.CreateDirect(ctx, alice.ID, bob.ID)
	req.NoError(err)

	message, err := f.svc.SendMessage(ctx, chatID, alice, "  hello bob \n")
	req.NoError(err)
	req.Equal("hello bob", message.Content)
	req.Equal(alice.ID, message.SenderID)
	req.NotEqual(uuid.Nil, message.ID)
	req.False(message.CreatedAt.IsZero())
}

func TestChatService_SendMessageRejectsEmptyAndOversize(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	ctx := context.Background()

	alice := f.addUser(t, "alice")
	bob := f.addUser(t, "bob")
	chatID, _, err := f.svc.CreateDirect(ctx, alice.ID, bob.ID)
	req.NoError(err)

	_, err = f.svc.SendMessage(ctx, chatID, alice, "   \t\n  ")
	req.ErrorIs(err, apperrors.ErrBadRequest)

	_, err = f.svc.SendMessage(ctx, chatID, alice, strings.Repeat("x", domain.MaxMessageLength+1))
	req.ErrorIs(err, apperrors.ErrBadRequest)

	// Ровно на границе - проходит
	_, err = f.svc.SendMessage(ctx, chatID, alice, strings.Repeat("x", domain.MaxMessageLength))
	req.NoError(err)
}

func TestChatService_SendMessageNonParticipant(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	ctx := context.Background()

	alice := f.addUser(t, "alice")
	bob := f.addUser(t, "bob")
	mallory := f.addUser(t, "mallory")
	chatID, _, err := f.svc.CreateDirect(ctx, alice.ID, bob.ID)
	req.NoError(err)

	_, err = f.svc.SendMessage(ctx, chatID, mallory, "let me in")
	req.ErrorIs(err, apperrors.ErrNotParticipant)

	messages, err := f.svc.GetMessages(ctx, chatID, alice.ID, 0)
	req.NoError(err)
	req.Empty(messages)
}

// Членство проверяется на каждую отправку: отзыв после успешного join
// блокирует следующую же отправку
func TestChatService_SendMessageAfterRevocation(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	ctx := context.Background()

	alice := f.addUser(t, "alice")
	bob := f.addUser(t, "bob")
	chatID, _, err := f.svc.CreateDirect(ctx, alice.ID, bob.ID)
	req.NoError(err)

	_, err = f.svc.SendMessage(ctx, chatID, alice, "first")
	req.NoError(err)

	f.chatRepo.revoke(chatID, alice.ID)

	_, err = f.svc.SendMessage(ctx, chatID, alice, "second")
	req.ErrorIs(err, apperrors.ErrNotParticipant)
}

func TestChatService_MessageHistoryOrder(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	ctx := context.Background()

	alice := f.addUser(t, "alice")
	bob := f.addUser(t, "bob")
	chatID, _, err := f.svc.CreateDirect(ctx, alice.ID, bob.ID)
	req.NoError(err)

	for i := 0; i < 5; i++ {
		_, err := f.svc.SendMessage(ctx, chatID, alice, fmt.Sprintf("msg-%d", i))
		req.NoError(err)
	}

	messages, err := f.svc.GetMessages(ctx, chatID, bob.ID, 0)
	req.NoError(err)
	req.Len(messages, 5)
	for i, m := range messages {
		req.Equal(fmt.Sprintf("msg-%d", i), m.Content)
	}
}

// Не-участнику история недоступна как not found, существование чата
// не раскрывается
func TestChatService_GetMessagesHidesChatFromOutsiders(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	ctx := context.Background()

	alice := f.addUser(t, "alice")
	bob := f.addUser(t, "bob")
	mallory := f.addUser(t, "mallory")
	chatID, _, err := f.svc.CreateDirect(ctx, alice.ID, bob.ID)
	req.NoError(err)

	_, err = f.svc.GetMessages(ctx, chatID, mallory.ID, 0)
	req.ErrorIs(err, apperrors.ErrChatNotFound)
}

func TestChatService_IsParticipant(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)
	ctx := context.Background()

	alice := f.addUser(t, "alice")
	bob := f.addUser(t, "bob")
	mallory := f.addUser(t, "mallory")
	chatID, _, err := f.svc.CreateDirect(ctx, alice.ID, bob.ID)
	req.NoError(err)

	ok, err := f.svc.IsParticipant(ctx, chatID, alice.ID)
	req.NoError(err)
	req.True(ok)

	ok, err = f.svc.IsParticipant(ctx, chatID, mallory.ID)
	req.NoError(err)
	req.False(ok)
}

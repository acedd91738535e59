package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"inchat/internal/domain"
	apperrors "inchat/pkg/errors"
)

// Репозитории в памяти для тестов сервисного слоя. Поведение повторяет
// контракт postgres-реализаций: те же sentinel-ошибки на отсутствие строк
// и дубликаты.

type memUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return apperrors.ErrUserAlreadyExists
		}
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (r *memUserRepo) List(_ context.Context, excludeID uuid.UUID) ([]*domain.UserInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.UserInfo
	for _, u := range r.users {
		if u.ID == excludeID {
			continue
		}
		out = append(out, &domain.UserInfo{ID: u.ID, DisplayName: u.DisplayName, Email: u.Email})
	}
	return out, nil
}

type pairKey struct {
	user1 uuid.UUID
	user2 uuid.UUID
}

type memChatRepo struct {
	mu           sync.Mutex
	chats        map[uuid.UUID]*domain.Chat
	pairs        map[pairKey]uuid.UUID
	participants map[uuid.UUID]map[uuid.UUID]bool
	createCalls  int
}

func newMemChatRepo() *memChatRepo {
	return &memChatRepo{
		chats:        make(map[uuid.UUID]*domain.Chat),
		pairs:        make(map[pairKey]uuid.UUID),
		participants: make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func (r *memChatRepo) CreateDirect(_ context.Context, user1ID, user2ID uuid.UUID) (*domain.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++

	chat := &domain.Chat{
		ID:        uuid.New(),
		Type:      domain.ChatTypeDirect,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	r.chats[chat.ID] = chat
	r.pairs[pairKey{user1ID, user2ID}] = chat.ID
	r.participants[chat.ID] = map[uuid.UUID]bool{user1ID: true, user2ID: true}
	return chat, nil
}

func (r *memChatRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	chat, ok := r.chats[id]
	if !ok {
		return nil, apperrors.ErrChatNotFound
	}
	return chat, nil
}

func (r *memChatRepo) GetDirectChatID(_ context.Context, user1ID, user2ID uuid.UUID) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.pairs[pairKey{user1ID, user2ID}]
	if !ok {
		return uuid.Nil, apperrors.ErrChatNotFound
	}
	return id, nil
}

func (r *memChatRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*domain.ChatSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.ChatSummary
	for chatID, members := range r.participants {
		if members[userID] {
			out = append(out, &domain.ChatSummary{ID: chatID, Type: domain.ChatTypeDirect})
		}
	}
	return out, nil
}

func (r *memChatRepo) IsParticipant(_ context.Context, chatID, userID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.participants[chatID][userID], nil
}

// revoke снимает членство, имитируя изменение в базе при живом соединении
func (r *memChatRepo) revoke(chatID, userID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.participants[chatID], userID)
}

type memMessageRepo struct {
	mu       sync.Mutex
	messages []*domain.Message
	seq      int
}

func newMemMessageRepo() *memMessageRepo {
	return &memMessageRepo{}
}

func (r *memMessageRepo) Create(_ context.Context, message *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	message.CreatedAt = time.Unix(0, int64(r.seq))
	clone := *message
	r.messages = append(r.messages, &clone)
	return nil
}

func (r *memMessageRepo) ListByChat(_ context.Context, chatID uuid.UUID, limit int) ([]*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Message
	for _, m := range r.messages {
		if m.ChatID == chatID && len(out) < limit {
			out = append(out, m)
		}
	}
	return out, nil
}

type memAuditRepo struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
}

func newMemAuditRepo() *memAuditRepo {
	return &memAuditRepo{}
}

func (r *memAuditRepo) CreateLog(_ context.Context, entry *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memAuditRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

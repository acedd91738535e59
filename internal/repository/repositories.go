package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"inchat/pkg/logger"
)

type Repositories struct {
	User      UserRepository
	Chat      ChatRepository
	Message   MessageRepository
	Audit     AuditRepository
	RateLimit RateLimitRepository
}

// NewRepositories собирает слой хранения. rdb может быть nil -
// тогда rate limiter не создается и соответствующие middleware отключены.
func NewRepositories(db *pgxpool.Pool, rdb *redis.Client, log logger.Logger) *Repositories {
	repos := &Repositories{
		User:    NewUserRepository(db, log),
		Chat:    NewChatRepository(db, log),
		Message: NewMessageRepository(db, log),
		Audit:   NewAuditRepository(db, log),
	}

	if rdb != nil {
		repos.RateLimit = NewRateLimitRepository(rdb, log)
		log.Info("RateLimit repository initialized")
	} else {
		log.Warn("Redis is not configured, rate limiting disabled")
	}

	return repos
}

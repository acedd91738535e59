package service

import (
	"inchat/internal/config"
	"inchat/internal/repository"
	"inchat/pkg/logger"
)

type Services struct {
	Auth      AuthService
	User      UserService
	Chat      ChatService
	RateLimit RateLimitService
}

func NewServices(repos *repository.Repositories, cfg *config.Config, log logger.Logger) *Services {
	services := &Services{
		Auth: NewAuthService(repos.User, repos.Audit, cfg.JWT, log),
		User: NewUserService(repos.User, log),
		Chat: NewChatService(repos.Chat, repos.Message, repos.User, repos.Audit, log),
	}

	// Rate limiter требует Redis, без него просто не создаем сервис
	if repos.RateLimit != nil {
		services.RateLimit = NewRateLimitService(repos.RateLimit, log)
	}

	return services
}

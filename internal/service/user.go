package service

import (
	"context"

	"github.com/google/uuid"

	"inchat/internal/domain"
	"inchat/internal/repository"
	"inchat/pkg/logger"
)

type UserService interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	List(ctx context.Context, excludeID uuid.UUID) ([]*domain.UserInfo, error)
}

type userService struct {
	userRepo repository.UserRepository
	log      logger.Logger
}

func NewUserService(userRepo repository.UserRepository, log logger.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		log:      log,
	}
}

func (s *userService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *userService) List(ctx context.Context, excludeID uuid.UUID) ([]*domain.UserInfo, error) {
	return s.userRepo.List(ctx, excludeID)
}

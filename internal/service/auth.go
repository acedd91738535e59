package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"inchat/internal/config"
	"inchat/internal/domain"
	"inchat/internal/repository"
	apperrors "inchat/pkg/errors"
	"inchat/pkg/jwt"
	"inchat/pkg/logger"
)

type AuthService interface {
	Signup(ctx context.Context, email, password, displayName string) (*domain.User, string, error)
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
	ValidateToken(ctx context.Context, tokenString string) (*domain.User, error)
}

type authService struct {
	userRepo  repository.UserRepository
	auditRepo repository.AuditRepository
	jwtCfg    config.JWTConfig
	log       logger.Logger
}

func NewAuthService(userRepo repository.UserRepository, auditRepo repository.AuditRepository, jwtCfg config.JWTConfig, log logger.Logger) AuthService {
	return &authService{
		userRepo:  userRepo,
		auditRepo: auditRepo,
		jwtCfg:    jwtCfg,
		log:       log,
	}
}

func (s *authService) Signup(ctx context.Context, email, password, displayName string) (*domain.User, string, error) {
	// Валидация входных данных
	email = strings.ToLower(strings.TrimSpace(email))
	displayName = strings.TrimSpace(displayName)

	if email == "" || !strings.Contains(email, "@") || len(email) > 320 {
		return nil, "", fmt.Errorf("%w: invalid email", apperrors.ErrBadRequest)
	}
	if displayName == "" || len(displayName) > 80 {
		return nil, "", fmt.Errorf("%w: display name must be 1-80 characters", apperrors.ErrBadRequest)
	}
	if len(password) < 8 || len(password) > 128 {
		return nil, "", fmt.Errorf("%w: password must be 8-128 characters", apperrors.ErrBadRequest)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.log.Error("Failed to hash password", "error", err)
		return nil, "", apperrors.ErrInternalServer
	}

	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(passwordHash),
		DisplayName:  displayName,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrUserAlreadyExists) {
			return nil, "", apperrors.ErrUserAlreadyExists
		}
		s.log.Error("Failed to create user", "error", err, "email", email)
		return nil, "", err
	}

	token, err := jwt.GenerateToken(user.ID, s.jwtCfg.Secret, s.jwtCfg.TTL)
	if err != nil {
		s.log.Error("Failed to generate token", "error", err)
		return nil, "", apperrors.ErrInternalServer
	}

	s.audit(ctx, user.ID, domain.EventTypeUserSignedUp, map[string]interface{}{"email": user.Email})

	user.PasswordHash = ""
	return user, token, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if email == "" || password == "" {
		return nil, "", apperrors.ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		// Не раскрываем, существует ли пользователь
		return nil, "", apperrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", apperrors.ErrInvalidCredentials
	}

	token, err := jwt.GenerateToken(user.ID, s.jwtCfg.Secret, s.jwtCfg.TTL)
	if err != nil {
		s.log.Error("Failed to generate token", "error", err)
		return nil, "", apperrors.ErrInternalServer
	}

	s.audit(ctx, user.ID, domain.EventTypeUserLoggedIn, nil)

	user.PasswordHash = ""
	return user, token, nil
}

// ValidateToken проверяет подпись токена и возвращает пользователя.
// Используется и REST middleware, и handshake шлюза.
func (s *authService) ValidateToken(ctx context.Context, tokenString string) (*domain.User, error) {
	claims, err := jwt.ValidateToken(tokenString, s.jwtCfg.Secret)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.ErrUserNotFound
	}

	user.PasswordHash = ""
	return user, nil
}

// audit пишет запись в журнал, ошибки не блокируют основную операцию
func (s *authService) audit(ctx context.Context, userID uuid.UUID, eventType string, payload map[string]interface{}) {
	if s.auditRepo == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}
	entry := &domain.AuditLog{
		EventTime:   time.Now(),
		ActorUserID: &userID,
		EventType:   eventType,
		Payload:     payload,
	}
	if err := s.auditRepo.CreateLog(ctx, entry); err != nil {
		s.log.Warn("Failed to write audit log", "error", err, "event_type", eventType)
	}
}

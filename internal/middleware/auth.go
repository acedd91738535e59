package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"inchat/internal/service"
	"inchat/pkg/logger"
)

type AuthMiddleware struct {
	authService service.AuthService
	cookieName  string
	log         logger.Logger
}

func NewAuthMiddleware(authService service.AuthService, cookieName string, log logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		cookieName:  cookieName,
		log:         log,
	}
}

// RequireAuth достает сессионный токен из cookie и кладет пользователя
// в контекст запроса. Токен проверяется на каждый запрос, состояния нет.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(m.cookieName)
		if err != nil || token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			c.Abort()
			return
		}

		user, err := m.authService.ValidateToken(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("user_id", user.ID)
		c.Set("user", user)
		c.Next()
	}
}

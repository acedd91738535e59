package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"inchat/internal/domain"
	"inchat/internal/gateway"
	"inchat/internal/service"
	"inchat/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // В продакшене нужно проверять origin
	},
}

type WebSocketHandler struct {
	authService service.AuthService
	chatService service.ChatService
	backbone    gateway.Backbone
	cookieName  string
	log         logger.Logger
}

func NewWebSocketHandler(authService service.AuthService, chatService service.ChatService, backbone gateway.Backbone, cookieName string, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		authService: authService,
		chatService: chatService,
		backbone:    backbone,
		cookieName:  cookieName,
		log:         log,
	}
}

// HandleWS - рукопожатие шлюза. Токен проверяется до апгрейда:
// соединение без валидной cookie отклоняется раньше, чем обработан
// хоть один кадр.
func (h *WebSocketHandler) HandleWS(c *gin.Context) {
	token, err := c.Cookie(h.cookieName)
	if err != nil || token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	user, err := h.authService.ValidateToken(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	h.log.Info("Gateway connection established", "user_id", user.ID)

	client := gateway.NewClient(conn,
		&domain.UserRef{ID: user.ID, DisplayName: user.DisplayName},
		h.chatService, h.backbone, h.log)

	// Блокируется до разрыва; очистка комнат происходит внутри
	client.Run()

	h.log.Info("Gateway connection closed", "user_id", user.ID)
}

package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"inchat/internal/domain"
	"inchat/internal/service"
	apperrors "inchat/pkg/errors"
	"inchat/pkg/logger"
)

type ChatHandler struct {
	chatService service.ChatService
	log         logger.Logger
}

func NewChatHandler(chatService service.ChatService, log logger.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		log:         log,
	}
}

type CreateChatRequest struct {
	OtherUserID string `json:"otherUserId" binding:"required,uuid"`
}

type CreateMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *ChatHandler) List(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)

	chats, err := h.chatService.List(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list chats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// Create идемпотентен для пары пользователей: существующий чат
// возвращается с кодом 200, новый - с 201
func (h *ChatHandler) Create(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)

	var req CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	otherUserID, err := uuid.Parse(req.OtherUserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid other user id"})
		return
	}

	chatID, created, err := h.chatService.CreateDirect(c.Request.Context(), userID, otherUserID)
	if err != nil {
		h.log.Warn("Chat creation failed", "error", err, "user_id", userID)
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, apperrors.ErrBadRequest):
			status = http.StatusBadRequest
		case errors.Is(err, apperrors.ErrUserNotFound):
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"chatId": chatID})
}

// CreateMessage - REST-путь отправки, тот же конвейер, что и у шлюза
// (trim, лимит длины, свежая проверка членства). Не-участник получает
// 404: существование чата не раскрывается.
func (h *ChatHandler) CreateMessage(c *gin.Context) {
	user := c.MustGet("user").(*domain.User)

	chatID, err := uuid.Parse(c.Param("chatId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	var req CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	sender := &domain.UserRef{ID: user.ID, DisplayName: user.DisplayName}
	message, err := h.chatService.SendMessage(c.Request.Context(), chatID, sender, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotParticipant):
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		case errors.Is(err, apperrors.ErrBadRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.log.Error("Message creation failed", "error", err, "chat_id", chatID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": message})
}

// GetMessages - исторический путь чтения для поздно подключившихся.
// Не-участник получает 404, существование чата не раскрывается.
func (h *ChatHandler) GetMessages(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)

	chatID, err := uuid.Parse(c.Param("chatId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	messages, err := h.chatService.GetMessages(c.Request.Context(), chatID, userID, limit)
	if err != nil {
		if errors.Is(err, apperrors.ErrChatNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

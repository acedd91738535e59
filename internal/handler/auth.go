package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"inchat/internal/config"
	"inchat/internal/service"
	apperrors "inchat/pkg/errors"
	"inchat/pkg/logger"
)

type AuthHandler struct {
	authService service.AuthService
	cfg         *config.Config
	log         logger.Logger
}

func NewAuthHandler(authService service.AuthService, cfg *config.Config, log logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cfg:         cfg,
		log:         log,
	}
}

type SignupRequest struct {
	Email       string `json:"email" binding:"required,email,max=320"`
	DisplayName string `json:"displayName" binding:"required,min=1,max=80"`
	Password    string `json:"password" binding:"required,min=8,max=128"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	user, token, err := h.authService.Signup(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already in use"})
			return
		}
		h.log.Warn("Signup failed", "error", err, "email", req.Email)
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	h.setAuthCookie(c, token)
	h.log.Info("User signed up", "user_id", user.ID, "email", user.Email)
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	user, token, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.log.Warn("Login failed", "email", req.Email)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	h.setAuthCookie(c, token)
	h.log.Info("User logged in", "user_id", user.ID)
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.JWT.CookieName, "", -1, "/", "", h.secureCookie(), true)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Me не требует авторизации: без валидного токена отдаем user=null, 200
func (h *AuthHandler) Me(c *gin.Context) {
	token, err := c.Cookie(h.cfg.JWT.CookieName)
	if err != nil || token == "" {
		c.JSON(http.StatusOK, gin.H{"user": nil})
		return
	}

	user, err := h.authService.ValidateToken(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"user": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *AuthHandler) setAuthCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.JWT.CookieName, token, int(h.cfg.JWT.TTL.Seconds()), "/", "", h.secureCookie(), true)
}

func (h *AuthHandler) secureCookie() bool {
	return h.cfg.Environment == "production"
}

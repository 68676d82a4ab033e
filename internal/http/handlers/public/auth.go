package public

import (
	"errors"
	"strings"

	"github.com/unitshop/internal/http/response"
	"github.com/unitshop/internal/service"

	"github.com/gin-gonic/gin"
)

// IssueTokenRequest 机器人前端换取用户令牌
type IssueTokenRequest struct {
	TelegramID int64  `json:"telegram_id" binding:"required"`
	Username   string `json:"username"`
}

// IssueToken 首次接入时创建用户
func (h *Handler) IssueToken(c *gin.Context) {
	var req IssueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	user, token, expiresAt, err := h.UserAuthService.IssueToken(service.IssueTokenInput{
		BotSecret:  strings.TrimSpace(c.GetHeader("X-Bot-Secret")),
		TelegramID: req.TelegramID,
		Username:   req.Username,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidBotSecret):
			respondError(c, response.CodeUnauthorized, "error.bot_secret_invalid", nil)
		case errors.Is(err, service.ErrUserBlocked):
			respondError(c, response.CodeForbidden, "error.user_blocked", nil)
		case errors.Is(err, service.ErrUserNotFound):
			respondError(c, response.CodeBadRequest, "error.user_id_invalid", nil)
		default:
			respondError(c, response.CodeInternal, "error.internal", err)
		}
		return
	}
	response.Success(c, gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"user":       user,
	})
}

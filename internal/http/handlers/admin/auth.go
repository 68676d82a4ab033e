package admin

import (
	"errors"
	"strings"

	handlershared "github.com/unitshop/internal/http/handlers/shared"
	"github.com/unitshop/internal/http/response"
	"github.com/unitshop/internal/service"

	"github.com/gin-gonic/gin"
)

// LoginRequest 登录请求
type LoginRequest struct {
	Username    string `json:"username" binding:"required"`
	Password    string `json:"password" binding:"required"`
	CaptchaID   string `json:"captcha_id"`
	CaptchaCode string `json:"captcha_code"`
}

var captchaErrorRules = []mappedHandlerError{
	{target: service.ErrCaptchaRequired, code: response.CodeBadRequest, key: "error.captcha_required"},
	{target: service.ErrCaptchaInvalid, code: response.CodeBadRequest, key: "error.captcha_invalid"},
}

// Captcha 获取登录图片验证码
func (h *Handler) Captcha(c *gin.Context) {
	if !h.CaptchaService.Enabled() {
		response.Success(c, gin.H{"enabled": false})
		return
	}
	challenge, err := h.CaptchaService.Generate()
	if err != nil {
		respondError(c, response.CodeInternal, "error.captcha_failed", err)
		return
	}
	response.Success(c, gin.H{
		"enabled":      true,
		"captcha_id":   challenge.CaptchaID,
		"image_base64": challenge.ImageBase64,
		"expires_in":   challenge.ExpiresIn,
	})
}

// Login 管理员登录
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	if err := h.CaptchaService.Verify(req.CaptchaID, req.CaptchaCode); err != nil {
		handlershared.RequestLog(c).Infow("admin_login_captcha_rejected", "username", req.Username, "client_ip", c.ClientIP(), "error", err)
		respondWithMappedError(c, err, captchaErrorRules, response.CodeInternal, "error.internal")
		return
	}
	admin, token, expiresAt, err := h.AuthService.Login(strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			handlershared.RequestLog(c).Infow("admin_login_rejected", "username", req.Username, "client_ip", c.ClientIP())
			respondError(c, response.CodeUnauthorized, "error.login_invalid", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"admin":      admin,
	})
}

// Me 当前管理员及角色
func (h *Handler) Me(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	state, err := h.AuthService.ResolveAdmin(c.Request.Context(), adminID)
	if errors.Is(err, service.ErrNotFound) || (err == nil && state == nil) {
		respondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return
	}
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	roles := []string{}
	if h.AuthzService != nil && !state.IsSuper {
		if roles, err = h.AuthzService.AdminRoles(adminID); err != nil {
			respondError(c, response.CodeInternal, "error.internal", err)
			return
		}
	}
	response.Success(c, gin.H{"admin": state, "roles": roles})
}

package router

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/unitshop/internal/authz"
	handlershared "github.com/unitshop/internal/http/handlers/shared"
	"github.com/unitshop/internal/http/response"
	"github.com/unitshop/internal/logger"
	"github.com/unitshop/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDKey = "request_id"
const requestIDHeader = "X-Request-ID"
const adminIsSuperContextKey = "admin_is_super"

// CORSMiddleware 跨域中间件
func CORSMiddleware(allowedOrigins, allowedMethods, allowedHeaders []string, allowCredentials bool, maxAge int) gin.HandlerFunc {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	if len(allowedMethods) == 0 {
		allowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(allowedHeaders) == 0 {
		allowedHeaders = []string{"Content-Type", "Authorization", "X-Bot-Secret", "X-Request-ID"}
	}
	methodsHeader := strings.Join(allowedMethods, ", ")
	headersHeader := strings.Join(allowedHeaders, ", ")

	return func(c *gin.Context) {
		allowedOrigin := resolveAllowedOrigin(c.GetHeader("Origin"), allowedOrigins, allowCredentials)
		if allowedOrigin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			if allowedOrigin != "*" {
				c.Writer.Header().Add("Vary", "Origin")
			}
		}
		if allowCredentials {
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", headersHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", methodsHeader)
		if maxAge > 0 {
			c.Writer.Header().Set("Access-Control-Max-Age", strconv.Itoa(maxAge))
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

func resolveAllowedOrigin(origin string, allowedOrigins []string, allowCredentials bool) string {
	for _, allowed := range allowedOrigins {
		if allowed == "*" {
			if allowCredentials && origin != "" {
				return origin
			}
			return "*"
		}
	}
	if origin == "" {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

// RequestIDMiddleware 请求 ID 中间件
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

// LoggerMiddleware 结构化请求日志中间件
func LoggerMiddleware(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.L()
	}
	sugar := log.Sugar()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := sugar.With(
			"request_id", c.GetString(requestIDKey),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
		if len(c.Errors) > 0 {
			entry.Errorw("request", "errors", c.Errors.String())
			return
		}
		entry.Infow("request")
	}
}

// RecoveryMiddleware panic 恢复，返回统一错误体
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		handlershared.RequestLog(c).Errorw("request_panic_recovered", "panic", recovered, "path", c.Request.URL.Path)
		abortWithError(c, response.CodeInternal, "error.internal")
	})
}

func abortWithError(c *gin.Context, code int, key string) {
	handlershared.RespondError(c, code, key, nil)
	c.Abort()
}

func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(c.GetHeader("Authorization")), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// AdminJWTMiddleware 管理员 JWT 鉴权中间件
func AdminJWTMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authService == nil {
			abortWithError(c, response.CodeUnauthorized, "error.unauthorized")
			return
		}
		tokenString, ok := bearerToken(c)
		if !ok {
			abortWithError(c, response.CodeUnauthorized, "error.unauthorized")
			return
		}
		claims, err := authService.ParseJWT(tokenString)
		if err != nil || claims.AdminID == 0 {
			abortWithError(c, response.CodeUnauthorized, "error.token_invalid")
			return
		}
		state, err := authService.ResolveAdmin(c.Request.Context(), claims.AdminID)
		if err != nil || state == nil {
			if err != nil && !errors.Is(err, service.ErrNotFound) {
				handlershared.RequestLog(c).Errorw("admin_auth_state_resolve_failed", "admin_id", claims.AdminID, "error", err)
			}
			abortWithError(c, response.CodeUnauthorized, "error.token_invalid")
			return
		}
		c.Set("admin_id", state.AdminID)
		c.Set("username", state.Username)
		c.Set(adminIsSuperContextKey, state.IsSuper)
		c.Next()
	}
}

// AdminRBACMiddleware 管理端 RBAC 鉴权中间件，超级管理员直接放行
func AdminRBACMiddleware(authzService *authz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetBool(adminIsSuperContextKey) {
			c.Next()
			return
		}
		if authzService == nil {
			logger.Errorw("admin_rbac_service_unavailable")
			abortWithError(c, response.CodeForbidden, "error.forbidden")
			return
		}
		adminID := c.GetUint("admin_id")
		if adminID == 0 {
			abortWithError(c, response.CodeUnauthorized, "error.unauthorized")
			return
		}

		resource := c.FullPath()
		if strings.TrimSpace(resource) == "" {
			resource = c.Request.URL.Path
		}
		allowed, err := authzService.EnforceAdmin(adminID, resource, c.Request.Method)
		if err != nil {
			logger.Errorw("admin_rbac_enforce_failed",
				"admin_id", adminID,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"error", err,
			)
			abortWithError(c, response.CodeForbidden, "error.forbidden")
			return
		}
		if !allowed {
			logger.Warnw("admin_rbac_permission_denied",
				"admin_id", adminID,
				"method", c.Request.Method,
				"resource", authz.NormalizeObject(resource),
			)
			abortWithError(c, response.CodeForbidden, "error.forbidden")
			return
		}
		c.Next()
	}
}

// UserJWTMiddleware 用户 JWT 鉴权中间件，封禁用户直接拒绝
func UserJWTMiddleware(userAuth *service.UserAuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userAuth == nil {
			abortWithError(c, response.CodeUnauthorized, "error.unauthorized")
			return
		}
		tokenString, ok := bearerToken(c)
		if !ok {
			abortWithError(c, response.CodeUnauthorized, "error.unauthorized")
			return
		}
		claims, err := userAuth.ParseUserJWT(tokenString)
		if err != nil || claims.UserID == 0 {
			abortWithError(c, response.CodeUnauthorized, "error.token_invalid")
			return
		}
		state, err := userAuth.ResolveUserState(c.Request.Context(), claims.UserID)
		if err != nil || state == nil {
			if err != nil && !errors.Is(err, service.ErrUserNotFound) {
				handlershared.RequestLog(c).Errorw("user_auth_state_resolve_failed", "user_id", claims.UserID, "error", err)
			}
			abortWithError(c, response.CodeUnauthorized, "error.token_invalid")
			return
		}
		if state.Blocked {
			abortWithError(c, response.CodeForbidden, "error.user_blocked")
			return
		}
		c.Set("user_id", state.UserID)
		c.Set("telegram_id", state.TelegramID)
		c.Next()
	}
}

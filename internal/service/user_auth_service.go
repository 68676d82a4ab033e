package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/unitshop/internal/cache"
	"github.com/unitshop/internal/config"
	"github.com/unitshop/internal/logger"
	"github.com/unitshop/internal/models"
	"github.com/unitshop/internal/repository"

	"github.com/golang-jwt/jwt/v5"
)

// UserAuthService 用户认证服务
//
// 用户不直接登录：机器人前端持共享密钥为 Telegram 用户换取 Token。
type UserAuthService struct {
	cfg      *config.Config
	userRepo repository.UserRepository
}

// NewUserAuthService 创建用户认证服务
func NewUserAuthService(cfg *config.Config, userRepo repository.UserRepository) *UserAuthService {
	return &UserAuthService{
		cfg:      cfg,
		userRepo: userRepo,
	}
}

// UserJWTClaims 用户 JWT 声明
type UserJWTClaims struct {
	UserID     uint  `json:"user_id"`
	TelegramID int64 `json:"telegram_id"`
	jwt.RegisteredClaims
}

// IssueTokenInput 换取用户 Token 输入
type IssueTokenInput struct {
	BotSecret  string
	TelegramID int64
	Username   string
}

// IssueToken 校验机器人密钥，首次接入时创建用户，返回用户 Token
func (s *UserAuthService) IssueToken(input IssueTokenInput) (*models.User, string, time.Time, error) {
	if !s.botSecretValid(input.BotSecret) {
		return nil, "", time.Time{}, ErrInvalidBotSecret
	}
	if input.TelegramID <= 0 {
		return nil, "", time.Time{}, ErrUserNotFound
	}
	username := strings.TrimSpace(input.Username)
	if len([]rune(username)) > 100 {
		username = string([]rune(username)[:100])
	}

	user, err := s.userRepo.GetByTelegramID(input.TelegramID)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	now := time.Now()
	if user == nil {
		user = &models.User{
			TelegramID:  input.TelegramID,
			Username:    username,
			Balance:     models.ZeroMoney(),
			LastLoginAt: &now,
		}
		if err := s.userRepo.Create(user); err != nil {
			return nil, "", time.Time{}, err
		}
		logger.Infow("user_first_contact", "user_id", user.ID, "telegram_id", user.TelegramID)
	} else {
		if user.IsBlocked {
			return nil, "", time.Time{}, ErrUserBlocked
		}
		fields := map[string]interface{}{"last_login_at": now}
		if username != "" && username != user.Username {
			fields["username"] = username
			user.Username = username
		}
		user.LastLoginAt = &now
		if err := s.userRepo.UpdateFields(user.ID, fields); err != nil {
			return nil, "", time.Time{}, err
		}
	}

	token, expiresAt, err := s.GenerateUserJWT(user)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if err := cache.SetUserAuthState(context.Background(), cache.BuildUserAuthState(user)); err != nil {
		logger.Warnw("user_auth_state_cache_set_failed", "user_id", user.ID, "error", err)
	}
	return user, token, expiresAt, nil
}

func (s *UserAuthService) botSecretValid(secret string) bool {
	expected := strings.TrimSpace(s.cfg.Bot.SharedSecret)
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(secret))) == 1
}

// GenerateUserJWT 生成用户 JWT Token
func (s *UserAuthService) GenerateUserJWT(user *models.User) (string, time.Time, error) {
	hours := s.cfg.UserJWT.ExpireHours
	if hours <= 0 {
		hours = 720
	}
	now := time.Now()
	expiresAt := now.Add(time.Duration(hours) * time.Hour)
	claims := UserJWTClaims{
		UserID:     user.ID,
		TelegramID: user.TelegramID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.UserJWT.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseUserJWT 解析用户 JWT Token
func (s *UserAuthService) ParseUserJWT(tokenString string) (*UserJWTClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &UserJWTClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.UserJWT.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*UserJWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("无效的 token")
}

// ResolveUserState 读取用户鉴权快照，缓存未命中时回源数据库
func (s *UserAuthService) ResolveUserState(ctx context.Context, userID uint) (*cache.UserAuthState, error) {
	state, hit, err := cache.GetUserAuthState(ctx, userID)
	if err != nil {
		logger.Debugw("user_auth_state_cache_get_failed", "user_id", userID, "error", err)
	}
	if hit && state != nil {
		return state, nil
	}
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	state = cache.BuildUserAuthState(user)
	_ = cache.SetUserAuthState(ctx, state)
	return state, nil
}

// SetBlocked 管理员封禁或解封用户
func (s *UserAuthService) SetBlocked(ctx context.Context, adminID, userID uint, blocked bool) (*models.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if err := s.userRepo.UpdateFields(user.ID, map[string]interface{}{"is_blocked": blocked}); err != nil {
		return nil, err
	}
	user.IsBlocked = blocked
	if err := cache.DelUserAuthState(ctx, user.ID); err != nil {
		logger.Warnw("user_auth_state_cache_del_failed", "user_id", user.ID, "error", err)
	}
	logger.Infow("user_block_changed", "admin_id", adminID, "user_id", user.ID, "blocked", blocked)
	return user, nil
}

// ListUsers 管理端用户列表
func (s *UserAuthService) ListUsers(filter repository.UserListFilter) ([]models.User, int64, error) {
	return s.userRepo.List(filter)
}

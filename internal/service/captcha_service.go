package service

import (
	"context"
	"strings"
	"time"

	"github.com/unitshop/internal/cache"
	"github.com/unitshop/internal/config"
	"github.com/unitshop/internal/logger"

	"github.com/mojocn/base64Captcha"
)

const (
	captchaCacheKeyPrefix = "captcha:"
	captchaSource         = "23456789abcdefghjkmnpqrstuvwxyz"
)

// CaptchaChallenge 图片验证码挑战
type CaptchaChallenge struct {
	CaptchaID   string `json:"captcha_id"`
	ImageBase64 string `json:"image_base64"`
	ExpiresIn   int    `json:"expires_in"`
}

// CaptchaService 管理员登录图片验证码
type CaptchaService struct {
	cfg    config.CaptchaConfig
	store  base64Captcha.Store
	driver *base64Captcha.DriverString
}

// NewCaptchaService 创建验证码服务，启用 Redis 时答案存放于 Redis
func NewCaptchaService(cfg config.CaptchaConfig) *CaptchaService {
	cfg = normalizeCaptchaConfig(cfg)
	var store base64Captcha.Store
	if cache.Enabled() {
		store = newRedisCaptchaStore(time.Duration(cfg.ExpireSeconds) * time.Second)
	} else {
		store = base64Captcha.NewMemoryStore(cfg.MaxStore, time.Duration(cfg.ExpireSeconds)*time.Second)
	}
	return newCaptchaServiceWithStore(cfg, store)
}

func newCaptchaServiceWithStore(cfg config.CaptchaConfig, store base64Captcha.Store) *CaptchaService {
	cfg = normalizeCaptchaConfig(cfg)
	driver := base64Captcha.NewDriverString(
		cfg.Height,
		cfg.Width,
		cfg.NoiseCount,
		cfg.ShowLine,
		cfg.Length,
		captchaSource,
		nil,
		base64Captcha.DefaultEmbeddedFonts,
		nil,
	)
	return &CaptchaService{cfg: cfg, store: store, driver: driver}
}

func normalizeCaptchaConfig(cfg config.CaptchaConfig) config.CaptchaConfig {
	if cfg.Length < 4 || cfg.Length > 8 {
		cfg.Length = 5
	}
	if cfg.Width <= 0 {
		cfg.Width = 240
	}
	if cfg.Height <= 0 {
		cfg.Height = 80
	}
	if cfg.NoiseCount < 0 {
		cfg.NoiseCount = 0
	}
	if cfg.ShowLine < 0 {
		cfg.ShowLine = 0
	}
	if cfg.ExpireSeconds <= 0 {
		cfg.ExpireSeconds = 300
	}
	if cfg.MaxStore <= 0 {
		cfg.MaxStore = 10240
	}
	return cfg
}

// Enabled 是否要求登录时校验验证码
func (s *CaptchaService) Enabled() bool {
	return s != nil && s.cfg.Enabled
}

// Generate 生成图片验证码
func (s *CaptchaService) Generate() (*CaptchaChallenge, error) {
	captcha := base64Captcha.NewCaptcha(s.driver, s.store)
	id, b64s, _, err := captcha.Generate()
	if err != nil {
		return nil, err
	}
	return &CaptchaChallenge{
		CaptchaID:   strings.TrimSpace(id),
		ImageBase64: strings.TrimSpace(b64s),
		ExpiresIn:   s.cfg.ExpireSeconds,
	}, nil
}

// Verify 校验验证码，无论成败答案只能使用一次
func (s *CaptchaService) Verify(captchaID, code string) error {
	if !s.Enabled() {
		return nil
	}
	captchaID = strings.TrimSpace(captchaID)
	code = strings.ToLower(strings.TrimSpace(code))
	if captchaID == "" || code == "" {
		return ErrCaptchaRequired
	}
	if !s.store.Verify(captchaID, code, true) {
		return ErrCaptchaInvalid
	}
	return nil
}

// redisCaptchaStore 以 Redis 保存验证码答案，多实例部署共享
type redisCaptchaStore struct {
	ttl time.Duration
}

func newRedisCaptchaStore(ttl time.Duration) *redisCaptchaStore {
	return &redisCaptchaStore{ttl: ttl}
}

func (s *redisCaptchaStore) Set(id string, value string) error {
	return cache.SetString(context.Background(), captchaCacheKeyPrefix+id, strings.ToLower(value), s.ttl)
}

func (s *redisCaptchaStore) Get(id string, clear bool) string {
	value, _, err := cache.GetString(context.Background(), captchaCacheKeyPrefix+id, clear)
	if err != nil {
		logger.Warnw("captcha_store_get_failed", "captcha_id", id, "error", err)
		return ""
	}
	return value
}

func (s *redisCaptchaStore) Verify(id, answer string, clear bool) bool {
	stored := s.Get(id, clear)
	return stored != "" && strings.EqualFold(stored, strings.TrimSpace(answer))
}

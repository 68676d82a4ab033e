package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/unitshop/internal/config"

	"github.com/mojocn/base64Captcha"
)

func TestCaptchaGenerateAndVerifyOnce(t *testing.T) {
	store := base64Captcha.NewMemoryStore(16, time.Minute)
	svc := newCaptchaServiceWithStore(config.CaptchaConfig{Enabled: true}, store)

	challenge, err := svc.Generate()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if challenge.CaptchaID == "" || !strings.HasPrefix(challenge.ImageBase64, "data:image/png;base64,") {
		t.Fatalf("unexpected challenge: %+v", challenge)
	}
	if challenge.ExpiresIn != 300 {
		t.Fatalf("expected default expiry 300, got %d", challenge.ExpiresIn)
	}
	answer := store.Get(challenge.CaptchaID, false)
	if len(answer) != 5 {
		t.Fatalf("expected 5 character answer, got %q", answer)
	}

	if err := svc.Verify(challenge.CaptchaID, strings.ToUpper(answer)); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if err := svc.Verify(challenge.CaptchaID, answer); !errors.Is(err, ErrCaptchaInvalid) {
		t.Fatalf("expected answer to be single use, got %v", err)
	}
}

func TestCaptchaVerifyRejections(t *testing.T) {
	store := base64Captcha.NewMemoryStore(16, time.Minute)
	svc := newCaptchaServiceWithStore(config.CaptchaConfig{Enabled: true}, store)

	if err := svc.Verify("", "abcde"); !errors.Is(err, ErrCaptchaRequired) {
		t.Fatalf("expected ErrCaptchaRequired, got %v", err)
	}
	if err := svc.Verify("id", " "); !errors.Is(err, ErrCaptchaRequired) {
		t.Fatalf("expected ErrCaptchaRequired, got %v", err)
	}
	challenge, err := svc.Generate()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if err := svc.Verify(challenge.CaptchaID, "00000000"); !errors.Is(err, ErrCaptchaInvalid) {
		t.Fatalf("expected ErrCaptchaInvalid, got %v", err)
	}
	// 错误答案同样消耗验证码
	if answer := store.Get(challenge.CaptchaID, false); answer != "" {
		t.Fatalf("expected captcha cleared after failed attempt, got %q", answer)
	}
}

func TestCaptchaDisabledSkipsVerification(t *testing.T) {
	svc := NewCaptchaService(config.CaptchaConfig{Enabled: false})
	if svc.Enabled() {
		t.Fatalf("expected captcha disabled")
	}
	if err := svc.Verify("", ""); err != nil {
		t.Fatalf("expected disabled captcha to pass, got %v", err)
	}
	var nilSvc *CaptchaService
	if err := nilSvc.Verify("", ""); err != nil {
		t.Fatalf("expected nil service to pass, got %v", err)
	}
}

func TestRedisCaptchaStoreWithoutRedis(t *testing.T) {
	store := newRedisCaptchaStore(time.Minute)
	if err := store.Set("id", "abcde"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if store.Verify("id", "abcde", true) {
		t.Fatalf("expected verify to fail when redis is disabled")
	}
}

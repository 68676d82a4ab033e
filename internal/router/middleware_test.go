package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/unitshop/internal/config"
	"github.com/unitshop/internal/models"
	"github.com/unitshop/internal/repository"
	"github.com/unitshop/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type statusBody struct {
	StatusCode int `json:"status_code"`
}

func decodeStatus(t *testing.T, w *httptest.ResponseRecorder) int {
	t.Helper()
	var body statusBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	return body.StatusCode
}

func setupUserAuth(t *testing.T) (*service.UserAuthService, *repository.GormUserRepository) {
	t.Helper()
	dsn := fmt.Sprintf("file:router_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	cfg := &config.Config{
		UserJWT: config.JWTConfig{SecretKey: "test-user-secret", ExpireHours: 1},
		Bot:     config.BotConfig{SharedSecret: "bot-secret"},
	}
	userRepo := repository.NewUserRepository(db)
	return service.NewUserAuthService(cfg, userRepo), userRepo
}

func TestResolveAllowedOrigin(t *testing.T) {
	if got := resolveAllowedOrigin("https://example.com", []string{"*"}, false); got != "*" {
		t.Fatalf("wildcard without credentials should return *, got %s", got)
	}
	if got := resolveAllowedOrigin("https://example.com", []string{"*"}, true); got != "https://example.com" {
		t.Fatalf("wildcard with credentials should echo origin, got %s", got)
	}
	if got := resolveAllowedOrigin("https://a.example.com", []string{"https://A.example.com"}, false); got != "https://a.example.com" {
		t.Fatalf("allow-list should match case-insensitively, got %s", got)
	}
	if got := resolveAllowedOrigin("https://x.example.com", []string{"https://a.example.com"}, false); got != "" {
		t.Fatalf("unmatched origin should be empty, got %s", got)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": c.GetString(requestIDKey)})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "req-123")
	r.ServeHTTP(w, req)
	if w.Header().Get(requestIDHeader) != "req-123" {
		t.Fatalf("response request id want req-123 got %s", w.Header().Get(requestIDHeader))
	}

	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w2.Header().Get(requestIDHeader) == "" {
		t.Fatalf("generated request id should not be empty")
	}
}

func TestRecoveryMiddlewareReturnsEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestIDMiddleware(), RecoveryMiddleware())
	r.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if code := decodeStatus(t, w); code != 500 {
		t.Fatalf("status_code want 500 got %d", code)
	}
}

func TestAdminJWTMiddlewareWithoutService(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(AdminJWTMiddleware(nil))
	r.GET("/admin/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/ping", nil))
	if code := decodeStatus(t, w); code != 401 {
		t.Fatalf("status_code want 401 got %d", code)
	}
}

func TestUserJWTMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	userAuth, userRepo := setupUserAuth(t)

	user, token, _, err := userAuth.IssueToken(service.IssueTokenInput{BotSecret: "bot-secret", TelegramID: 1001, Username: "alice"})
	if err != nil {
		t.Fatalf("issue token failed: %v", err)
	}

	r := gin.New()
	r.Use(UserJWTMiddleware(userAuth))
	r.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status_code": 0, "user_id": c.GetUint("user_id")})
	})

	call := func(header string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		r.ServeHTTP(w, req)
		return w
	}

	if code := decodeStatus(t, call("")); code != 401 {
		t.Fatalf("missing header want 401 got %d", code)
	}
	if code := decodeStatus(t, call("Bearer not-a-token")); code != 401 {
		t.Fatalf("bad token want 401 got %d", code)
	}

	w := call("Bearer " + token)
	var body struct {
		StatusCode int  `json:"status_code"`
		UserID     uint `json:"user_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if body.StatusCode != 0 || body.UserID != user.ID {
		t.Fatalf("unexpected body: %+v", body)
	}

	if err := userRepo.UpdateFields(user.ID, map[string]interface{}{"is_blocked": true}); err != nil {
		t.Fatalf("block user failed: %v", err)
	}
	if code := decodeStatus(t, call("Bearer "+token)); code != 403 {
		t.Fatalf("blocked user want 403 got %d", code)
	}
}

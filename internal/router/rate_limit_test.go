package router

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestKeyByIPAndJSONField(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name string
		body string
		want string
	}{
		{name: "string", body: `{"username":" Admin "}`, want: "admin|1.2.3.4"},
		{name: "number", body: `{"telegram_id":123456789}`, want: "123456789|1.2.3.4"},
		{name: "missing", body: `{}`, want: "1.2.3.4"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodPost, "/auth", strings.NewReader(tc.body))
			c.Request.Header.Set("Content-Type", "application/json")
			c.Request.RemoteAddr = "1.2.3.4:5678"

			field := "username"
			if tc.name == "number" {
				field = "telegram_id"
			}
			if key := KeyByIPAndJSONField(field)(c); key != tc.want {
				t.Fatalf("key want %s got %s", tc.want, key)
			}
			body, err := io.ReadAll(c.Request.Body)
			if err != nil {
				t.Fatalf("read body after key extraction failed: %v", err)
			}
			if string(body) != tc.body {
				t.Fatalf("request body should be restored, got %s", string(body))
			}
		})
	}
}

func TestKeyByUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/checkout", nil)
	c.Request.RemoteAddr = "5.6.7.8:1000"

	if key := KeyByUser(c); key != "5.6.7.8" {
		t.Fatalf("anonymous key want ip got %s", key)
	}
	c.Set("user_id", uint(42))
	if key := KeyByUser(c); key != "user:42" {
		t.Fatalf("user key want user:42 got %s", key)
	}
}

func TestRateLimitMiddlewareWithoutClient(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RateLimitMiddleware(nil, RateLimitRule{WindowSeconds: 60, MaxRequests: 1}, KeyByIP))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok":true`) {
			t.Fatalf("request %d should pass without redis, got %d %s", i, w.Code, w.Body.String())
		}
	}
}

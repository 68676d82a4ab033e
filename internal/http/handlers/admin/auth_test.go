package admin

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/unitshop/internal/config"
	"github.com/unitshop/internal/http/response"
	"github.com/unitshop/internal/provider"
	"github.com/unitshop/internal/service"

	"github.com/gin-gonic/gin"
)

func captchaRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := New(&provider.Container{
		CaptchaService: service.NewCaptchaService(config.CaptchaConfig{Enabled: true}),
	})
	r := gin.New()
	r.GET("/captcha", h.Captcha)
	r.POST("/login", h.Login)
	return r
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var body response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body failed: %v", err)
	}
	return body
}

func TestCaptchaEndpointIssuesChallenge(t *testing.T) {
	r := captchaRouter()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/captcha", nil))

	body := decodeResponse(t, w)
	if body.StatusCode != response.CodeOK {
		t.Fatalf("expected ok, got %d", body.StatusCode)
	}
	data, ok := body.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected data: %#v", body.Data)
	}
	if data["enabled"] != true || data["captcha_id"] == "" || data["image_base64"] == "" {
		t.Fatalf("unexpected challenge: %#v", data)
	}
}

func TestLoginRequiresCaptcha(t *testing.T) {
	r := captchaRouter()
	cases := []struct {
		name    string
		payload map[string]string
	}{
		{name: "missing", payload: map[string]string{"username": "admin", "password": "secret"}},
		{name: "unknown", payload: map[string]string{"username": "admin", "password": "secret", "captcha_id": "nope", "captcha_code": "abcde"}},
	}
	for _, tc := range cases {
		raw, _ := json.Marshal(tc.payload)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		body := decodeResponse(t, w)
		if body.StatusCode != response.CodeBadRequest {
			t.Fatalf("%s: expected captcha rejection, got %d", tc.name, body.StatusCode)
		}
	}
}

package public

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/unitshop/internal/http/response"
	"github.com/unitshop/internal/service"

	"github.com/gin-gonic/gin"
)

type errorBody struct {
	StatusCode int                    `json:"status_code"`
	Msg        string                 `json:"msg"`
	Data       map[string]interface{} `json:"data"`
}

func newTestContext(t *testing.T, target string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, target, nil)
	return c, w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body failed: %v", err)
	}
	return body
}

func TestRespondSettlementErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{name: "stock_race", err: fmt.Errorf("allocate: %w", service.ErrInsufficientStock), code: response.CodeConflict, msg: "Not enough stock left"},
		{name: "validation", err: service.ErrQuantityOutOfRange, code: response.CodeBadRequest, msg: "Quantity is outside the allowed range"},
		{name: "blocked", err: service.ErrUserBlocked, code: response.CodeForbidden, msg: "Your account has been blocked"},
		{name: "gateway", err: service.ErrPaymentFailed, code: response.CodeBadGateway, msg: "Payment was not received"},
		{name: "shutting_down", err: service.ErrPaymentFlowsClosed, code: response.CodeServiceUnavailable, msg: "Service is restarting, please retry shortly"},
		{name: "unknown", err: errors.New("disk full"), code: response.CodeInternal, msg: "Checkout failed, please retry"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, w := newTestContext(t, "/api/v1/checkout")
			respondSettlementError(c, &service.Settlement{State: service.SettlementRejected}, tc.err)

			if w.Code != http.StatusOK {
				t.Fatalf("expected http 200, got %d", w.Code)
			}
			body := decodeBody(t, w)
			if body.StatusCode != tc.code {
				t.Fatalf("expected code %d, got %d", tc.code, body.StatusCode)
			}
			if body.Msg != tc.msg {
				t.Fatalf("expected msg %q, got %q", tc.msg, body.Msg)
			}
			if body.Data["state"] != "rejected" {
				t.Fatalf("expected state rejected, got %v", body.Data["state"])
			}
		})
	}
}

func TestRespondSettlementErrorLocalized(t *testing.T) {
	c, w := newTestContext(t, "/api/v1/checkout?lang=zh-CN")
	respondSettlementError(c, nil, service.ErrInsufficientBalance)

	body := decodeBody(t, w)
	if body.StatusCode != response.CodeBadRequest || body.Msg != "余额不足" {
		t.Fatalf("unexpected body: %+v", body)
	}
	if _, ok := body.Data["state"]; ok {
		t.Fatalf("expected no state without settlement, got %v", body.Data)
	}
}

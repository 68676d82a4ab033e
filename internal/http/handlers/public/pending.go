package public

import (
	"context"
	"fmt"

	handlershared "github.com/unitshop/internal/http/handlers/shared"
	"github.com/unitshop/internal/http/response"
	"github.com/unitshop/internal/i18n"
	"github.com/unitshop/internal/models"
	"github.com/unitshop/internal/service"

	"github.com/gin-gonic/gin"
)

// paymentFlow 可能在网关扣款创建后长时间阻塞的操作
type paymentFlow func(ctx context.Context, onPending service.PaymentPendingFunc) (interface{}, error)

type flowOutcome struct {
	value interface{}
	err   error
}

// runPaymentFlow 在后台执行 flow：流程先结束则返回终态；
// 网关扣款先创建则返回扣款快照，流程在请求结束后继续运行直到到账或超时。
func runPaymentFlow(c *gin.Context, flows *service.PaymentFlows, event string, flow paymentFlow) (*models.PaymentCharge, flowOutcome) {
	pending := make(chan models.PaymentCharge, 1)
	done := make(chan flowOutcome, 1)
	ctx := context.WithoutCancel(c.Request.Context())
	log := handlershared.RequestLog(c)

	err := flows.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorw(event+"_panic", "panic", r)
				done <- flowOutcome{err: fmt.Errorf("%w: %v", service.ErrSettlementFailed, r)}
			}
		}()
		value, err := flow(ctx, func(charge models.PaymentCharge) {
			pending <- charge
		})
		if err != nil {
			log.Infow(event+"_finished", "error", err)
		}
		done <- flowOutcome{value: value, err: err}
	})
	if err != nil {
		return nil, flowOutcome{err: err}
	}

	select {
	case outcome := <-done:
		return nil, outcome
	case charge := <-pending:
		select {
		case outcome := <-done:
			return nil, outcome
		default:
			return &charge, flowOutcome{}
		}
	}
}

// respondPending 返回待付款信息，客户端轮询 /charges/:charge_no
func respondPending(c *gin.Context, key string, charge *models.PaymentCharge) {
	response.Pending(c, i18n.T(i18n.ResolveLocale(c), key), gin.H{
		"state":         service.SettlementAwaitingPayment,
		"charge_no":     charge.ChargeNo,
		"pay_url":       charge.PayURL,
		"quoted_amount": charge.QuotedAmount,
		"gateway":       charge.Gateway,
	})
}

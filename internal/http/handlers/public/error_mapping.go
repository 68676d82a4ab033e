package public

import (
	"errors"

	handlershared "github.com/unitshop/internal/http/handlers/shared"
	"github.com/unitshop/internal/http/response"
	"github.com/unitshop/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 业务错误到响应码与消息键的映射
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

// 校验类 400，库存竞争 409，网关未到账 502，进程退出中 503，客户端据此决定是否重试
var settlementErrorRules = []mappedHandlerError{
	{target: service.ErrQuantityOutOfRange, code: response.CodeBadRequest, key: "error.quantity_out_of_range"},
	{target: service.ErrInvalidQuantity, code: response.CodeBadRequest, key: "error.invalid_quantity"},
	{target: service.ErrInsufficientBalance, code: response.CodeBadRequest, key: "error.insufficient_balance"},
	{target: service.ErrInvalidAmount, code: response.CodeBadRequest, key: "error.invalid_amount"},
	{target: service.ErrProductNotAvailable, code: response.CodeBadRequest, key: "error.product_not_available"},
	{target: service.ErrGatewayNotSupported, code: response.CodeBadRequest, key: "error.gateway_not_supported"},
	{target: service.ErrProductNotFound, code: response.CodeNotFound, key: "error.product_not_found"},
	{target: service.ErrCartItemNotFound, code: response.CodeNotFound, key: "error.cart_item_not_found"},
	{target: service.ErrUserNotFound, code: response.CodeNotFound, key: "error.user_not_found"},
	{target: service.ErrUserBlocked, code: response.CodeForbidden, key: "error.user_blocked"},
	{target: service.ErrInsufficientStock, code: response.CodeConflict, key: "error.insufficient_stock"},
	{target: service.ErrPaymentFailed, code: response.CodeBadGateway, key: "error.payment_failed"},
	{target: service.ErrPaymentFlowsClosed, code: response.CodeServiceUnavailable, key: "error.service_unavailable"},
}

func matchHandlerError(err error, rules []mappedHandlerError) (mappedHandlerError, bool) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			return rule, true
		}
	}
	return mappedHandlerError{}, false
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	if rule, ok := matchHandlerError(err, rules); ok {
		respondError(c, rule.code, rule.key, nil)
		return
	}
	respondError(c, fallbackCode, fallbackKey, err)
}

// respondSettlementError 结算失败时附带终态，便于前端区分拒绝与失败
func respondSettlementError(c *gin.Context, st *service.Settlement, err error) {
	data := gin.H{}
	if st != nil {
		data["state"] = st.State
	}
	if rule, ok := matchHandlerError(err, settlementErrorRules); ok {
		handlershared.RespondErrorWithData(c, rule.code, rule.key, data)
		return
	}
	handlershared.RequestLog(c).Errorw("settlement_unmapped_error", "error", err)
	handlershared.RespondErrorWithData(c, response.CodeInternal, "error.settlement_failed", data)
}

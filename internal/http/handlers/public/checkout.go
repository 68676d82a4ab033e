package public

import (
	"context"
	"errors"
	"strings"

	"github.com/unitshop/internal/http/response"
	"github.com/unitshop/internal/service"

	"github.com/gin-gonic/gin"
)

// CheckoutRequest 直接购买传 product_id+quantity，购物车结算传 cart_item_id
type CheckoutRequest struct {
	ProductID   uint   `json:"product_id"`
	Quantity    int    `json:"quantity"`
	CartItemID  uint   `json:"cart_item_id"`
	PaymentType string `json:"payment_type"`
}

// CheckoutResponse 结算终态
type CheckoutResponse struct {
	State    service.SettlementState `json:"state"`
	Sale     interface{}             `json:"sale"`
	Units    interface{}             `json:"units"`
	Amount   string                  `json:"amount"`
	Quantity int                     `json:"quantity"`
}

// Checkout 结算：余额支付同步返回，网关支付在扣款创建后返回待付款
func (h *Handler) Checkout(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	if req.CartItemID == 0 && req.ProductID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	settleReq := service.SettlementRequest{
		UserID:      uid,
		ProductID:   req.ProductID,
		Quantity:    req.Quantity,
		CartItemID:  req.CartItemID,
		PaymentType: strings.TrimSpace(req.PaymentType),
	}
	if settleReq.CartItemID != 0 {
		settleReq.ProductID = 0
		settleReq.Quantity = 0
	}

	charge, outcome := runPaymentFlow(c, h.PaymentFlows, "checkout", func(ctx context.Context, onPending service.PaymentPendingFunc) (interface{}, error) {
		return h.SettlementService.Checkout(ctx, settleReq, onPending)
	})
	if charge != nil {
		respondPending(c, "settlement.awaiting_payment", charge)
		return
	}
	st, _ := outcome.value.(*service.Settlement)
	if outcome.err != nil {
		respondSettlementError(c, st, outcome.err)
		return
	}
	response.Success(c, CheckoutResponse{
		State:    st.State,
		Sale:     st.Sale,
		Units:    st.Units,
		Amount:   st.Amount.StringFixed(2),
		Quantity: st.Quantity,
	})
}

// GetCharge 查询网关扣款进度
func (h *Handler) GetCharge(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	chargeNo := strings.TrimSpace(c.Param("charge_no"))
	if chargeNo == "" {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	charge, err := h.SaleService.GetChargeForUser(uid, chargeNo)
	if err != nil {
		if errors.Is(err, service.ErrChargeNotFound) {
			respondError(c, response.CodeNotFound, "error.charge_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, charge)
}

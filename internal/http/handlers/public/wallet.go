package public

import (
	"context"
	"strings"

	handlershared "github.com/unitshop/internal/http/handlers/shared"
	"github.com/unitshop/internal/http/response"
	"github.com/unitshop/internal/repository"
	"github.com/unitshop/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// TopUpRequest 充值请求
type TopUpRequest struct {
	Amount      string `json:"amount" binding:"required"`
	PaymentType string `json:"payment_type" binding:"required"`
}

// GetWallet 查询余额
func (h *Handler) GetWallet(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	balance, err := h.WalletService.GetBalance(uid)
	if err != nil {
		respondWithMappedError(c, err, settlementErrorRules, response.CodeInternal, "error.wallet_fetch_failed")
		return
	}
	response.Success(c, gin.H{"balance": balance})
}

// ListWalletTransactions 余额流水
func (h *Handler) ListWalletTransactions(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.PageQuery(c)
	txns, total, err := h.WalletService.ListTransactions(repository.BalanceTransactionListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   uid,
		Type:     strings.TrimSpace(c.Query("type")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.wallet_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, txns, response.BuildPagination(page, pageSize, total))
}

// ListDeposits 充值记录
func (h *Handler) ListDeposits(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.PageQuery(c)
	deposits, total, err := h.WalletService.ListDeposits(uid, page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "error.wallet_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, deposits, response.BuildPagination(page, pageSize, total))
}

// TopUp 网关充值，扣款创建后返回待付款
func (h *Handler) TopUp(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_amount", nil)
		return
	}

	charge, outcome := runPaymentFlow(c, h.PaymentFlows, "top_up", func(ctx context.Context, onPending service.PaymentPendingFunc) (interface{}, error) {
		return h.WalletService.TopUp(ctx, service.TopUpInput{
			UserID:      uid,
			Amount:      amount,
			PaymentType: req.PaymentType,
			OnPending:   onPending,
		})
	})
	if charge != nil {
		respondPending(c, "wallet.top_up_awaiting_payment", charge)
		return
	}
	if outcome.err != nil {
		respondWithMappedError(c, outcome.err, settlementErrorRules, response.CodeInternal, "error.top_up_failed")
		return
	}
	response.Success(c, outcome.value)
}

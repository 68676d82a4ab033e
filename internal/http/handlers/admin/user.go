package admin

import (
	"strconv"
	"strings"

	handlershared "github.com/unitshop/internal/http/handlers/shared"
	"github.com/unitshop/internal/http/response"
	"github.com/unitshop/internal/repository"
	"github.com/unitshop/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// BlockUserRequest 封禁/解封
type BlockUserRequest struct {
	Blocked bool `json:"blocked"`
}

// AdjustBalanceRequest 人工调整余额，正数加款负数扣款
type AdjustBalanceRequest struct {
	Delta  string `json:"delta" binding:"required"`
	Remark string `json:"remark"`
}

var userErrorRules = []mappedHandlerError{
	{target: service.ErrUserNotFound, code: response.CodeNotFound, key: "error.user_not_found"},
	{target: service.ErrInvalidAmount, code: response.CodeBadRequest, key: "error.invalid_amount"},
	{target: service.ErrInsufficientBalance, code: response.CodeBadRequest, key: "error.insufficient_balance"},
}

// ListUsers 用户列表
func (h *Handler) ListUsers(c *gin.Context) {
	page, pageSize := handlershared.PageQuery(c)
	telegramID, _ := strconv.ParseInt(strings.TrimSpace(c.Query("telegram_id")), 10, 64)
	users, total, err := h.UserAuthService.ListUsers(repository.UserListFilter{
		Page:        page,
		PageSize:    pageSize,
		TelegramID:  telegramID,
		Search:      strings.TrimSpace(c.Query("search")),
		OnlyBlocked: c.Query("blocked") == "true",
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.user_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, users, response.BuildPagination(page, pageSize, total))
}

// SetUserBlocked 封禁或解封用户
func (h *Handler) SetUserBlocked(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	userID, ok := handlershared.ParamUint(c, "id", "error.user_not_found")
	if !ok {
		return
	}
	var req BlockUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	user, err := h.UserAuthService.SetBlocked(c.Request.Context(), adminID, userID, req.Blocked)
	if err != nil {
		respondWithMappedError(c, err, userErrorRules, response.CodeInternal, "error.user_update_failed")
		return
	}
	response.Success(c, user)
}

// AdjustUserBalance 人工调整余额并写入流水
func (h *Handler) AdjustUserBalance(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	userID, ok := handlershared.ParamUint(c, "id", "error.user_not_found")
	if !ok {
		return
	}
	var req AdjustBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	delta, err := decimal.NewFromString(strings.TrimSpace(req.Delta))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_amount", nil)
		return
	}
	txn, err := h.WalletService.AdminAdjust(adminID, userID, delta, req.Remark)
	if err != nil {
		respondWithMappedError(c, err, userErrorRules, response.CodeInternal, "error.balance_adjust_failed")
		return
	}
	response.Success(c, txn)
}

// ListUserTransactions 用户余额流水
func (h *Handler) ListUserTransactions(c *gin.Context) {
	userID, ok := handlershared.ParamUint(c, "id", "error.user_not_found")
	if !ok {
		return
	}
	page, pageSize := handlershared.PageQuery(c)
	txns, total, err := h.WalletService.ListTransactions(repository.BalanceTransactionListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   userID,
		Type:     strings.TrimSpace(c.Query("type")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.wallet_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, txns, response.BuildPagination(page, pageSize, total))
}

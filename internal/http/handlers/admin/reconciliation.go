package admin

import (
	"strconv"
	"strings"

	handlershared "github.com/unitshop/internal/http/handlers/shared"
	"github.com/unitshop/internal/http/response"
	"github.com/unitshop/internal/models"
	"github.com/unitshop/internal/repository"
	"github.com/unitshop/internal/service"

	"github.com/gin-gonic/gin"
)

// ResolveReconciliationRequest 处理对账
type ResolveReconciliationRequest struct {
	Remark string `json:"remark"`
}

var reconciliationErrorRules = []mappedHandlerError{
	{target: service.ErrReconciliationNotFound, code: response.CodeNotFound, key: "error.reconciliation_not_found"},
	{target: service.ErrReconciliationResolved, code: response.CodeConflict, key: "error.reconciliation_resolved"},
	{target: service.ErrUserNotFound, code: response.CodeNotFound, key: "error.user_not_found"},
}

// ListReconciliations 对账列表
func (h *Handler) ListReconciliations(c *gin.Context) {
	page, pageSize := handlershared.PageQuery(c)
	userID, _ := strconv.ParseUint(c.Query("user_id"), 10, 64)
	items, total, err := h.ReconciliationService.List(repository.ReconciliationListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   uint(userID),
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.SuccessWithPage(c, items, response.BuildPagination(page, pageSize, total))
}

// RefundReconciliation 实收金额退回用户余额
func (h *Handler) RefundReconciliation(c *gin.Context) {
	h.resolveReconciliation(c, h.ReconciliationService.RefundToBalance)
}

// DismissReconciliation 标记为线下已处理
func (h *Handler) DismissReconciliation(c *gin.Context) {
	h.resolveReconciliation(c, h.ReconciliationService.Dismiss)
}

func (h *Handler) resolveReconciliation(c *gin.Context, resolve func(adminID, id uint, remark string) (*models.Reconciliation, error)) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParamUint(c, "id", "error.reconciliation_not_found")
	if !ok {
		return
	}
	var req ResolveReconciliationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", nil)
			return
		}
	}
	item, err := resolve(adminID, id, req.Remark)
	if err != nil {
		respondWithMappedError(c, err, reconciliationErrorRules, response.CodeInternal, "error.reconciliation_failed")
		return
	}
	response.Success(c, item)
}

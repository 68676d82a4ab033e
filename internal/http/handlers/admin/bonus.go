package admin

import (
	"strings"
	"time"

	handlershared "github.com/unitshop/internal/http/handlers/shared"
	"github.com/unitshop/internal/http/response"
	"github.com/unitshop/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CreateBonusRequest 创建充值赠送规则
type CreateBonusRequest struct {
	MinAmountThreshold string     `json:"min_amount_threshold" binding:"required"`
	BonusPercentage    string     `json:"bonus_percentage" binding:"required"`
	StartsAt           *time.Time `json:"starts_at"`
	ExpiresAt          *time.Time `json:"expires_at"`
}

var bonusErrorRules = []mappedHandlerError{
	{target: service.ErrBonusInvalid, code: response.CodeBadRequest, key: "error.bonus_invalid"},
	{target: service.ErrBonusNotFound, code: response.CodeNotFound, key: "error.bonus_not_found"},
}

// ListBonuses 赠送规则列表
func (h *Handler) ListBonuses(c *gin.Context) {
	bonuses, err := h.BonusService.List()
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, bonuses)
}

// CreateBonus 创建赠送规则
func (h *Handler) CreateBonus(c *gin.Context) {
	var req CreateBonusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	threshold, err := decimal.NewFromString(strings.TrimSpace(req.MinAmountThreshold))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bonus_invalid", nil)
		return
	}
	percentage, err := decimal.NewFromString(strings.TrimSpace(req.BonusPercentage))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bonus_invalid", nil)
		return
	}
	bonus, err := h.BonusService.Create(c.Request.Context(), service.CreateBonusInput{
		MinAmountThreshold: threshold,
		BonusPercentage:    percentage,
		StartsAt:           req.StartsAt,
		ExpiresAt:          req.ExpiresAt,
	})
	if err != nil {
		respondWithMappedError(c, err, bonusErrorRules, response.CodeInternal, "error.bonus_save_failed")
		return
	}
	response.Success(c, bonus)
}

// DeactivateBonus 停用赠送规则
func (h *Handler) DeactivateBonus(c *gin.Context) {
	id, ok := handlershared.ParamUint(c, "id", "error.bonus_not_found")
	if !ok {
		return
	}
	if err := h.BonusService.Deactivate(c.Request.Context(), id); err != nil {
		respondWithMappedError(c, err, bonusErrorRules, response.CodeInternal, "error.internal")
		return
	}
	response.Success(c, gin.H{"id": id})
}

package public

import (
	"errors"

	handlershared "github.com/unitshop/internal/http/handlers/shared"
	"github.com/unitshop/internal/http/response"
	"github.com/unitshop/internal/repository"
	"github.com/unitshop/internal/service"

	"github.com/gin-gonic/gin"
)

// ListSales 我的购买记录
func (h *Handler) ListSales(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.PageQuery(c)
	sales, total, err := h.SaleService.List(repository.SaleListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   uid,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.sale_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, sales, response.BuildPagination(page, pageSize, total))
}

// GetSale 购买详情（含交付单元）
func (h *Handler) GetSale(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParamUint(c, "id", "error.sale_not_found")
	if !ok {
		return
	}
	detail, err := h.SaleService.GetForUser(uid, id)
	if err != nil {
		if errors.Is(err, service.ErrSaleNotFound) {
			respondError(c, response.CodeNotFound, "error.sale_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.sale_fetch_failed", err)
		return
	}
	response.Success(c, detail)
}

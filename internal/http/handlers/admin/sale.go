package admin

import (
	"strconv"
	"strings"
	"time"

	handlershared "github.com/unitshop/internal/http/handlers/shared"
	"github.com/unitshop/internal/http/response"
	"github.com/unitshop/internal/repository"
	"github.com/unitshop/internal/service"

	"github.com/gin-gonic/gin"
)

// ListSales 销售记录
func (h *Handler) ListSales(c *gin.Context) {
	page, pageSize := handlershared.PageQuery(c)
	userID, _ := strconv.ParseUint(c.Query("user_id"), 10, 64)
	productID, _ := strconv.ParseUint(c.Query("product_id"), 10, 64)
	filter := repository.SaleListFilter{
		Page:        page,
		PageSize:    pageSize,
		UserID:      uint(userID),
		ProductID:   uint(productID),
		PaymentType: strings.TrimSpace(c.Query("payment_type")),
	}
	if from, ok := parseDateQuery(c, "created_from"); ok {
		filter.CreatedFrom = &from
	}
	if to, ok := parseDateQuery(c, "created_to"); ok {
		end := to.Add(24 * time.Hour)
		filter.CreatedTo = &end
	}
	sales, total, err := h.SaleService.List(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.sale_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, sales, response.BuildPagination(page, pageSize, total))
}

// GetSale 销售详情（含已交付单元）
func (h *Handler) GetSale(c *gin.Context) {
	id, ok := handlershared.ParamUint(c, "id", "error.sale_not_found")
	if !ok {
		return
	}
	detail, err := h.SaleService.GetForAdmin(id)
	if err != nil {
		respondWithMappedError(c, err, []mappedHandlerError{
			{target: service.ErrSaleNotFound, code: response.CodeNotFound, key: "error.sale_not_found"},
		}, response.CodeInternal, "error.sale_fetch_failed")
		return
	}
	response.Success(c, detail)
}

// parseDateQuery 解析 YYYY-MM-DD 日期参数，非法值忽略
func parseDateQuery(c *gin.Context, key string) (time.Time, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return time.Time{}, false
	}
	parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

package admin

import (
	"errors"
	"strconv"
	"strings"

	handlershared "github.com/unitshop/internal/http/handlers/shared"
	"github.com/unitshop/internal/http/response"
	"github.com/unitshop/internal/repository"
	"github.com/unitshop/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ProductRequest 商品创建/更新
type ProductRequest struct {
	CategoryID       uint   `json:"category_id" binding:"required"`
	Name             string `json:"name" binding:"required"`
	Description      string `json:"description"`
	Price            string `json:"price" binding:"required"`
	MinOrderQuantity *int   `json:"min_order_quantity"`
	MaxOrderQuantity *int   `json:"max_order_quantity"`
	CanBePurchased   bool   `json:"can_be_purchased"`
	SortOrder        int    `json:"sort_order"`
}

func (r ProductRequest) toInput() (service.ProductInput, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(r.Price))
	if err != nil {
		return service.ProductInput{}, service.ErrInvalidAmount
	}
	return service.ProductInput{
		CategoryID:       r.CategoryID,
		Name:             r.Name,
		Description:      r.Description,
		Price:            price,
		MinOrderQuantity: r.MinOrderQuantity,
		MaxOrderQuantity: r.MaxOrderQuantity,
		CanBePurchased:   r.CanBePurchased,
		SortOrder:        r.SortOrder,
	}, nil
}

// ImportUnitsRequest 单元入库
type ImportUnitsRequest struct {
	Units []service.UnitPayload `json:"units" binding:"required"`
}

var productErrorRules = []mappedHandlerError{
	{target: service.ErrProductNotFound, code: response.CodeNotFound, key: "error.product_not_found"},
	{target: service.ErrProductInvalid, code: response.CodeBadRequest, key: "error.product_invalid"},
	{target: service.ErrInvalidAmount, code: response.CodeBadRequest, key: "error.invalid_amount"},
	{target: service.ErrQuantityOutOfRange, code: response.CodeBadRequest, key: "error.quantity_out_of_range"},
	{target: service.ErrUnitPayloadInvalid, code: response.CodeBadRequest, key: "error.unit_payload_invalid"},
}

// ListProducts 商品列表
func (h *Handler) ListProducts(c *gin.Context) {
	page, pageSize := handlershared.PageQuery(c)
	categoryID, _ := strconv.ParseUint(c.Query("category_id"), 10, 64)
	products, total, err := h.ProductService.ListAdmin(repository.ProductListFilter{
		Page:       page,
		PageSize:   pageSize,
		CategoryID: uint(categoryID),
		Search:     strings.TrimSpace(c.Query("search")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.product_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, products, response.BuildPagination(page, pageSize, total))
}

// CreateProduct 创建商品
func (h *Handler) CreateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_amount", nil)
		return
	}
	product, err := h.ProductService.Create(input)
	if err != nil {
		respondWithMappedError(c, err, productErrorRules, response.CodeInternal, "error.product_save_failed")
		return
	}
	response.Success(c, product)
}

// UpdateProduct 更新商品资料
func (h *Handler) UpdateProduct(c *gin.Context) {
	id, ok := handlershared.ParamUint(c, "id", "error.product_not_found")
	if !ok {
		return
	}
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_amount", nil)
		return
	}
	product, err := h.ProductService.Update(id, input)
	if err != nil {
		respondWithMappedError(c, err, productErrorRules, response.CodeInternal, "error.product_save_failed")
		return
	}
	response.Success(c, product)
}

// ImportUnits 单元入库，库存计数同步增加
func (h *Handler) ImportUnits(c *gin.Context) {
	id, ok := handlershared.ParamUint(c, "id", "error.product_not_found")
	if !ok {
		return
	}
	var req ImportUnitsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	count, err := h.UnitPool.Import(id, req.Units)
	if err != nil {
		respondWithMappedError(c, err, productErrorRules, response.CodeInternal, "error.unit_import_failed")
		return
	}
	response.Success(c, gin.H{"imported": count})
}

// ListUnits 单元列表
func (h *Handler) ListUnits(c *gin.Context) {
	id, ok := handlershared.ParamUint(c, "id", "error.product_not_found")
	if !ok {
		return
	}
	page, pageSize := handlershared.PageQuery(c)
	units, total, err := h.UnitPool.ListUnits(repository.ProductUnitListFilter{
		Page:       page,
		PageSize:   pageSize,
		ProductID:  id,
		OnlyUnsold: c.Query("unsold") == "true",
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.stock_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, units, response.BuildPagination(page, pageSize, total))
}

// ReleaseUnsold 删除全部未售单元并清空预留
func (h *Handler) ReleaseUnsold(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParamUint(c, "id", "error.product_not_found")
	if !ok {
		return
	}
	deleted, err := h.UnitPool.ReleaseUnsold(id)
	if err != nil {
		respondWithMappedError(c, err, productErrorRules, response.CodeInternal, "error.internal")
		return
	}
	handlershared.RequestLog(c).Infow("admin_units_released", "admin_id", adminID, "product_id", id, "deleted", deleted)
	response.Success(c, gin.H{"deleted": deleted})
}

// GetStock 库存统计
func (h *Handler) GetStock(c *gin.Context) {
	id, ok := handlershared.ParamUint(c, "id", "error.product_not_found")
	if !ok {
		return
	}
	stats, err := h.UnitPool.Stats(id)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			respondError(c, response.CodeNotFound, "error.product_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.stock_fetch_failed", err)
		return
	}
	response.Success(c, stats)
}

// RecomputeStock 按单元与预留重算库存计数
func (h *Handler) RecomputeStock(c *gin.Context) {
	id, ok := handlershared.ParamUint(c, "id", "error.product_not_found")
	if !ok {
		return
	}
	corrected, err := h.UnitPool.RecomputeStock(id)
	if err != nil {
		respondWithMappedError(c, err, productErrorRules, response.CodeInternal, "error.stock_fetch_failed")
		return
	}
	stats, err := h.UnitPool.Stats(id)
	if err != nil {
		respondError(c, response.CodeInternal, "error.stock_fetch_failed", err)
		return
	}
	response.Success(c, gin.H{"corrected": corrected, "stats": stats})
}

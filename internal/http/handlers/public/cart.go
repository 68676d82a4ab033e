package public

import (
	handlershared "github.com/unitshop/internal/http/handlers/shared"
	"github.com/unitshop/internal/http/response"

	"github.com/gin-gonic/gin"
)

// AddCartItemRequest 加入购物车
type AddCartItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required"`
}

// UpdateCartItemRequest 修改预留数量
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// GetCart 获取购物车
func (h *Handler) GetCart(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	items, err := h.CartService.ListByUser(uid)
	if err != nil {
		respondError(c, response.CodeInternal, "error.cart_fetch_failed", err)
		return
	}
	response.Success(c, gin.H{"items": items})
}

// AddCartItem 预留库存，同商品合并数量
func (h *Handler) AddCartItem(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	item, err := h.CartService.Reserve(uid, req.ProductID, req.Quantity)
	if err != nil {
		respondWithMappedError(c, err, settlementErrorRules, response.CodeInternal, "error.cart_update_failed")
		return
	}
	response.Success(c, item)
}

// UpdateCartItem 修改预留数量
func (h *Handler) UpdateCartItem(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParamUint(c, "id", "error.cart_item_not_found")
	if !ok {
		return
	}
	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	item, err := h.CartService.ChangeQuantity(uid, id, req.Quantity)
	if err != nil {
		respondWithMappedError(c, err, settlementErrorRules, response.CodeInternal, "error.cart_update_failed")
		return
	}
	response.Success(c, item)
}

// DeleteCartItem 释放一项预留
func (h *Handler) DeleteCartItem(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParamUint(c, "id", "error.cart_item_not_found")
	if !ok {
		return
	}
	if err := h.CartService.Release(uid, id); err != nil {
		respondWithMappedError(c, err, settlementErrorRules, response.CodeInternal, "error.cart_update_failed")
		return
	}
	response.Success(c, gin.H{"released": true})
}

// ClearCart 释放全部预留
func (h *Handler) ClearCart(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	released, err := h.CartService.ReleaseAll(uid)
	if err != nil {
		respondError(c, response.CodeInternal, "error.cart_update_failed", err)
		return
	}
	response.Success(c, gin.H{"released": released})
}

package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/wyfcoding/ecommerce/internal/catalog/domain"
	"github.com/wyfcoding/ecommerce/internal/cart/application"
	"github.com/wyfcoding/ecommerce/internal/cart/domain"
	"github.com/wyfcoding/ecommerce/internal/pricing"
	"github.com/wyfcoding/pkg/response"
)

// CartHandler HTTP 处理器
type CartHandler struct {
	app *application.CartApplicationService
}

// NewCartHandler 创建 HTTP 处理器实例
func NewCartHandler(app *application.CartApplicationService) *CartHandler {
	return &CartHandler{app: app}
}

// 注册路由。会话 ID 通过 X-Session-ID 头传递，登录用户额外带 X-User-ID。
func (h *CartHandler) RegisterRoutes(router *gin.RouterGroup) {
	cart := router.Group("/api/v1/cart")
	{
		cart.GET("", h.GetCart)
		cart.POST("/items", h.AddItem)
		cart.PUT("/items/:item_id", h.UpdateItem)
		cart.DELETE("/items/:item_id", h.RemoveItem)
		cart.DELETE("", h.ClearCart)
		cart.POST("/discount", h.ApplyDiscount)
		cart.DELETE("/discount", h.RemoveDiscount)
		cart.POST("/items/:item_id/save", h.SaveForLater)
		cart.GET("/saved", h.ListSavedItems)
		cart.POST("/saved/:saved_id/move", h.MoveToCart)
		cart.POST("/merge", h.MergeCarts)
		cart.GET("/validate", h.ValidateStock)
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrCartItemNotFound), errors.Is(err, domain.ErrSavedItemNotFound),
		errors.Is(err, catalogdomain.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUserRequired):
		return http.StatusUnauthorized
	case errors.Is(err, pricing.ErrInvalidDiscountCode), errors.Is(err, pricing.ErrMinSpendNotMet):
		return http.StatusBadRequest
	case errors.Is(err, catalogdomain.ErrInsufficientStock), errors.Is(err, catalogdomain.ErrProductUnavailable):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func sessionID(c *gin.Context) string {
	return c.GetHeader("X-Session-ID")
}

func userID(c *gin.Context) string {
	return c.GetHeader("X-User-ID")
}

// GetCart 获取当前购物车，不存在则创建
func (h *CartHandler) GetCart(c *gin.Context) {
	if sessionID(c) == "" && userID(c) == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "X-Session-ID or X-User-ID header required", "")
		return
	}
	cart, err := h.app.GetOrCreate(c.Request.Context(), sessionID(c), userID(c))
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, cart)
}

// AddItemRequest 加购请求
type AddItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

// AddItem 添加商品到购物车
func (h *CartHandler) AddItem(c *gin.Context) {
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	cart, err := h.app.AddItem(c.Request.Context(), sessionID(c), req.ProductID, req.Quantity, userID(c))
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, cart)
}

// UpdateItemRequest 修改数量请求，数量为 0 时移除该行
type UpdateItemRequest struct {
	Quantity int `json:"quantity" binding:"min=0"`
}

// UpdateItem 更新购物车行数量
func (h *CartHandler) UpdateItem(c *gin.Context) {
	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	cart, err := h.app.UpdateItem(c.Request.Context(), sessionID(c), c.Param("item_id"), req.Quantity, userID(c))
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, cart)
}

// RemoveItem 移除购物车行，幂等
func (h *CartHandler) RemoveItem(c *gin.Context) {
	cart, err := h.app.RemoveItem(c.Request.Context(), sessionID(c), c.Param("item_id"), userID(c))
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, cart)
}

// ClearCart 清空购物车
func (h *CartHandler) ClearCart(c *gin.Context) {
	cart, err := h.app.ClearCart(c.Request.Context(), sessionID(c), userID(c))
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, cart)
}

// ApplyDiscountRequest 应用折扣码请求
type ApplyDiscountRequest struct {
	Code string `json:"code" binding:"required"`
}

// ApplyDiscount 应用折扣码
func (h *CartHandler) ApplyDiscount(c *gin.Context) {
	var req ApplyDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	cart, err := h.app.ApplyDiscount(c.Request.Context(), sessionID(c), req.Code, userID(c))
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, cart)
}

// RemoveDiscount 移除折扣码
func (h *CartHandler) RemoveDiscount(c *gin.Context) {
	cart, err := h.app.RemoveDiscount(c.Request.Context(), sessionID(c), userID(c))
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, cart)
}

// SaveForLater 移入收藏，需登录
func (h *CartHandler) SaveForLater(c *gin.Context) {
	saved, err := h.app.SaveForLater(c.Request.Context(), sessionID(c), c.Param("item_id"), userID(c))
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, saved)
}

// ListSavedItems 收藏列表
func (h *CartHandler) ListSavedItems(c *gin.Context) {
	items, err := h.app.ListSavedItems(c.Request.Context(), userID(c))
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, items)
}

// MoveToCart 收藏移回购物车
func (h *CartHandler) MoveToCart(c *gin.Context) {
	cart, err := h.app.MoveToCart(c.Request.Context(), sessionID(c), c.Param("saved_id"), userID(c))
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, cart)
}

// MergeCartsRequest 合并游客购物车请求
type MergeCartsRequest struct {
	GuestSessionID string `json:"guest_session_id" binding:"required"`
}

// MergeCarts 登录后合并游客购物车
func (h *CartHandler) MergeCarts(c *gin.Context) {
	var req MergeCartsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	if userID(c) == "" {
		response.ErrorWithStatus(c, http.StatusUnauthorized, domain.ErrUserRequired.Error(), "")
		return
	}
	cart, err := h.app.MergeCarts(c.Request.Context(), req.GuestSessionID, userID(c))
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, cart)
}

// ValidateStock 结算前校验购物车各行库存
func (h *CartHandler) ValidateStock(c *gin.Context) {
	cart, err := h.app.GetOrCreate(c.Request.Context(), sessionID(c), userID(c))
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	issues, ok := h.app.ValidateStock(c.Request.Context(), cart)
	response.Success(c, gin.H{"valid": ok, "issues": issues})
}

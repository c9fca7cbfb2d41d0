package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/wyfcoding/ecommerce/internal/catalog/domain"
	"github.com/wyfcoding/ecommerce/internal/middleware"
	"github.com/wyfcoding/ecommerce/internal/order/application"
	"github.com/wyfcoding/ecommerce/internal/order/domain"
	"github.com/wyfcoding/ecommerce/internal/pricing"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/response"
)

// OrderHandler HTTP 处理器
type OrderHandler struct {
	app *application.OrderService
}

// NewOrderHandler 创建 HTTP 处理器实例
func NewOrderHandler(app *application.OrderService) *OrderHandler {
	return &OrderHandler{app: app}
}

// 注册路由
func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	orders := router.Group("/api/v1/orders")
	{
		orders.POST("", h.CreateOrder)
		orders.GET("", h.ListOrders)
		orders.GET("/:id", h.GetOrder)
		orders.PUT("/:id/status", h.UpdateStatus)
		orders.POST("/:id/cancel", h.CancelOrder)
		orders.POST("/:id/refund", h.RequestRefund)
		orders.POST("/:id/return", h.RequestReturn)
		orders.GET("/:id/returns", h.ListReturnRequests)
		orders.GET("/:id/tracking", h.GetOrderTracking)
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrReturnRequestNotFound),
		errors.Is(err, catalogdomain.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidStatusTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrEmptyOrder), errors.Is(err, pricing.ErrInvalidDiscountCode),
		errors.Is(err, pricing.ErrMinSpendNotMet):
		return http.StatusBadRequest
	case errors.Is(err, catalogdomain.ErrInsufficientStock), errors.Is(err, catalogdomain.ErrProductUnavailable):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// CreateOrderItemRequest 下单条目
type CreateOrderItemRequest struct {
	ProductID string  `json:"product_id" binding:"required"`
	Quantity  int     `json:"quantity" binding:"required,min=1"`
	UnitPrice float64 `json:"unit_price" binding:"required"`
}

// CreateOrderRequest 下单请求
type CreateOrderRequest struct {
	UserID          string                   `json:"user_id" binding:"required"`
	Items           []CreateOrderItemRequest `json:"items" binding:"required,dive"`
	ShippingAddress string                   `json:"shipping_address" binding:"required"`
	PaymentMethod   string                   `json:"payment_method"`
	DiscountCode    string                   `json:"discount_code"`
	Notes           string                   `json:"notes"`
}

// CreateOrder 创建订单
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	items := make([]application.OrderItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, application.OrderItemInput{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: decimal.NewFromFloat(it.UnitPrice),
		})
	}

	order, err := h.app.CreateOrder(c.Request.Context(), application.CreateOrderCommand{
		UserID:          req.UserID,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		DiscountCode:    req.DiscountCode,
		Notes:           req.Notes,
	})
	middleware.RecordOrderOperation("create", err == nil)
	if err != nil {
		logging.Error(c.Request.Context(), "Failed to create order", "user_id", req.UserID, "error", err)
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, order)
}

// GetOrder 获取订单详情
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.app.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, order)
}

// ListOrders 订单列表，支持按用户、状态、时间范围过滤和排序
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var query struct {
		UserID        string `form:"user_id"`
		Status        string `form:"status"`
		PaymentStatus string `form:"payment_status"`
		CreatedFrom   string `form:"created_from" time_format:"2006-01-02"`
		CreatedTo     string `form:"created_to" time_format:"2006-01-02"`
		SortBy        string `form:"sort_by"`
		SortDesc      bool   `form:"sort_desc,default=true"`
		Page          int    `form:"page,default=1"`
		Limit         int    `form:"limit,default=20"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	filter := domain.OrderListFilter{
		UserID:        query.UserID,
		Status:        domain.OrderStatus(query.Status),
		PaymentStatus: domain.PaymentStatus(query.PaymentStatus),
		SortBy:        query.SortBy,
		SortDesc:      query.SortDesc,
		Page:          query.Page,
		Limit:         query.Limit,
	}
	if query.CreatedFrom != "" {
		t, err := time.Parse("2006-01-02", query.CreatedFrom)
		if err != nil {
			response.ErrorWithStatus(c, http.StatusBadRequest, "invalid created_from", "")
			return
		}
		filter.CreatedFrom = &t
	}
	if query.CreatedTo != "" {
		t, err := time.Parse("2006-01-02", query.CreatedTo)
		if err != nil {
			response.ErrorWithStatus(c, http.StatusBadRequest, "invalid created_to", "")
			return
		}
		filter.CreatedTo = &t
	}

	page, err := h.app.ListOrders(c.Request.Context(), filter)
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, page)
}

// UpdateStatusRequest 更新状态请求
type UpdateStatusRequest struct {
	Status            string     `json:"status" binding:"required"`
	TrackingNumber    string     `json:"tracking_number"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
}

// UpdateStatus 推进订单状态
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	order, err := h.app.UpdateStatus(c.Request.Context(), application.UpdateStatusCommand{
		OrderID:           c.Param("id"),
		NewStatus:         domain.OrderStatus(req.Status),
		TrackingNumber:    req.TrackingNumber,
		EstimatedDelivery: req.EstimatedDelivery,
	})
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, order)
}

// CancelOrder 取消订单并回补库存
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	order, err := h.app.CancelOrder(c.Request.Context(), c.Param("id"))
	middleware.RecordOrderOperation("cancel", err == nil)
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, order)
}

// RefundItemRequest 部分退款条目
type RefundItemRequest struct {
	OrderItemID string `json:"order_item_id" binding:"required"`
	Quantity    int    `json:"quantity" binding:"required,min=1"`
}

// RequestRefundRequest 退款请求
type RequestRefundRequest struct {
	Amount *float64            `json:"amount"`
	Items  []RefundItemRequest `json:"items"`
	Reason string              `json:"reason" binding:"required"`
}

// RequestRefund 申请退款，仅限已送达订单
func (h *OrderHandler) RequestRefund(c *gin.Context) {
	var req RequestRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	cmd := application.RequestRefundCommand{
		OrderID: c.Param("id"),
		Reason:  req.Reason,
	}
	if req.Amount != nil {
		amount := decimal.NewFromFloat(*req.Amount)
		cmd.Amount = &amount
	}
	for _, it := range req.Items {
		cmd.Items = append(cmd.Items, application.RefundItemInput{
			OrderItemID: it.OrderItemID,
			Quantity:    it.Quantity,
		})
	}

	order, err := h.app.RequestRefund(c.Request.Context(), cmd)
	middleware.RecordOrderOperation("refund", err == nil)
	if err != nil {
		logging.Error(c.Request.Context(), "Refund request failed", "order_id", c.Param("id"), "error", err)
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, order)
}

// ReturnItemRequest 退货条目
type ReturnItemRequest struct {
	OrderItemID string `json:"order_item_id" binding:"required"`
	Quantity    int    `json:"quantity" binding:"required,min=1"`
	Reason      string `json:"reason"`
}

// RequestReturnRequest 退货请求
type RequestReturnRequest struct {
	Items []ReturnItemRequest `json:"items" binding:"required,dive"`
}

// RequestReturn 发起退货申请
func (h *OrderHandler) RequestReturn(c *gin.Context) {
	var req RequestReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	items := make([]application.ReturnItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, application.ReturnItemInput{
			OrderItemID: it.OrderItemID,
			Quantity:    it.Quantity,
			Reason:      it.Reason,
		})
	}

	request, err := h.app.RequestReturn(c.Request.Context(), c.Param("id"), items)
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, request)
}

// ListReturnRequests 查询订单的退货申请
func (h *OrderHandler) ListReturnRequests(c *gin.Context) {
	requests, err := h.app.ListReturnRequests(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, requests)
}

// GetOrderTracking 订单跟踪历史
func (h *OrderHandler) GetOrderTracking(c *gin.Context) {
	steps, err := h.app.GetOrderTracking(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.ErrorWithStatus(c, statusOf(err), err.Error(), "")
		return
	}
	response.Success(c, steps)
}

package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/ecommerce/internal/analytics/application"
	"github.com/wyfcoding/pkg/response"
)

// AnalyticsHandler 管理端统计 HTTP 处理器
type AnalyticsHandler struct {
	app *application.AnalyticsService
}

func NewAnalyticsHandler(app *application.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{app: app}
}

func (h *AnalyticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	admin := router.Group("/api/v1/admin")
	{
		admin.GET("/dashboard", h.GetDashboard)
		admin.GET("/products/top", h.GetTopProducts)
		admin.GET("/revenue", h.GetRevenue)
		admin.GET("/orders/recent", h.GetRecentOrders)
	}
}

// GetDashboard 管理端总览
func (h *AnalyticsHandler) GetDashboard(c *gin.Context) {
	stats, err := h.app.GetDashboard(c.Request.Context())
	if err != nil {
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	response.Success(c, stats)
}

// GetTopProducts 按销量排序的热销商品
func (h *AnalyticsHandler) GetTopProducts(c *gin.Context) {
	var query struct {
		Limit int `form:"limit,default=10"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	products, err := h.app.GetTopProducts(c.Request.Context(), query.Limit)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	response.Success(c, products)
}

// GetRecentOrders 最近创建的订单
func (h *AnalyticsHandler) GetRecentOrders(c *gin.Context) {
	var query struct {
		Limit int `form:"limit,default=20"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), "")
		return
	}
	orders, err := h.app.GetRecentOrders(c.Request.Context(), query.Limit)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	response.Success(c, orders)
}

// GetRevenue 区间营收，取消和已退款订单不计入
func (h *AnalyticsHandler) GetRevenue(c *gin.Context) {
	var from, to *time.Time
	if v := c.Query("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			response.ErrorWithStatus(c, http.StatusBadRequest, "invalid from", "")
			return
		}
		from = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			response.ErrorWithStatus(c, http.StatusBadRequest, "invalid to", "")
			return
		}
		to = &t
	}

	revenue, err := h.app.GetRevenue(c.Request.Context(), from, to)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), "")
		return
	}
	response.Success(c, gin.H{"revenue": revenue})
}

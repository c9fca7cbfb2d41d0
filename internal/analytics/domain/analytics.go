// Package domain 管理端分析服务的读模型
// 全部为订单/商品数据的派生视图，自身没有任何不变量。
package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// StatusCount 某一订单状态下的订单数
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// TopProduct 销量排行中的一项
type TopProduct struct {
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	SKU          string          `json:"sku"`
	QuantitySold int64           `json:"quantity_sold"`
	Revenue      decimal.Decimal `json:"revenue"`
}

// RecentOrder 最近订单列表中的一项
type RecentOrder struct {
	OrderNo   string          `json:"order_no"`
	UserID    string          `json:"user_id,omitempty"`
	Status    string          `json:"status"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
}

// DashboardStats 管理后台首页统计
type DashboardStats struct {
	TotalOrders       int64           `json:"total_orders"`
	OrdersByStatus    []StatusCount   `json:"orders_by_status"`
	Revenue           decimal.Decimal `json:"revenue"`
	PendingReturns    int64           `json:"pending_returns"`
	PublishedProducts int64           `json:"published_products"`
	LowStockProducts  int64           `json:"low_stock_products"`
}

// AnalyticsRepository 分析读模型仓储接口
type AnalyticsRepository interface {
	// 按状态统计订单数
	CountOrdersByStatus(ctx context.Context) ([]StatusCount, error)
	// 统计营收：未取消且未退款订单的总额之和
	Revenue(ctx context.Context, from, to *time.Time) (decimal.Decimal, error)
	// 按销量统计商品排行，取消/退款订单不计入
	TopProducts(ctx context.Context, limit int) ([]TopProduct, error)
	// 按状态统计商品数
	CountProductsByStatus(ctx context.Context, status string) (int64, error)
	// 统计库存低于阈值的已上架商品数
	CountLowStock(ctx context.Context, threshold int) (int64, error)
	// 统计待处理退货请求数
	CountPendingReturns(ctx context.Context) (int64, error)
	// 查询最近创建的订单，按创建时间倒序
	RecentOrders(ctx context.Context, limit int) ([]RecentOrder, error)
}

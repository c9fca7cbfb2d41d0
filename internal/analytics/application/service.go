// Package application 包含管理端分析服务的用例逻辑
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/ecommerce/internal/analytics/domain"
	"github.com/wyfcoding/pkg/logging"
)

// lowStockThreshold 低库存告警阈值
const lowStockThreshold = 5

// AnalyticsService 管理端分析应用服务
type AnalyticsService struct {
	repo domain.AnalyticsRepository
}

// NewAnalyticsService 创建分析应用服务实例
func NewAnalyticsService(repo domain.AnalyticsRepository) *AnalyticsService {
	return &AnalyticsService{repo: repo}
}

// GetDashboard 管理后台首页统计
func (s *AnalyticsService) GetDashboard(ctx context.Context) (*domain.DashboardStats, error) {
	byStatus, err := s.repo.CountOrdersByStatus(ctx)
	if err != nil {
		logging.Error(ctx, "Failed to count orders by status", "error", err)
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}
	var total int64
	for _, sc := range byStatus {
		total += sc.Count
	}

	revenue, err := s.repo.Revenue(ctx, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to compute revenue: %w", err)
	}
	pendingReturns, err := s.repo.CountPendingReturns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending returns: %w", err)
	}
	published, err := s.repo.CountProductsByStatus(ctx, "PUBLISHED")
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	lowStock, err := s.repo.CountLowStock(ctx, lowStockThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to count low stock products: %w", err)
	}

	return &domain.DashboardStats{
		TotalOrders:       total,
		OrdersByStatus:    byStatus,
		Revenue:           revenue,
		PendingReturns:    pendingReturns,
		PublishedProducts: published,
		LowStockProducts:  lowStock,
	}, nil
}

// GetTopProducts 商品销量排行
func (s *AnalyticsService) GetTopProducts(ctx context.Context, limit int) ([]domain.TopProduct, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.repo.TopProducts(ctx, limit)
}

// GetRecentOrders 最近创建的订单列表
func (s *AnalyticsService) GetRecentOrders(ctx context.Context, limit int) ([]domain.RecentOrder, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.RecentOrders(ctx, limit)
}

// GetRevenue 统计时间段内的营收
func (s *AnalyticsService) GetRevenue(ctx context.Context, from, to *time.Time) (decimal.Decimal, error) {
	return s.repo.Revenue(ctx, from, to)
}

package mysql

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/ecommerce/internal/analytics/domain"
	"gorm.io/gorm"
)

// excludedStatuses 不计入营收/销量的订单状态
var excludedStatuses = []string{"CANCELLED", "REFUNDED"}

type AnalyticsRepo struct {
	db *gorm.DB
}

func NewAnalyticsRepo(db *gorm.DB) domain.AnalyticsRepository {
	return &AnalyticsRepo{db: db}
}

func (r *AnalyticsRepo) CountOrdersByStatus(ctx context.Context) ([]domain.StatusCount, error) {
	var counts []domain.StatusCount
	err := r.db.WithContext(ctx).
		Table("orders").
		Select("status, COUNT(*) AS count").
		Where("deleted_at IS NULL").
		Group("status").
		Scan(&counts).Error
	return counts, err
}

func (r *AnalyticsRepo) Revenue(ctx context.Context, from, to *time.Time) (decimal.Decimal, error) {
	query := r.db.WithContext(ctx).
		Table("orders").
		Where("deleted_at IS NULL").
		Where("status NOT IN ?", excludedStatuses)
	if from != nil {
		query = query.Where("created_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("created_at <= ?", *to)
	}

	var result struct {
		Revenue decimal.Decimal
	}
	err := query.Select("COALESCE(SUM(total), 0) AS revenue").Scan(&result).Error
	return result.Revenue, err
}

func (r *AnalyticsRepo) TopProducts(ctx context.Context, limit int) ([]domain.TopProduct, error) {
	var products []domain.TopProduct
	err := r.db.WithContext(ctx).
		Table("order_items").
		Select("order_items.product_id, order_items.product_name, order_items.sku, "+
			"SUM(order_items.quantity) AS quantity_sold, SUM(order_items.subtotal) AS revenue").
		Joins("JOIN orders ON orders.id = order_items.order_ref").
		Where("orders.deleted_at IS NULL AND orders.status NOT IN ?", excludedStatuses).
		Group("order_items.product_id, order_items.product_name, order_items.sku").
		Order("quantity_sold DESC").
		Limit(limit).
		Scan(&products).Error
	return products, err
}

func (r *AnalyticsRepo) CountProductsByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("products").
		Where("deleted_at IS NULL AND status = ?", status).
		Count(&count).Error
	return count, err
}

func (r *AnalyticsRepo) CountLowStock(ctx context.Context, threshold int) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("products").
		Where("deleted_at IS NULL AND status = ? AND stock < ?", "PUBLISHED", threshold).
		Count(&count).Error
	return count, err
}

func (r *AnalyticsRepo) RecentOrders(ctx context.Context, limit int) ([]domain.RecentOrder, error) {
	var orders []domain.RecentOrder
	err := r.db.WithContext(ctx).
		Table("orders").
		Select("order_no, user_id, status, total, created_at").
		Where("deleted_at IS NULL").
		Order("created_at DESC").
		Limit(limit).
		Scan(&orders).Error
	return orders, err
}

func (r *AnalyticsRepo) CountPendingReturns(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("return_requests").
		Where("deleted_at IS NULL AND status = ?", "PENDING").
		Count(&count).Error
	return count, err
}

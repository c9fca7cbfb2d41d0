package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/wyfcoding/ecommerce/internal/order/domain"
	"gorm.io/gorm"
)

// sortableColumns 允许排序的列白名单，防止拼接任意表达式
var sortableColumns = map[string]bool{
	"created_at":     true,
	"updated_at":     true,
	"order_no":       true,
	"status":         true,
	"payment_status": true,
	"subtotal":       true,
	"total":          true,
	"user_id":        true,
}

type OrderRepo struct {
	db *gorm.DB
}

func NewOrderRepo(db *gorm.DB) domain.OrderRepository {
	return &OrderRepo{db: db}
}

// conn 优先使用 context 中携带的事务连接
func (r *OrderRepo) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value("tx").(*gorm.DB); ok {
		return tx
	}
	return r.db.WithContext(ctx)
}

func (r *OrderRepo) Save(ctx context.Context, order *domain.Order) error {
	return r.conn(ctx).Session(&gorm.Session{FullSaveAssociations: true}).Save(order).Error
}

func (r *OrderRepo) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	var order domain.Order
	err := r.conn(ctx).Preload("Items").Where("order_id = ?", orderID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepo) GetByOrderNo(ctx context.Context, orderNo string) (*domain.Order, error) {
	var order domain.Order
	err := r.conn(ctx).Preload("Items").Where("order_no = ?", orderNo).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepo) List(ctx context.Context, filter domain.OrderListFilter) ([]*domain.Order, int64, error) {
	query := r.conn(ctx).Model(&domain.Order{})
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PaymentStatus != "" {
		query = query.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy := filter.SortBy
	if !sortableColumns[sortBy] {
		sortBy = "created_at"
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}
	// 主键作第二排序键，保证同值时按写入顺序稳定排列
	orderClause := fmt.Sprintf("%s %s, id ASC", sortBy, direction)

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	var orders []*domain.Order
	err := query.Preload("Items").
		Order(orderClause).
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&orders).Error
	return orders, total, err
}

func (r *OrderRepo) WithTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := context.WithValue(ctx, "tx", tx)
		return fn(txCtx)
	})
}

type ReturnRequestRepo struct {
	db *gorm.DB
}

func NewReturnRequestRepo(db *gorm.DB) domain.ReturnRequestRepository {
	return &ReturnRequestRepo{db: db}
}

func (r *ReturnRequestRepo) Save(ctx context.Context, request *domain.ReturnRequest) error {
	return r.db.WithContext(ctx).Session(&gorm.Session{FullSaveAssociations: true}).Save(request).Error
}

func (r *ReturnRequestRepo) Get(ctx context.Context, returnID string) (*domain.ReturnRequest, error) {
	var request domain.ReturnRequest
	err := r.db.WithContext(ctx).Preload("Items").Where("return_id = ?", returnID).First(&request).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrReturnRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *ReturnRequestRepo) ListByOrder(ctx context.Context, orderID string) ([]*domain.ReturnRequest, error) {
	var requests []*domain.ReturnRequest
	err := r.db.WithContext(ctx).Preload("Items").
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&requests).Error
	return requests, err
}

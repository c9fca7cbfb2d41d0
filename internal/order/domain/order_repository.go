package domain

import (
	"context"
	"time"
)

// OrderListFilter 订单列表查询条件
// SortBy 取订单字段名（列名），倒序由 SortDesc 控制；
// 排序必须稳定，同值按写入顺序排列。
type OrderListFilter struct {
	UserID        string
	Status        OrderStatus
	PaymentStatus PaymentStatus
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	SortBy        string
	SortDesc      bool
	Page          int
	Limit         int
}

// OrderRepository 订单仓储接口
type OrderRepository interface {
	// 保存订单及其行项目
	Save(ctx context.Context, order *Order) error
	// 按业务 ID 获取订单
	Get(ctx context.Context, orderID string) (*Order, error)
	// 按订单号获取订单，不存在时返回 (nil, nil)，生成订单号时查重用
	GetByOrderNo(ctx context.Context, orderNo string) (*Order, error)
	// 条件查询订单列表，返回当前页数据和总条数
	List(ctx context.Context, filter OrderListFilter) ([]*Order, int64, error)
	// 在事务中执行 fn，事务通过 context 向下传递
	WithTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// ReturnRequestRepository 退货请求仓储接口
type ReturnRequestRepository interface {
	Save(ctx context.Context, request *ReturnRequest) error
	Get(ctx context.Context, returnID string) (*ReturnRequest, error)
	ListByOrder(ctx context.Context, orderID string) ([]*ReturnRequest, error)
}

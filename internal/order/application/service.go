package application

import (
	"context"

	catalogdomain "github.com/wyfcoding/ecommerce/internal/catalog/domain"
	"github.com/wyfcoding/ecommerce/internal/order/domain"
	"github.com/wyfcoding/ecommerce/internal/pricing"
)

// OrderService 订单服务门面，整合命令和查询服务
type OrderService struct {
	Command *OrderCommandService
	Query   *OrderQueryService
}

// NewOrderService 构造函数
func NewOrderService(
	orders domain.OrderRepository,
	returns domain.ReturnRequestRepository,
	products catalogdomain.ProductRepository,
	discounts pricing.DiscountPolicy,
	gateway domain.PaymentGateway,
	publisher domain.EventPublisher,
) *OrderService {
	return &OrderService{
		Command: NewOrderCommandService(orders, returns, products, discounts, gateway, publisher),
		Query:   NewOrderQueryService(orders, returns),
	}
}

// --- Command (Writes) ---

// CreateOrder 创建订单
func (s *OrderService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*domain.Order, error) {
	return s.Command.CreateOrder(ctx, cmd)
}

// UpdateStatus 更新订单状态
func (s *OrderService) UpdateStatus(ctx context.Context, cmd UpdateStatusCommand) (*domain.Order, error) {
	return s.Command.UpdateStatus(ctx, cmd)
}

// CancelOrder 取消订单
func (s *OrderService) CancelOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.Command.CancelOrder(ctx, orderID)
}

// RequestRefund 申请退款
func (s *OrderService) RequestRefund(ctx context.Context, cmd RequestRefundCommand) (*domain.Order, error) {
	return s.Command.RequestRefund(ctx, cmd)
}

// RequestReturn 申请退货
func (s *OrderService) RequestReturn(ctx context.Context, orderID string, items []ReturnItemInput) (*domain.ReturnRequest, error) {
	return s.Command.RequestReturn(ctx, orderID, items)
}

// --- Query (Reads) ---

// GetOrder 获取订单详情
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.Query.GetOrder(ctx, orderID)
}

// ListOrders 条件分页查询订单
func (s *OrderService) ListOrders(ctx context.Context, filter domain.OrderListFilter) (*OrderPage, error) {
	return s.Query.ListOrders(ctx, filter)
}

// GetOrderTracking 获取订单跟踪历史
func (s *OrderService) GetOrderTracking(ctx context.Context, orderID string) ([]TrackingStep, error) {
	return s.Query.GetOrderTracking(ctx, orderID)
}

// ListReturnRequests 查询订单的退货请求
func (s *OrderService) ListReturnRequests(ctx context.Context, orderID string) ([]*domain.ReturnRequest, error) {
	return s.Query.ListReturnRequests(ctx, orderID)
}

package application

import (
	"context"
	"fmt"

	"github.com/wyfcoding/ecommerce/internal/order/domain"
)

// OrderQueryService 订单查询服务
type OrderQueryService struct {
	orders  domain.OrderRepository
	returns domain.ReturnRequestRepository
}

// NewOrderQueryService 创建订单查询服务实例
func NewOrderQueryService(orders domain.OrderRepository, returns domain.ReturnRequestRepository) *OrderQueryService {
	return &OrderQueryService{orders: orders, returns: returns}
}

// GetOrder 获取订单详情
func (s *OrderQueryService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.orders.Get(ctx, orderID)
}

// ListOrders 条件分页查询订单
func (s *OrderQueryService) ListOrders(ctx context.Context, filter domain.OrderListFilter) (*OrderPage, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	pageCount := int(total) / filter.Limit
	if int(total)%filter.Limit != 0 {
		pageCount++
	}
	return &OrderPage{
		Orders:    orders,
		Total:     total,
		Page:      filter.Page,
		PageCount: pageCount,
	}, nil
}

// ListReturnRequests 查询订单的退货请求
func (s *OrderQueryService) ListReturnRequests(ctx context.Context, orderID string) ([]*domain.ReturnRequest, error) {
	return s.returns.ListByOrder(ctx, orderID)
}

// trackingOrder 状态在跟踪历史中的展示顺序
var trackingOrder = []domain.OrderStatus{
	domain.OrderStatusPending,
	domain.OrderStatusConfirmed,
	domain.OrderStatusProcessing,
	domain.OrderStatusShipped,
	domain.OrderStatusDelivered,
}

var trackingDescriptions = map[domain.OrderStatus]string{
	domain.OrderStatusPending:    "Order placed",
	domain.OrderStatusConfirmed:  "Order confirmed",
	domain.OrderStatusProcessing: "Order is being prepared",
	domain.OrderStatusShipped:    "Order shipped",
	domain.OrderStatusDelivered:  "Order delivered",
	domain.OrderStatusCancelled:  "Order cancelled",
	domain.OrderStatusRefunded:   "Order refunded",
}

// GetOrderTracking 生成订单跟踪历史
// 纯投影：按当前状态推导已经经过的节点，时间戳取订单上已记录的字段，
// 中间节点没有独立时间戳时退化为最近一次更新时间。
func (s *OrderQueryService) GetOrderTracking(ctx context.Context, orderID string) ([]TrackingStep, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	steps := []TrackingStep{{
		Status:      domain.OrderStatusPending,
		Timestamp:   order.CreatedAt,
		Description: trackingDescriptions[domain.OrderStatusPending],
	}}

	switch order.Status {
	case domain.OrderStatusCancelled:
		timestamp := order.UpdatedAt
		if order.CancelledAt != nil {
			timestamp = *order.CancelledAt
		}
		steps = append(steps, TrackingStep{
			Status:      domain.OrderStatusCancelled,
			Timestamp:   timestamp,
			Description: trackingDescriptions[domain.OrderStatusCancelled],
		})
		return steps, nil
	case domain.OrderStatusRefunded:
		// 退款一定经过送达
		for _, status := range trackingOrder[1:] {
			steps = append(steps, s.step(order, status))
		}
		steps = append(steps, TrackingStep{
			Status:      domain.OrderStatusRefunded,
			Timestamp:   order.UpdatedAt,
			Description: trackingDescriptions[domain.OrderStatusRefunded],
		})
		return steps, nil
	}

	rank := statusRank(order.Status)
	for i := 1; i <= rank; i++ {
		steps = append(steps, s.step(order, trackingOrder[i]))
	}
	return steps, nil
}

// statusRank 状态在正常流程中的位置，-1 表示不在主干上
func statusRank(status domain.OrderStatus) int {
	for i, s := range trackingOrder {
		if s == status {
			return i
		}
	}
	return -1
}

func (s *OrderQueryService) step(order *domain.Order, status domain.OrderStatus) TrackingStep {
	step := TrackingStep{
		Status:      status,
		Timestamp:   order.UpdatedAt,
		Description: trackingDescriptions[status],
	}
	if status == domain.OrderStatusDelivered && order.DeliveredAt != nil {
		step.Timestamp = *order.DeliveredAt
	}
	if status == domain.OrderStatusShipped && order.TrackingNumber != "" {
		step.Description = fmt.Sprintf("%s (tracking %s)", step.Description, order.TrackingNumber)
	}
	return step
}

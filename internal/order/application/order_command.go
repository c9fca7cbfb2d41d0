package application

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/wyfcoding/ecommerce/internal/catalog/domain"
	"github.com/wyfcoding/ecommerce/internal/order/domain"
	"github.com/wyfcoding/ecommerce/internal/pricing"
	"github.com/wyfcoding/pkg/idgen"
	"github.com/wyfcoding/pkg/logging"
)

// orderNoMaxAttempts 随机订单号的查重重试次数，超过后退化为雪花 ID 后缀
const orderNoMaxAttempts = 5

// OrderCommandService 订单命令服务
// 所有库存变更（下单扣减、取消/退款回补）都和订单写入在同一事务中提交。
type OrderCommandService struct {
	orders    domain.OrderRepository
	returns   domain.ReturnRequestRepository
	products  catalogdomain.ProductRepository
	discounts pricing.DiscountPolicy
	gateway   domain.PaymentGateway
	publisher domain.EventPublisher
}

// NewOrderCommandService 创建订单命令服务实例
func NewOrderCommandService(
	orders domain.OrderRepository,
	returns domain.ReturnRequestRepository,
	products catalogdomain.ProductRepository,
	discounts pricing.DiscountPolicy,
	gateway domain.PaymentGateway,
	publisher domain.EventPublisher,
) *OrderCommandService {
	return &OrderCommandService{
		orders:    orders,
		returns:   returns,
		products:  products,
		discounts: discounts,
		gateway:   gateway,
		publisher: publisher,
	}
}

// generateOrderNo 生成人类可读订单号并查重
func (s *OrderCommandService) generateOrderNo(ctx context.Context, now time.Time) (string, error) {
	for range orderNoMaxAttempts {
		orderNo := fmt.Sprintf("ORD-%s-%04d", now.Format("20060102"), rand.Intn(10000))
		existing, err := s.orders.GetByOrderNo(ctx, orderNo)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return orderNo, nil
		}
	}
	return fmt.Sprintf("ORD-%s-%d", now.Format("20060102"), idgen.GenID()), nil
}

// CreateOrder 创建订单
// 两阶段：先校验全部条目（存在、已上架、库存足够），任何一条不过整单失败、
// 不触碰任何库存；全部通过后在一个事务中扣减所有库存并写入订单。
func (s *OrderCommandService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*domain.Order, error) {
	if len(cmd.Items) == 0 {
		return nil, domain.ErrEmptyOrder
	}

	subtotal := decimal.Zero
	items := make([]domain.OrderItem, 0, len(cmd.Items))
	for _, input := range cmd.Items {
		product, err := s.products.GetByID(ctx, input.ProductID)
		if err != nil {
			return nil, err
		}
		if err := product.CheckAvailability(input.Quantity); err != nil {
			return nil, err
		}

		lineSubtotal := pricing.ItemSubtotal(input.UnitPrice, int64(input.Quantity), decimal.Zero)
		subtotal = subtotal.Add(lineSubtotal)
		items = append(items, domain.OrderItem{
			ItemID:      uuid.New().String(),
			ProductID:   product.ProductID,
			ProductName: product.Name,
			SKU:         product.SKU,
			Quantity:    input.Quantity,
			UnitPrice:   input.UnitPrice,
			Subtotal:    lineSubtotal,
		})
	}
	subtotal = pricing.Round2(subtotal)

	discount := decimal.Zero
	if cmd.DiscountCode != "" {
		var err error
		discount, err = pricing.ValidateCode(s.discounts, cmd.DiscountCode, subtotal)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now()
	orderNo, err := s.generateOrderNo(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to generate order number: %w", err)
	}

	tax := pricing.Tax(subtotal, pricing.DefaultTaxRate)
	shipping := pricing.Shipping(subtotal)
	order := &domain.Order{
		OrderID:         uuid.New().String(),
		OrderNo:         orderNo,
		UserID:          cmd.UserID,
		Items:           items,
		Subtotal:        subtotal,
		Discount:        discount,
		Tax:             tax,
		ShippingFee:     shipping,
		Total:           pricing.Total(subtotal, discount, tax, shipping),
		Currency:        "USD",
		DiscountCode:    cmd.DiscountCode,
		Status:          domain.OrderStatusPending,
		PaymentStatus:   domain.PaymentStatusPending,
		PaymentMethod:   cmd.PaymentMethod,
		ShippingAddress: cmd.ShippingAddress,
		Notes:           cmd.Notes,
	}

	err = s.orders.WithTx(ctx, func(txCtx context.Context) error {
		for i := range order.Items {
			if err := s.products.DecrementStock(txCtx, order.Items[i].ProductID, order.Items[i].Quantity); err != nil {
				return err
			}
		}
		return s.orders.Save(txCtx, order)
	})
	if err != nil {
		return nil, err
	}

	logging.Info(ctx, "Order created",
		"order_id", order.OrderID,
		"order_no", order.OrderNo,
		"user_id", order.UserID,
		"total", order.Total,
	)
	s.publish(ctx, domain.OrderCreatedEventType, order.OrderID, domain.OrderCreatedEvent{
		OrderID:   order.OrderID,
		OrderNo:   order.OrderNo,
		UserID:    order.UserID,
		Total:     order.Total.String(),
		Currency:  order.Currency,
		ItemCount: len(order.Items),
		Timestamp: now,
	})
	return order, nil
}

// UpdateStatus 更新订单状态
// 迁移到 CANCELLED 时回补每一行的库存并记录取消时间；
// 迁移到 DELIVERED 时记录送达时间；SHIPPED 附带物流单号和预计送达。
func (s *OrderCommandService) UpdateStatus(ctx context.Context, cmd UpdateStatusCommand) (*domain.Order, error) {
	order, err := s.orders.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}

	oldStatus := order.Status
	if err := order.TransitionTo(cmd.NewStatus); err != nil {
		return nil, err
	}

	now := time.Now()
	restocked := 0
	switch cmd.NewStatus {
	case domain.OrderStatusCancelled:
		order.CancelledAt = &now
	case domain.OrderStatusDelivered:
		order.DeliveredAt = &now
	case domain.OrderStatusShipped:
		if cmd.TrackingNumber != "" {
			order.TrackingNumber = cmd.TrackingNumber
		}
		if cmd.EstimatedDelivery != nil {
			order.EstimatedDelivery = cmd.EstimatedDelivery
		}
	}

	err = s.orders.WithTx(ctx, func(txCtx context.Context) error {
		if cmd.NewStatus == domain.OrderStatusCancelled {
			for i := range order.Items {
				if err := s.products.IncrementStock(txCtx, order.Items[i].ProductID, order.Items[i].Quantity); err != nil {
					return err
				}
				restocked += order.Items[i].Quantity
			}
		}
		return s.orders.Save(txCtx, order)
	})
	if err != nil {
		return nil, err
	}

	logging.Info(ctx, "Order status updated",
		"order_id", order.OrderID,
		"old_status", oldStatus,
		"new_status", order.Status,
	)
	s.publish(ctx, domain.OrderStatusChangedEventType, order.OrderID, domain.OrderStatusChangedEvent{
		OrderID:   order.OrderID,
		OrderNo:   order.OrderNo,
		UserID:    order.UserID,
		OldStatus: oldStatus,
		NewStatus: order.Status,
		Timestamp: now,
	})
	if cmd.NewStatus == domain.OrderStatusCancelled {
		s.publish(ctx, domain.OrderCancelledEventType, order.OrderID, domain.OrderCancelledEvent{
			OrderID:      order.OrderID,
			OrderNo:      order.OrderNo,
			UserID:       order.UserID,
			RestockedQty: restocked,
			Timestamp:    now,
		})
	}
	return order, nil
}

// CancelOrder 取消订单，仅送达前允许
func (s *OrderCommandService) CancelOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.UpdateStatus(ctx, UpdateStatusCommand{OrderID: orderID, NewStatus: domain.OrderStatusCancelled})
}

// RequestRefund 对已送达订单发起退款
// 先调用支付网关，网关失败时订单状态保持不变；
// 整单退款（未指定条目或条目覆盖全部行）时回补全部库存。
func (s *OrderCommandService) RequestRefund(ctx context.Context, cmd RequestRefundCommand) (*domain.Order, error) {
	order, err := s.orders.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if !order.IsDelivered() {
		return nil, fmt.Errorf("%w: only delivered orders can be refunded (current status %s)",
			domain.ErrInvalidStatusTransition, order.Status)
	}

	amount := order.Total
	if cmd.Amount != nil {
		amount = *cmd.Amount
	}
	refund := domain.RefundRequest{
		TransactionID: order.PaymentTransactionID,
		OrderID:       order.OrderID,
		Amount:        amount,
		Reason:        cmd.Reason,
	}
	if err := s.gateway.ProcessRefund(ctx, refund); err != nil {
		return nil, fmt.Errorf("payment gateway refund failed: %w", err)
	}

	if err := order.TransitionTo(domain.OrderStatusRefunded); err != nil {
		return nil, err
	}
	order.PaymentStatus = domain.PaymentStatusRefunded

	fullRefund := len(cmd.Items) == 0 || len(cmd.Items) == len(order.Items)
	err = s.orders.WithTx(ctx, func(txCtx context.Context) error {
		if fullRefund {
			for i := range order.Items {
				if err := s.products.IncrementStock(txCtx, order.Items[i].ProductID, order.Items[i].Quantity); err != nil {
					return err
				}
			}
		}
		return s.orders.Save(txCtx, order)
	})
	if err != nil {
		return nil, err
	}

	logging.Info(ctx, "Order refunded",
		"order_id", order.OrderID,
		"amount", amount,
		"full_refund", fullRefund,
	)
	s.publish(ctx, domain.OrderRefundedEventType, order.OrderID, domain.OrderRefundedEvent{
		OrderID:    order.OrderID,
		OrderNo:    order.OrderNo,
		UserID:     order.UserID,
		Amount:     amount.String(),
		FullRefund: fullRefund,
		Timestamp:  time.Now(),
	})
	return order, nil
}

// RequestReturn 对已送达订单创建退货请求
// 只创建 PENDING 请求，不动库存；审批与重新入库是独立流程。
func (s *OrderCommandService) RequestReturn(ctx context.Context, orderID string, items []ReturnItemInput) (*domain.ReturnRequest, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsDelivered() {
		return nil, fmt.Errorf("%w: only delivered orders can be returned (current status %s)",
			domain.ErrInvalidStatusTransition, order.Status)
	}

	request := &domain.ReturnRequest{
		ReturnID: uuid.New().String(),
		OrderID:  order.OrderID,
		Status:   domain.ReturnStatusPending,
	}
	for _, input := range items {
		line := order.FindItem(input.OrderItemID)
		if line == nil {
			return nil, fmt.Errorf("order item %s not found in order %s", input.OrderItemID, order.OrderID)
		}
		if input.Quantity <= 0 || input.Quantity > line.Quantity {
			return nil, fmt.Errorf("invalid return quantity %d for order item %s", input.Quantity, input.OrderItemID)
		}
		request.Items = append(request.Items, domain.ReturnItem{
			OrderItemID: input.OrderItemID,
			Quantity:    input.Quantity,
			Reason:      input.Reason,
		})
	}
	if err := s.returns.Save(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to save return request: %w", err)
	}

	logging.Info(ctx, "Return requested", "order_id", order.OrderID, "return_id", request.ReturnID)
	return request, nil
}

// publish 事件发布失败只记录日志，绝不影响订单操作本身
func (s *OrderCommandService) publish(ctx context.Context, topic, key string, event any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, topic, key, event); err != nil {
		logging.Warn(ctx, "Failed to publish order event", "topic", topic, "key", key, "error", err)
	}
}

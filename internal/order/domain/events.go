package domain

import "time"

const (
	OrderCreatedEventType       = "order.created"
	OrderStatusChangedEventType = "order.status_changed"
	OrderCancelledEventType     = "order.cancelled"
	OrderRefundedEventType      = "order.refunded"
)

// OrderCreatedEvent 订单创建事件，通知服务据此发送下单确认
type OrderCreatedEvent struct {
	OrderID   string    `json:"order_id"`
	OrderNo   string    `json:"order_no"`
	UserID    string    `json:"user_id"`
	Total     string    `json:"total"`
	Currency  string    `json:"currency"`
	ItemCount int       `json:"item_count"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderStatusChangedEvent 订单状态变更事件
type OrderStatusChangedEvent struct {
	OrderID   string      `json:"order_id"`
	OrderNo   string      `json:"order_no"`
	UserID    string      `json:"user_id"`
	OldStatus OrderStatus `json:"old_status"`
	NewStatus OrderStatus `json:"new_status"`
	Timestamp time.Time   `json:"timestamp"`
}

// OrderCancelledEvent 订单取消事件
type OrderCancelledEvent struct {
	OrderID       string    `json:"order_id"`
	OrderNo       string    `json:"order_no"`
	UserID        string    `json:"user_id"`
	RestockedQty  int       `json:"restocked_qty"`
	Timestamp     time.Time `json:"timestamp"`
}

// OrderRefundedEvent 订单退款事件
type OrderRefundedEvent struct {
	OrderID    string    `json:"order_id"`
	OrderNo    string    `json:"order_no"`
	UserID     string    `json:"user_id"`
	Amount     string    `json:"amount"`
	FullRefund bool      `json:"full_refund"`
	Timestamp  time.Time `json:"timestamp"`
}

package application

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/ecommerce/internal/order/domain"
)

// OrderItemInput 创建订单时的单个条目
// 单价由调用方（结算层）提供，创建订单时不重新取价。
type OrderItemInput struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// CreateOrderCommand 创建订单命令
type CreateOrderCommand struct {
	UserID          string
	Items           []OrderItemInput
	ShippingAddress string
	PaymentMethod   string
	DiscountCode    string
	Notes           string
}

// UpdateStatusCommand 更新订单状态命令
type UpdateStatusCommand struct {
	OrderID           string
	NewStatus         domain.OrderStatus
	TrackingNumber    string
	EstimatedDelivery *time.Time
}

// RefundItemInput 部分退款时的条目
type RefundItemInput struct {
	OrderItemID string
	Quantity    int
}

// RequestRefundCommand 退款命令
// Amount 为 nil 时按订单总额全额退款；Items 为空视为整单退款。
type RequestRefundCommand struct {
	OrderID string
	Amount  *decimal.Decimal
	Items   []RefundItemInput
	Reason  string
}

// ReturnItemInput 退货请求中的条目
type ReturnItemInput struct {
	OrderItemID string
	Quantity    int
	Reason      string
}

// OrderPage 分页查询结果
type OrderPage struct {
	Orders    []*domain.Order `json:"orders"`
	Total     int64           `json:"total"`
	Page      int             `json:"page"`
	PageCount int             `json:"page_count"`
}

// TrackingStep 订单跟踪历史中的一步
// 纯投影：由订单当前状态和已记录的时间戳推导，不落库。
type TrackingStep struct {
	Status      domain.OrderStatus `json:"status"`
	Timestamp   time.Time          `json:"timestamp"`
	Description string             `json:"description"`
}

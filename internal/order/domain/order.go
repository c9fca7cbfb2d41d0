// Package domain 包含订单服务的领域模型
package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrEmptyOrder              = errors.New("order must contain at least one item")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	ErrReturnRequestNotFound   = errors.New("return request not found")
)

// OrderStatus 订单状态
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"    // 已创建，待确认
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"  // 已确认
	OrderStatusProcessing OrderStatus = "PROCESSING" // 备货中
	OrderStatusShipped    OrderStatus = "SHIPPED"    // 已发货
	OrderStatusDelivered  OrderStatus = "DELIVERED"  // 已送达
	OrderStatusCancelled  OrderStatus = "CANCELLED"  // 已取消，库存已回补
	OrderStatusRefunded   OrderStatus = "REFUNDED"   // 已退款
)

// PaymentStatus 支付状态
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "PENDING"
	PaymentStatusProcessing PaymentStatus = "PROCESSING"
	PaymentStatusCompleted  PaymentStatus = "COMPLETED"
	PaymentStatusFailed     PaymentStatus = "FAILED"
	PaymentStatusRefunded   PaymentStatus = "REFUNDED"
)

// statusTransitions 订单状态机的合法迁移表
var statusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered:  {OrderStatusRefunded},
	OrderStatusCancelled:  {},
	OrderStatusRefunded:   {},
}

// Order 订单实体
// 创建后行项目和金额不可变，只有状态、支付状态和物流字段会更新；
// 订单是财务记录，正常流程中永不物理删除，取消只是一次状态迁移。
type Order struct {
	gorm.Model
	// OrderID 订单业务 ID
	OrderID string `gorm:"column:order_id;type:varchar(36);uniqueIndex;not null" json:"order_id"`
	// OrderNo 人类可读订单号，形如 ORD-20260831-1024
	OrderNo string `gorm:"column:order_no;type:varchar(32);uniqueIndex;not null" json:"order_no"`
	// UserID 下单用户，游客单为空
	UserID string `gorm:"column:user_id;type:varchar(36);index" json:"user_id"`
	// Items 订单行项目快照
	Items []OrderItem `gorm:"foreignKey:OrderRef;references:ID" json:"items"`
	// Subtotal 商品小计
	Subtotal decimal.Decimal `gorm:"column:subtotal;type:decimal(20,8);not null" json:"subtotal"`
	// Discount 折扣金额
	Discount decimal.Decimal `gorm:"column:discount;type:decimal(20,8);not null;default:0" json:"discount"`
	// Tax 税额
	Tax decimal.Decimal `gorm:"column:tax;type:decimal(20,8);not null" json:"tax"`
	// ShippingFee 运费
	ShippingFee decimal.Decimal `gorm:"column:shipping_fee;type:decimal(20,8);not null" json:"shipping_fee"`
	// Total 应付总额
	Total decimal.Decimal `gorm:"column:total;type:decimal(20,8);not null" json:"total"`
	// Currency 币种
	Currency string `gorm:"column:currency;type:varchar(3);not null;default:'USD'" json:"currency"`
	// DiscountCode 下单时使用的折扣码
	DiscountCode string `gorm:"column:discount_code;type:varchar(32)" json:"discount_code"`
	// Status 订单状态
	Status OrderStatus `gorm:"column:status;type:varchar(20);index;not null" json:"status"`
	// PaymentStatus 支付状态
	PaymentStatus PaymentStatus `gorm:"column:payment_status;type:varchar(20);index;not null" json:"payment_status"`
	// PaymentMethod 支付方式
	PaymentMethod string `gorm:"column:payment_method;type:varchar(32);not null" json:"payment_method"`
	// PaymentTransactionID 支付网关交易号
	PaymentTransactionID string `gorm:"column:payment_transaction_id;type:varchar(64)" json:"payment_transaction_id"`
	// ShippingAddress 收货地址
	ShippingAddress string `gorm:"column:shipping_address;type:varchar(512);not null" json:"shipping_address"`
	// TrackingNumber 物流单号
	TrackingNumber string `gorm:"column:tracking_number;type:varchar(64)" json:"tracking_number"`
	// EstimatedDelivery 预计送达时间
	EstimatedDelivery *time.Time `gorm:"column:estimated_delivery" json:"estimated_delivery"`
	// Notes 备注
	Notes string `gorm:"column:notes;type:varchar(512)" json:"notes"`
	// CancelledAt 取消时间
	CancelledAt *time.Time `gorm:"column:cancelled_at" json:"cancelled_at"`
	// DeliveredAt 送达时间
	DeliveredAt *time.Time `gorm:"column:delivered_at" json:"delivered_at"`
}

func (Order) TableName() string { return "orders" }

// OrderItem 订单行项目
// 商品名称/SKU/单价均为下单时的不可变快照，商品之后的编辑或删除不影响订单；
// 作为财务记录永不删除。
type OrderItem struct {
	gorm.Model
	OrderRef uint `gorm:"column:order_ref;index;not null" json:"-"`
	// ItemID 行项目业务 ID
	ItemID string `gorm:"column:item_id;type:varchar(36);uniqueIndex;not null" json:"item_id"`
	// ProductID 商品 ID，仅作引用，不保证商品仍存在
	ProductID string `gorm:"column:product_id;type:varchar(36);not null" json:"product_id"`
	// ProductName 商品名称快照
	ProductName string `gorm:"column:product_name;type:varchar(255);not null" json:"product_name"`
	// SKU 快照
	SKU string `gorm:"column:sku;type:varchar(64);not null" json:"sku"`
	// Quantity 数量
	Quantity int `gorm:"column:quantity;not null" json:"quantity"`
	// UnitPrice 下单时单价
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:decimal(20,8);not null" json:"unit_price"`
	// Subtotal 行小计
	Subtotal decimal.Decimal `gorm:"column:subtotal;type:decimal(20,8);not null" json:"subtotal"`
}

func (OrderItem) TableName() string { return "order_items" }

// ReturnStatus 退货请求状态
type ReturnStatus string

const (
	ReturnStatusPending  ReturnStatus = "PENDING"
	ReturnStatusApproved ReturnStatus = "APPROVED"
	ReturnStatusRejected ReturnStatus = "REJECTED"
)

// ReturnRequest 退货请求
// 只能针对已送达订单创建；审批与重新入库是独立流程，创建时不动库存。
type ReturnRequest struct {
	gorm.Model
	ReturnID string       `gorm:"column:return_id;type:varchar(36);uniqueIndex;not null" json:"return_id"`
	OrderID  string       `gorm:"column:order_id;type:varchar(36);index;not null" json:"order_id"`
	Items    []ReturnItem `gorm:"foreignKey:ReturnRef;references:ID" json:"items"`
	Status   ReturnStatus `gorm:"column:status;type:varchar(20);index;not null;default:'PENDING'" json:"status"`
}

func (ReturnRequest) TableName() string { return "return_requests" }

// ReturnItem 退货请求中的单个条目
type ReturnItem struct {
	gorm.Model
	ReturnRef uint `gorm:"column:return_ref;index;not null" json:"-"`
	// OrderItemID 对应的订单行项目
	OrderItemID string `gorm:"column:order_item_id;type:varchar(36);not null" json:"order_item_id"`
	Quantity    int    `gorm:"column:quantity;not null" json:"quantity"`
	Reason      string `gorm:"column:reason;type:varchar(255)" json:"reason"`
}

func (ReturnItem) TableName() string { return "return_items" }

// CanTransitionTo 当前状态是否允许迁移到 next
func (o *Order) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range statusTransitions[o.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TransitionTo 执行状态迁移，非法迁移返回携带当前状态的错误
func (o *Order) TransitionTo(next OrderStatus) error {
	if !o.CanTransitionTo(next) {
		return fmt.Errorf("%w: cannot change status from %s to %s", ErrInvalidStatusTransition, o.Status, next)
	}
	o.Status = next
	return nil
}

// CanBeCancelled 是否允许取消：送达前的任意状态
func (o *Order) CanBeCancelled() bool {
	return o.CanTransitionTo(OrderStatusCancelled)
}

// IsDelivered 是否已送达
func (o *Order) IsDelivered() bool {
	return o.Status == OrderStatusDelivered
}

// FindItem 按行项目业务 ID 查找
func (o *Order) FindItem(itemID string) *OrderItem {
	for i := range o.Items {
		if o.Items[i].ItemID == itemID {
			return &o.Items[i]
		}
	}
	return nil
}

package domain

import "time"

const (
	CartItemAddedEventType = "cart.item.added"
	CartMergedEventType    = "cart.merged"
	CartClearedEventType   = "cart.cleared"
)

// CartItemAddedEvent 购物车添加商品事件
type CartItemAddedEvent struct {
	CartID    string    `json:"cart_id"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	UnitPrice string    `json:"unit_price"`
	Timestamp time.Time `json:"timestamp"`
}

// CartMergedEvent 游客购物车并入用户购物车事件
type CartMergedEvent struct {
	GuestCartID string    `json:"guest_cart_id"`
	UserCartID  string    `json:"user_cart_id"`
	UserID      string    `json:"user_id"`
	MergedLines int       `json:"merged_lines"`
	Timestamp   time.Time `json:"timestamp"`
}

// CartClearedEvent 购物车清空事件
type CartClearedEvent struct {
	CartID    string    `json:"cart_id"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
}

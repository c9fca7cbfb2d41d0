// Package domain 购物车服务的领域模型
package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/ecommerce/internal/pricing"
	"gorm.io/gorm"
)

var (
	ErrCartItemNotFound  = errors.New("cart item not found")
	ErrSavedItemNotFound = errors.New("saved item not found")
	ErrUserRequired      = errors.New("user is required for this operation")
)

// CartTTL 购物车保留时长，超期后按不存在处理
const CartTTL = 7 * 24 * time.Hour

// Cart 购物车实体
// 一个会话（游客）或一个用户各持有至多一个购物车，登录时游客购物车并入用户购物车。
// 金额字段全部为派生值，任何变更后都必须经由 Recalculate 重新计算，绝不保留旧值。
type Cart struct {
	gorm.Model
	// CartID 购物车业务 ID
	CartID string `gorm:"column:cart_id;type:varchar(36);uniqueIndex;not null" json:"cart_id"`
	// SessionID 会话 ID
	SessionID string `gorm:"column:session_id;type:varchar(64);index;not null" json:"session_id"`
	// UserID 用户 ID，游客购物车为空
	UserID string `gorm:"column:user_id;type:varchar(36);index" json:"user_id"`
	// Items 购物车行项目，展示顺序稳定
	Items []CartItem `gorm:"foreignKey:CartID;references:ID" json:"items"`
	// DiscountCode 当前应用的折扣码
	DiscountCode string `gorm:"column:discount_code;type:varchar(32)" json:"discount_code"`
	// Subtotal 商品小计
	Subtotal decimal.Decimal `gorm:"column:subtotal;type:decimal(20,8);not null;default:0" json:"subtotal"`
	// Discount 折扣金额
	Discount decimal.Decimal `gorm:"column:discount;type:decimal(20,8);not null;default:0" json:"discount"`
	// Tax 税额
	Tax decimal.Decimal `gorm:"column:tax;type:decimal(20,8);not null;default:0" json:"tax"`
	// ShippingFee 运费
	ShippingFee decimal.Decimal `gorm:"column:shipping_fee;type:decimal(20,8);not null;default:0" json:"shipping_fee"`
	// Total 应付总额
	Total decimal.Decimal `gorm:"column:total;type:decimal(20,8);not null;default:0" json:"total"`
	// Currency 币种
	Currency string `gorm:"column:currency;type:varchar(3);not null;default:'USD'" json:"currency"`
	// ExpiresAt 过期时间
	ExpiresAt time.Time `gorm:"column:expires_at;index;not null" json:"expires_at"`
}

func (Cart) TableName() string { return "carts" }

// CartItem 购物车行项目
// 单价在加入购物车时快照，之后商品改价不影响已有行。
type CartItem struct {
	gorm.Model
	CartID uint `gorm:"column:cart_id;index;not null" json:"-"`
	// ItemID 行项目业务 ID
	ItemID string `gorm:"column:item_id;type:varchar(36);uniqueIndex;not null" json:"item_id"`
	// ProductID 商品 ID
	ProductID string `gorm:"column:product_id;type:varchar(36);not null" json:"product_id"`
	// ProductName 商品名称快照
	ProductName string `gorm:"column:product_name;type:varchar(255);not null" json:"product_name"`
	// SKU 快照
	SKU string `gorm:"column:sku;type:varchar(64);not null" json:"sku"`
	// Quantity 数量
	Quantity int `gorm:"column:quantity;not null" json:"quantity"`
	// UnitPrice 加入时的单价
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:decimal(20,8);not null" json:"unit_price"`
	// Subtotal 行小计 = UnitPrice * Quantity，保留两位小数
	Subtotal decimal.Decimal `gorm:"column:subtotal;type:decimal(20,8);not null" json:"subtotal"`
}

func (CartItem) TableName() string { return "cart_items" }

// SavedItem 用户的"稍后购买"条目
type SavedItem struct {
	gorm.Model
	SavedItemID string          `gorm:"column:saved_item_id;type:varchar(36);uniqueIndex;not null" json:"saved_item_id"`
	UserID      string          `gorm:"column:user_id;type:varchar(36);index;not null" json:"user_id"`
	ProductID   string          `gorm:"column:product_id;type:varchar(36);not null" json:"product_id"`
	ProductName string          `gorm:"column:product_name;type:varchar(255);not null" json:"product_name"`
	SKU         string          `gorm:"column:sku;type:varchar(64);not null" json:"sku"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:decimal(20,8);not null" json:"unit_price"`
	SavedAt     time.Time       `gorm:"column:saved_at;not null" json:"saved_at"`
}

func (SavedItem) TableName() string { return "saved_items" }

// IsExpired 购物车是否已超过保留时长
func (c *Cart) IsExpired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// FindItem 按行项目 ID 查找
func (c *Cart) FindItem(itemID string) *CartItem {
	for i := range c.Items {
		if c.Items[i].ItemID == itemID {
			return &c.Items[i]
		}
	}
	return nil
}

// FindItemByProduct 按商品 ID 查找
func (c *Cart) FindItemByProduct(productID string) *CartItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}

// AddLine 向购物车追加商品
// 已有同商品行时数量合并并重算行小计，否则追加新行并快照当前单价。
func (c *Cart) AddLine(itemID, productID, productName, sku string, quantity int, unitPrice decimal.Decimal) {
	if line := c.FindItemByProduct(productID); line != nil {
		line.Quantity += quantity
		line.Subtotal = pricing.ItemSubtotal(line.UnitPrice, int64(line.Quantity), decimal.Zero)
		return
	}
	c.Items = append(c.Items, CartItem{
		ItemID:      itemID,
		CartID:      c.ID,
		ProductID:   productID,
		ProductName: productName,
		SKU:         sku,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		Subtotal:    pricing.ItemSubtotal(unitPrice, int64(quantity), decimal.Zero),
	})
}

// UpdateLine 修改行数量并重算行小计
func (c *Cart) UpdateLine(itemID string, quantity int) error {
	line := c.FindItem(itemID)
	if line == nil {
		return ErrCartItemNotFound
	}
	line.Quantity = quantity
	line.Subtotal = pricing.ItemSubtotal(line.UnitPrice, int64(quantity), decimal.Zero)
	return nil
}

// RemoveLine 移除行项目，条目不存在时为无操作
func (c *Cart) RemoveLine(itemID string) {
	for i := range c.Items {
		if c.Items[i].ItemID == itemID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return
		}
	}
}

// Clear 清空行项目和折扣码
func (c *Cart) Clear() {
	c.Items = nil
	c.DiscountCode = ""
}

// Recalculate 重算购物车全部金额
// 空购物车不收运费，全部金额归零。
// 已设置的折扣码按新小计重新校验；不再满足条件的折扣静默退化为零而不是报错。
func (c *Cart) Recalculate(policy pricing.DiscountPolicy) {
	if len(c.Items) == 0 {
		c.Subtotal = decimal.Zero
		c.Discount = decimal.Zero
		c.Tax = decimal.Zero
		c.ShippingFee = decimal.Zero
		c.Total = decimal.Zero
		return
	}

	subtotal := decimal.Zero
	for i := range c.Items {
		subtotal = subtotal.Add(c.Items[i].Subtotal)
	}
	c.Subtotal = pricing.Round2(subtotal)

	c.Discount = decimal.Zero
	if c.DiscountCode != "" {
		if rule, ok := policy.Lookup(c.DiscountCode); ok {
			c.Discount = pricing.ComputeDiscount(rule, c.Subtotal)
		}
	}

	c.Tax = pricing.Tax(c.Subtotal.Sub(c.Discount), pricing.DefaultTaxRate)
	c.ShippingFee = pricing.Shipping(c.Subtotal)
	c.Total = pricing.Total(c.Subtotal, c.Discount, c.Tax, c.ShippingFee)
}

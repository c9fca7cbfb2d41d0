// Package domain 商品目录服务的领域模型
package domain

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product is not available for purchase")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrNegativeStock      = errors.New("stock cannot be negative")
	ErrSKUAlreadyExists   = errors.New("sku already exists")
	ErrCategoryNotFound   = errors.New("category not found")
)

// ProductStatus 商品生命周期状态
type ProductStatus string

const (
	ProductStatusDraft     ProductStatus = "DRAFT"     // 草稿，不可购买
	ProductStatusPublished ProductStatus = "PUBLISHED" // 已上架
	ProductStatusArchived  ProductStatus = "ARCHIVED"  // 已下架
)

// Product 商品实体
// 库存数量永远不为负：扣减只能通过仓储的条件更新完成。
type Product struct {
	gorm.Model
	// ProductID 商品业务 ID
	ProductID string `gorm:"column:product_id;type:varchar(36);uniqueIndex;not null" json:"product_id"`
	// Name 商品名称
	Name string `gorm:"column:name;type:varchar(255);not null" json:"name"`
	// Description 商品描述
	Description string `gorm:"column:description;type:text" json:"description"`
	// SKU 库存单元编码，全局唯一
	SKU string `gorm:"column:sku;type:varchar(64);uniqueIndex;not null" json:"sku"`
	// Price 单价
	Price decimal.Decimal `gorm:"column:price;type:decimal(20,8);not null" json:"price"`
	// Stock 库存数量
	Stock int `gorm:"column:stock;not null;default:0" json:"stock"`
	// Status 生命周期状态
	Status ProductStatus `gorm:"column:status;type:varchar(20);index;not null;default:'DRAFT'" json:"status"`
	// CategoryID 所属分类
	CategoryID string `gorm:"column:category_id;type:varchar(36);index" json:"category_id"`
}

func (Product) TableName() string { return "products" }

// IsPurchasable 是否处于可购买状态
func (p *Product) IsPurchasable() bool {
	return p.Status == ProductStatusPublished
}

// CheckAvailability 校验商品可购且库存足够
func (p *Product) CheckAvailability(quantity int) error {
	if !p.IsPurchasable() {
		return ErrProductUnavailable
	}
	if p.Stock < quantity {
		return ErrInsufficientStock
	}
	return nil
}

// ProductPatch 部分更新商品时使用的补丁
// nil 表示调用方未提供该字段，区别于显式清空。
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Status      *ProductStatus
	CategoryID  *string
}

// Apply 将补丁套用到商品上
func (patch *ProductPatch) Apply(p *Product) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.CategoryID != nil {
		p.CategoryID = *patch.CategoryID
	}
}

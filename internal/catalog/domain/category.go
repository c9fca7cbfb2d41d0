package domain

import "gorm.io/gorm"

// Category 商品分类，支持父子层级
type Category struct {
	gorm.Model
	CategoryID  string `gorm:"column:category_id;type:varchar(36);uniqueIndex;not null" json:"category_id"`
	Name        string `gorm:"column:name;type:varchar(100);not null" json:"name"`
	Description string `gorm:"column:description;type:varchar(255)" json:"description"`
	// ParentID 父分类 ID，空串表示顶级分类
	ParentID string `gorm:"column:parent_id;type:varchar(36);index" json:"parent_id"`
	// SortOrder 同级展示顺序
	SortOrder int `gorm:"column:sort_order;not null;default:0" json:"sort_order"`
}

func (Category) TableName() string { return "categories" }

// IsRoot 是否为顶级分类
func (c *Category) IsRoot() bool { return c.ParentID == "" }

package domain

import (
	"context"
	"time"
)

// CartRepository 购物车仓储接口
// Get 系列在购物车不存在时返回 (nil, nil)，调用方据此惰性创建。
type CartRepository interface {
	// 按会话 ID 获取购物车
	GetBySession(ctx context.Context, sessionID string) (*Cart, error)
	// 按用户 ID 获取购物车
	GetByUser(ctx context.Context, userID string) (*Cart, error)
	// 保存购物车及其行项目
	Save(ctx context.Context, cart *Cart) error
	// 删除购物车（合并游客购物车后使用）
	Delete(ctx context.Context, cartID string) error
	// 删除已过期的购物车，返回删除数量
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// SavedItemRepository 稍后购买条目仓储接口
type SavedItemRepository interface {
	Save(ctx context.Context, item *SavedItem) error
	// Get 条目不存在时返回 (nil, nil)
	Get(ctx context.Context, savedItemID string) (*SavedItem, error)
	ListByUser(ctx context.Context, userID string) ([]*SavedItem, error)
	Delete(ctx context.Context, savedItemID string) error
}

package domain

import "context"

// ProductListFilter 商品列表查询条件
type ProductListFilter struct {
	CategoryID string
	Status     ProductStatus
	Offset     int
	Limit      int
}

// ProductRepository 商品仓储接口
type ProductRepository interface {
	// 保存商品
	Save(ctx context.Context, product *Product) error
	// 按业务 ID 获取商品
	GetByID(ctx context.Context, productID string) (*Product, error)
	// 按 SKU 获取商品
	GetBySKU(ctx context.Context, sku string) (*Product, error)
	// 商品列表
	List(ctx context.Context, filter ProductListFilter) ([]*Product, int64, error)
	// 直接设置库存，负数校验由调用方负责
	UpdateStock(ctx context.Context, productID string, quantity int) error
	// 条件扣减库存：仅在剩余库存足够时成功，否则返回 ErrInsufficientStock。
	// 并发下单对同一商品的竞争由该条件更新串行化。
	DecrementStock(ctx context.Context, productID string, quantity int) error
	// 回补库存（取消订单/全额退款）
	IncrementStock(ctx context.Context, productID string, quantity int) error
	// 在事务中执行 fn，事务通过 context 向下传递
	WithTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// CategoryRepository 分类仓储接口
type CategoryRepository interface {
	Save(ctx context.Context, category *Category) error
	GetByID(ctx context.Context, categoryID string) (*Category, error)
	ListChildren(ctx context.Context, parentID string) ([]*Category, error)
	ListAll(ctx context.Context) ([]*Category, error)
	Delete(ctx context.Context, categoryID string) error
}

package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/ecommerce/internal/catalog/domain"
	"gorm.io/gorm"
)

// ProductRepo 商品仓储的 MySQL 实现
type ProductRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) domain.ProductRepository {
	return &ProductRepo{db: db}
}

// conn 优先使用 context 中携带的事务连接
func (r *ProductRepo) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value("tx").(*gorm.DB); ok {
		return tx
	}
	return r.db.WithContext(ctx)
}

func (r *ProductRepo) Save(ctx context.Context, product *domain.Product) error {
	return r.conn(ctx).Save(product).Error
}

func (r *ProductRepo) GetByID(ctx context.Context, productID string) (*domain.Product, error) {
	var product domain.Product
	err := r.conn(ctx).Where("product_id = ?", productID).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *ProductRepo) GetBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	var product domain.Product
	err := r.conn(ctx).Where("sku = ?", sku).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *ProductRepo) List(ctx context.Context, filter domain.ProductListFilter) ([]*domain.Product, int64, error) {
	query := r.conn(ctx).Model(&domain.Product{})
	if filter.CategoryID != "" {
		query = query.Where("category_id = ?", filter.CategoryID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []*domain.Product
	err := query.Order("created_at DESC, id DESC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&products).Error
	return products, total, err
}

func (r *ProductRepo) UpdateStock(ctx context.Context, productID string, quantity int) error {
	result := r.conn(ctx).Model(&domain.Product{}).
		Where("product_id = ?", productID).
		Update("stock", quantity)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// DecrementStock 条件扣减：只在剩余库存足够时生效。
// 并发下单同一商品时由该行级条件更新决出先后，失败方收到 ErrInsufficientStock。
func (r *ProductRepo) DecrementStock(ctx context.Context, productID string, quantity int) error {
	result := r.conn(ctx).Model(&domain.Product{}).
		Where("product_id = ? AND stock >= ?", productID, quantity).
		Update("stock", gorm.Expr("stock - ?", quantity))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// 区分商品不存在和库存不足
		var count int64
		if err := r.conn(ctx).Model(&domain.Product{}).Where("product_id = ?", productID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return domain.ErrProductNotFound
		}
		return domain.ErrInsufficientStock
	}
	return nil
}

func (r *ProductRepo) IncrementStock(ctx context.Context, productID string, quantity int) error {
	result := r.conn(ctx).Model(&domain.Product{}).
		Where("product_id = ?", productID).
		Update("stock", gorm.Expr("stock + ?", quantity))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *ProductRepo) WithTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := context.WithValue(ctx, "tx", tx)
		return fn(txCtx)
	})
}

// CategoryRepo 分类仓储的 MySQL 实现
type CategoryRepo struct {
	db *gorm.DB
}

func NewCategoryRepo(db *gorm.DB) domain.CategoryRepository {
	return &CategoryRepo{db: db}
}

func (r *CategoryRepo) Save(ctx context.Context, category *domain.Category) error {
	return r.db.WithContext(ctx).Save(category).Error
}

func (r *CategoryRepo) GetByID(ctx context.Context, categoryID string) (*domain.Category, error) {
	var category domain.Category
	err := r.db.WithContext(ctx).Where("category_id = ?", categoryID).First(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrCategoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *CategoryRepo) ListChildren(ctx context.Context, parentID string) ([]*domain.Category, error) {
	var categories []*domain.Category
	err := r.db.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Order("sort_order ASC, id ASC").
		Find(&categories).Error
	return categories, err
}

func (r *CategoryRepo) ListAll(ctx context.Context) ([]*domain.Category, error) {
	var categories []*domain.Category
	err := r.db.WithContext(ctx).Order("sort_order ASC, id ASC").Find(&categories).Error
	return categories, err
}

func (r *CategoryRepo) Delete(ctx context.Context, categoryID string) error {
	return r.db.WithContext(ctx).Where("category_id = ?", categoryID).Delete(&domain.Category{}).Error
}

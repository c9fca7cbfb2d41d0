// Package application 包含商品目录服务的用例逻辑
package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/ecommerce/internal/catalog/domain"
	"github.com/wyfcoding/pkg/logging"
)

// CatalogApplicationService 商品目录应用服务
// 事件发布失败只记录日志，不影响目录操作本身。
type CatalogApplicationService struct {
	products   domain.ProductRepository
	categories domain.CategoryRepository
	publisher  domain.EventPublisher
}

// NewCatalogApplicationService 创建商品目录应用服务实例
func NewCatalogApplicationService(products domain.ProductRepository, categories domain.CategoryRepository, publisher domain.EventPublisher) *CatalogApplicationService {
	return &CatalogApplicationService{products: products, categories: categories, publisher: publisher}
}

// publish 事件发布失败只记录日志
func (s *CatalogApplicationService) publish(ctx context.Context, topic, key string, event any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, topic, key, event); err != nil {
		logging.Warn(ctx, "Failed to publish catalog event", "topic", topic, "key", key, "error", err)
	}
}

// CreateProductCommand 创建商品命令
type CreateProductCommand struct {
	Name        string
	Description string
	SKU         string
	Price       decimal.Decimal
	Stock       int
	CategoryID  string
}

// CreateProduct 创建商品，初始状态为草稿
func (s *CatalogApplicationService) CreateProduct(ctx context.Context, cmd CreateProductCommand) (*domain.Product, error) {
	if cmd.Stock < 0 {
		return nil, domain.ErrNegativeStock
	}
	if _, err := s.products.GetBySKU(ctx, cmd.SKU); err == nil {
		return nil, domain.ErrSKUAlreadyExists
	} else if !errors.Is(err, domain.ErrProductNotFound) {
		return nil, fmt.Errorf("failed to check sku: %w", err)
	}

	product := &domain.Product{
		ProductID:   uuid.New().String(),
		Name:        cmd.Name,
		Description: cmd.Description,
		SKU:         cmd.SKU,
		Price:       cmd.Price,
		Stock:       cmd.Stock,
		Status:      domain.ProductStatusDraft,
		CategoryID:  cmd.CategoryID,
	}
	if err := s.products.Save(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to save product: %w", err)
	}

	logging.Info(ctx, "Product created",
		"product_id", product.ProductID,
		"sku", product.SKU,
		"stock", product.Stock,
	)
	s.publish(ctx, domain.ProductCreatedEventType, product.ProductID, domain.ProductCreatedEvent{
		ProductID: product.ProductID,
		Name:      product.Name,
		SKU:       product.SKU,
		Price:     product.Price.String(),
		Stock:     product.Stock,
		Timestamp: time.Now(),
	})
	return product, nil
}

// UpdateProduct 按补丁部分更新商品
func (s *CatalogApplicationService) UpdateProduct(ctx context.Context, productID string, patch domain.ProductPatch) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	patch.Apply(product)
	if err := s.products.Save(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	s.publish(ctx, domain.ProductUpdatedEventType, product.ProductID, domain.ProductUpdatedEvent{
		ProductID: product.ProductID,
		Name:      product.Name,
		SKU:       product.SKU,
		Price:     product.Price.String(),
		Stock:     product.Stock,
		Status:    string(product.Status),
		Timestamp: time.Now(),
	})
	return product, nil
}

// PublishProduct 上架商品
func (s *CatalogApplicationService) PublishProduct(ctx context.Context, productID string) error {
	status := domain.ProductStatusPublished
	_, err := s.UpdateProduct(ctx, productID, domain.ProductPatch{Status: &status})
	return err
}

// ArchiveProduct 下架商品
func (s *CatalogApplicationService) ArchiveProduct(ctx context.Context, productID string) error {
	status := domain.ProductStatusArchived
	_, err := s.UpdateProduct(ctx, productID, domain.ProductPatch{Status: &status})
	return err
}

// GetProduct 获取商品详情
func (s *CatalogApplicationService) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	return s.products.GetByID(ctx, productID)
}

// GetProductBySKU 按 SKU 获取商品
func (s *CatalogApplicationService) GetProductBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	return s.products.GetBySKU(ctx, sku)
}

// ListProducts 商品列表
func (s *CatalogApplicationService) ListProducts(ctx context.Context, filter domain.ProductListFilter) ([]*domain.Product, int64, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.products.List(ctx, filter)
}

// SetStock 管理端直接设置库存
func (s *CatalogApplicationService) SetStock(ctx context.Context, productID string, quantity int) (*domain.Product, error) {
	if quantity < 0 {
		return nil, domain.ErrNegativeStock
	}
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	oldStock := product.Stock
	if err := s.products.UpdateStock(ctx, productID, quantity); err != nil {
		return nil, fmt.Errorf("failed to update stock: %w", err)
	}
	product.Stock = quantity

	logging.Info(ctx, "Stock updated",
		"product_id", productID,
		"old_stock", oldStock,
		"new_stock", quantity,
	)
	s.publish(ctx, domain.ProductStockChangedEventType, productID, domain.ProductStockChangedEvent{
		ProductID: productID,
		OldStock:  oldStock,
		NewStock:  quantity,
		Reason:    "admin_set",
		Timestamp: time.Now(),
	})
	return product, nil
}

// CreateCategory 创建分类
func (s *CatalogApplicationService) CreateCategory(ctx context.Context, name, description, parentID string) (*domain.Category, error) {
	if parentID != "" {
		if _, err := s.categories.GetByID(ctx, parentID); err != nil {
			return nil, err
		}
	}
	category := &domain.Category{
		CategoryID:  uuid.New().String(),
		Name:        name,
		Description: description,
		ParentID:    parentID,
	}
	if err := s.categories.Save(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to save category: %w", err)
	}
	return category, nil
}

// GetCategory 获取分类
func (s *CatalogApplicationService) GetCategory(ctx context.Context, categoryID string) (*domain.Category, error) {
	return s.categories.GetByID(ctx, categoryID)
}

// ListCategories 列出某父分类下的子分类，parentID 为空时返回顶级分类
func (s *CatalogApplicationService) ListCategories(ctx context.Context, parentID string) ([]*domain.Category, error) {
	return s.categories.ListChildren(ctx, parentID)
}

// ListCategoryTree 返回全部分类，按父子关系组织由调用方完成
func (s *CatalogApplicationService) ListCategoryTree(ctx context.Context) ([]*domain.Category, error) {
	return s.categories.ListAll(ctx)
}

// DeleteCategory 删除分类
func (s *CatalogApplicationService) DeleteCategory(ctx context.Context, categoryID string) error {
	children, err := s.categories.ListChildren(ctx, categoryID)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return fmt.Errorf("category %s has %d child categories", categoryID, len(children))
	}
	return s.categories.Delete(ctx, categoryID)
}

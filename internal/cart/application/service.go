// Package application 包含购物车服务的用例逻辑
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/ecommerce/internal/cart/domain"
	catalogdomain "github.com/wyfcoding/ecommerce/internal/catalog/domain"
	"github.com/wyfcoding/ecommerce/internal/pricing"
	"github.com/wyfcoding/pkg/logging"
)

// CartApplicationService 购物车应用服务
// 每次变更后都重算全部金额；事件发布失败只记录日志，不影响购物车操作本身。
type CartApplicationService struct {
	carts     domain.CartRepository
	saved     domain.SavedItemRepository
	products  catalogdomain.ProductRepository
	discounts pricing.DiscountPolicy
	publisher domain.EventPublisher
}

// NewCartApplicationService 创建购物车应用服务实例
func NewCartApplicationService(
	carts domain.CartRepository,
	saved domain.SavedItemRepository,
	products catalogdomain.ProductRepository,
	discounts pricing.DiscountPolicy,
	publisher domain.EventPublisher,
) *CartApplicationService {
	return &CartApplicationService{
		carts:     carts,
		saved:     saved,
		products:  products,
		discounts: discounts,
		publisher: publisher,
	}
}

// loadCart 按用户优先、会话其次加载购物车；过期购物车按不存在处理
func (s *CartApplicationService) loadCart(ctx context.Context, sessionID, userID string) (*domain.Cart, error) {
	var cart *domain.Cart
	var err error
	if userID != "" {
		cart, err = s.carts.GetByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
	}
	if cart == nil {
		cart, err = s.carts.GetBySession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
	}
	if cart != nil && cart.IsExpired(time.Now()) {
		if err := s.carts.Delete(ctx, cart.CartID); err != nil {
			logging.Warn(ctx, "Failed to delete expired cart", "cart_id", cart.CartID, "error", err)
		}
		return nil, nil
	}
	return cart, nil
}

// GetOrCreate 获取购物车，不存在时惰性创建一个空购物车
func (s *CartApplicationService) GetOrCreate(ctx context.Context, sessionID, userID string) (*domain.Cart, error) {
	cart, err := s.loadCart(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if cart != nil {
		return cart, nil
	}

	cart = &domain.Cart{
		CartID:    uuid.New().String(),
		SessionID: sessionID,
		UserID:    userID,
		Currency:  "USD",
		ExpiresAt: time.Now().Add(domain.CartTTL),
	}
	cart.Recalculate(s.discounts)
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	return cart, nil
}

// AddItem 向购物车添加商品
// 商品必须存在、已上架且库存足够；同商品重复添加时合并数量。
func (s *CartApplicationService) AddItem(ctx context.Context, sessionID, productID string, quantity int, userID string) (*domain.Cart, error) {
	cart, err := s.GetOrCreate(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := product.CheckAvailability(quantity); err != nil {
		return nil, err
	}

	cart.AddLine(uuid.New().String(), product.ProductID, product.Name, product.SKU, quantity, product.Price)
	cart.Recalculate(s.discounts)
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}

	if s.publisher != nil {
		event := domain.CartItemAddedEvent{
			CartID:    cart.CartID,
			SessionID: cart.SessionID,
			UserID:    cart.UserID,
			ProductID: product.ProductID,
			Quantity:  quantity,
			UnitPrice: product.Price.String(),
			Timestamp: time.Now(),
		}
		if err := s.publisher.Publish(ctx, domain.CartItemAddedEventType, cart.CartID, event); err != nil {
			logging.Warn(ctx, "Failed to publish cart event", "cart_id", cart.CartID, "error", err)
		}
	}
	return cart, nil
}

// UpdateItem 修改行数量，数量按当前实时库存重新校验
func (s *CartApplicationService) UpdateItem(ctx context.Context, sessionID, itemID string, quantity int, userID string) (*domain.Cart, error) {
	cart, err := s.loadCart(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil || cart.FindItem(itemID) == nil {
		return nil, domain.ErrCartItemNotFound
	}

	line := cart.FindItem(itemID)
	product, err := s.products.GetByID(ctx, line.ProductID)
	if err != nil {
		return nil, err
	}
	if product.Stock < quantity {
		return nil, catalogdomain.ErrInsufficientStock
	}

	if err := cart.UpdateLine(itemID, quantity); err != nil {
		return nil, err
	}
	cart.Recalculate(s.discounts)
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return cart, nil
}

// RemoveItem 移除行项目，幂等：条目不存在时购物车保持不变
func (s *CartApplicationService) RemoveItem(ctx context.Context, sessionID, itemID string, userID string) (*domain.Cart, error) {
	cart, err := s.GetOrCreate(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	cart.RemoveLine(itemID)
	cart.Recalculate(s.discounts)
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return cart, nil
}

// ClearCart 清空购物车
func (s *CartApplicationService) ClearCart(ctx context.Context, sessionID, userID string) (*domain.Cart, error) {
	cart, err := s.GetOrCreate(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	cart.Clear()
	cart.Recalculate(s.discounts)
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}

	if s.publisher != nil {
		event := domain.CartClearedEvent{CartID: cart.CartID, SessionID: cart.SessionID, Timestamp: time.Now()}
		if err := s.publisher.Publish(ctx, domain.CartClearedEventType, cart.CartID, event); err != nil {
			logging.Warn(ctx, "Failed to publish cart event", "cart_id", cart.CartID, "error", err)
		}
	}
	return cart, nil
}

// ApplyDiscount 应用折扣码，折扣码不存在或未达最低消费额时报错
func (s *CartApplicationService) ApplyDiscount(ctx context.Context, sessionID, code, userID string) (*domain.Cart, error) {
	cart, err := s.GetOrCreate(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if _, err := pricing.ValidateCode(s.discounts, code, cart.Subtotal); err != nil {
		return nil, err
	}
	cart.DiscountCode = code
	cart.Recalculate(s.discounts)
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return cart, nil
}

// RemoveDiscount 移除折扣码
func (s *CartApplicationService) RemoveDiscount(ctx context.Context, sessionID, userID string) (*domain.Cart, error) {
	cart, err := s.GetOrCreate(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	cart.DiscountCode = ""
	cart.Recalculate(s.discounts)
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return cart, nil
}

// SaveForLater 将行项目移入用户的稍后购买列表，仅登录用户可用
func (s *CartApplicationService) SaveForLater(ctx context.Context, sessionID, itemID, userID string) (*domain.SavedItem, error) {
	if userID == "" {
		return nil, domain.ErrUserRequired
	}
	cart, err := s.loadCart(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, domain.ErrCartItemNotFound
	}
	line := cart.FindItem(itemID)
	if line == nil {
		return nil, domain.ErrCartItemNotFound
	}

	saved := &domain.SavedItem{
		SavedItemID: uuid.New().String(),
		UserID:      userID,
		ProductID:   line.ProductID,
		ProductName: line.ProductName,
		SKU:         line.SKU,
		UnitPrice:   line.UnitPrice,
		SavedAt:     time.Now(),
	}
	if err := s.saved.Save(ctx, saved); err != nil {
		return nil, fmt.Errorf("failed to save item for later: %w", err)
	}

	cart.RemoveLine(itemID)
	cart.Recalculate(s.discounts)
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return saved, nil
}

// MoveToCart 将稍后购买条目移回购物车，数量为 1，价格按当前商品价重新快照
func (s *CartApplicationService) MoveToCart(ctx context.Context, sessionID, savedItemID, userID string) (*domain.Cart, error) {
	if userID == "" {
		return nil, domain.ErrUserRequired
	}
	saved, err := s.saved.Get(ctx, savedItemID)
	if err != nil {
		return nil, err
	}
	if saved == nil || saved.UserID != userID {
		return nil, domain.ErrSavedItemNotFound
	}

	cart, err := s.AddItem(ctx, sessionID, saved.ProductID, 1, userID)
	if err != nil {
		return nil, err
	}
	if err := s.saved.Delete(ctx, savedItemID); err != nil {
		return nil, fmt.Errorf("failed to delete saved item: %w", err)
	}
	return cart, nil
}

// ListSavedItems 列出用户的稍后购买条目
func (s *CartApplicationService) ListSavedItems(ctx context.Context, userID string) ([]*domain.SavedItem, error) {
	if userID == "" {
		return nil, domain.ErrUserRequired
	}
	return s.saved.ListByUser(ctx, userID)
}

// MergeCarts 登录时将游客购物车并入用户购物车
// 同商品行数量合并，其余行复制为新行；用户购物车没有折扣码时沿用游客的；
// 游客购物车随后删除。游客购物车不存在或为空时整个操作是幂等的无操作。
func (s *CartApplicationService) MergeCarts(ctx context.Context, guestSessionID, userID string) (*domain.Cart, error) {
	if userID == "" {
		return nil, domain.ErrUserRequired
	}

	now := time.Now()
	guest, err := s.carts.GetBySession(ctx, guestSessionID)
	if err != nil {
		return nil, err
	}
	if guest != nil && guest.IsExpired(now) {
		if err := s.carts.Delete(ctx, guest.CartID); err != nil {
			return nil, err
		}
		guest = nil
	}

	userCart, err := s.carts.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if userCart != nil && userCart.IsExpired(now) {
		if err := s.carts.Delete(ctx, userCart.CartID); err != nil {
			return nil, err
		}
		userCart = nil
	}

	// 用户还没有购物车时直接把游客购物车归属到用户名下
	if userCart == nil {
		if guest == nil {
			return s.GetOrCreate(ctx, guestSessionID, userID)
		}
		guest.UserID = userID
		guest.ExpiresAt = now.Add(domain.CartTTL)
		guest.Recalculate(s.discounts)
		if err := s.carts.Save(ctx, guest); err != nil {
			return nil, fmt.Errorf("failed to save merged cart: %w", err)
		}
		return guest, nil
	}
	if guest == nil || guest.CartID == userCart.CartID {
		return userCart, nil
	}

	merged := 0
	for i := range guest.Items {
		line := &guest.Items[i]
		if existing := userCart.FindItemByProduct(line.ProductID); existing != nil {
			existing.Quantity += line.Quantity
			existing.Subtotal = pricing.ItemSubtotal(existing.UnitPrice, int64(existing.Quantity), decimal.Zero)
		} else {
			userCart.AddLine(uuid.New().String(), line.ProductID, line.ProductName, line.SKU, line.Quantity, line.UnitPrice)
		}
		merged++
	}
	if userCart.DiscountCode == "" && guest.DiscountCode != "" {
		userCart.DiscountCode = guest.DiscountCode
	}

	userCart.Recalculate(s.discounts)
	if err := s.carts.Save(ctx, userCart); err != nil {
		return nil, fmt.Errorf("failed to save merged cart: %w", err)
	}
	if err := s.carts.Delete(ctx, guest.CartID); err != nil {
		return nil, fmt.Errorf("failed to delete guest cart: %w", err)
	}

	if s.publisher != nil {
		event := domain.CartMergedEvent{
			GuestCartID: guest.CartID,
			UserCartID:  userCart.CartID,
			UserID:      userID,
			MergedLines: merged,
			Timestamp:   time.Now(),
		}
		if err := s.publisher.Publish(ctx, domain.CartMergedEventType, userCart.CartID, event); err != nil {
			logging.Warn(ctx, "Failed to publish cart event", "cart_id", userCart.CartID, "error", err)
		}
	}
	return userCart, nil
}

// StockIssue 结算前库存校验发现的问题，面向用户的描述文本
type StockIssue struct {
	ProductID string `json:"product_id"`
	Message   string `json:"message"`
}

// ValidateStock 结算前重查每一行的实时库存，只读不修改
func (s *CartApplicationService) ValidateStock(ctx context.Context, cart *domain.Cart) ([]StockIssue, bool) {
	var issues []StockIssue
	for i := range cart.Items {
		line := &cart.Items[i]
		product, err := s.products.GetByID(ctx, line.ProductID)
		if err != nil {
			issues = append(issues, StockIssue{
				ProductID: line.ProductID,
				Message:   fmt.Sprintf("%s is no longer available", line.ProductName),
			})
			continue
		}
		if !product.IsPurchasable() {
			issues = append(issues, StockIssue{
				ProductID: line.ProductID,
				Message:   fmt.Sprintf("%s is not available for purchase", product.Name),
			})
			continue
		}
		if product.Stock < line.Quantity {
			issues = append(issues, StockIssue{
				ProductID: line.ProductID,
				Message:   fmt.Sprintf("Only %d of %s left in stock", product.Stock, product.Name),
			})
		}
	}
	return issues, len(issues) == 0
}

// ReapExpired 删除所有已过期的购物车，供定时任务调用
func (s *CartApplicationService) ReapExpired(ctx context.Context) (int64, error) {
	count, err := s.carts.DeleteExpired(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to reap expired carts: %w", err)
	}
	if count > 0 {
		logging.Info(ctx, "Expired carts reaped", "count", count)
	}
	return count, nil
}

package application

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/ecommerce/internal/cart/domain"
	catalogdomain "github.com/wyfcoding/ecommerce/internal/catalog/domain"
	"github.com/wyfcoding/ecommerce/internal/pricing"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

// memCartRepo 内存购物车仓储
type memCartRepo struct {
	carts map[string]*domain.Cart
}

func newMemCartRepo() *memCartRepo {
	return &memCartRepo{carts: make(map[string]*domain.Cart)}
}

func (r *memCartRepo) GetBySession(ctx context.Context, sessionID string) (*domain.Cart, error) {
	for _, c := range r.carts {
		if c.SessionID == sessionID {
			return c, nil
		}
	}
	return nil, nil
}

func (r *memCartRepo) GetByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	if userID == "" {
		return nil, nil
	}
	for _, c := range r.carts {
		if c.UserID == userID {
			return c, nil
		}
	}
	return nil, nil
}

func (r *memCartRepo) Save(ctx context.Context, cart *domain.Cart) error {
	r.carts[cart.CartID] = cart
	return nil
}

func (r *memCartRepo) Delete(ctx context.Context, cartID string) error {
	delete(r.carts, cartID)
	return nil
}

func (r *memCartRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	var count int64
	for id, c := range r.carts {
		if c.IsExpired(before) {
			delete(r.carts, id)
			count++
		}
	}
	return count, nil
}

// memSavedRepo 内存稍后购买仓储
type memSavedRepo struct {
	items map[string]*domain.SavedItem
}

func newMemSavedRepo() *memSavedRepo {
	return &memSavedRepo{items: make(map[string]*domain.SavedItem)}
}

func (r *memSavedRepo) Save(ctx context.Context, item *domain.SavedItem) error {
	r.items[item.SavedItemID] = item
	return nil
}

func (r *memSavedRepo) Get(ctx context.Context, savedItemID string) (*domain.SavedItem, error) {
	return r.items[savedItemID], nil
}

func (r *memSavedRepo) ListByUser(ctx context.Context, userID string) ([]*domain.SavedItem, error) {
	var out []*domain.SavedItem
	for _, item := range r.items {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *memSavedRepo) Delete(ctx context.Context, savedItemID string) error {
	delete(r.items, savedItemID)
	return nil
}

// memProductRepo 内存商品仓储
type memProductRepo struct {
	products map[string]*catalogdomain.Product
}

func newMemProductRepo(products ...*catalogdomain.Product) *memProductRepo {
	r := &memProductRepo{products: make(map[string]*catalogdomain.Product)}
	for _, p := range products {
		r.products[p.ProductID] = p
	}
	return r
}

func (r *memProductRepo) Save(ctx context.Context, p *catalogdomain.Product) error {
	r.products[p.ProductID] = p
	return nil
}

func (r *memProductRepo) GetByID(ctx context.Context, productID string) (*catalogdomain.Product, error) {
	p, ok := r.products[productID]
	if !ok {
		return nil, catalogdomain.ErrProductNotFound
	}
	return p, nil
}

func (r *memProductRepo) GetBySKU(ctx context.Context, sku string) (*catalogdomain.Product, error) {
	for _, p := range r.products {
		if p.SKU == sku {
			return p, nil
		}
	}
	return nil, catalogdomain.ErrProductNotFound
}

func (r *memProductRepo) List(ctx context.Context, filter catalogdomain.ProductListFilter) ([]*catalogdomain.Product, int64, error) {
	var out []*catalogdomain.Product
	for _, p := range r.products {
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

func (r *memProductRepo) UpdateStock(ctx context.Context, productID string, quantity int) error {
	p, ok := r.products[productID]
	if !ok {
		return catalogdomain.ErrProductNotFound
	}
	p.Stock = quantity
	return nil
}

func (r *memProductRepo) DecrementStock(ctx context.Context, productID string, quantity int) error {
	p, ok := r.products[productID]
	if !ok {
		return catalogdomain.ErrProductNotFound
	}
	if p.Stock < quantity {
		return catalogdomain.ErrInsufficientStock
	}
	p.Stock -= quantity
	return nil
}

func (r *memProductRepo) IncrementStock(ctx context.Context, productID string, quantity int) error {
	p, ok := r.products[productID]
	if !ok {
		return catalogdomain.ErrProductNotFound
	}
	p.Stock += quantity
	return nil
}

func (r *memProductRepo) WithTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

// recordingPublisher 记录发布的事件
type recordingPublisher struct {
	topics []string
}

func (p *recordingPublisher) Publish(ctx context.Context, topic, key string, event any) error {
	p.topics = append(p.topics, topic)
	return nil
}

func published(t *testing.T, name string) *catalogdomain.Product {
	t.Helper()
	return &catalogdomain.Product{
		ProductID: "prod-" + name,
		Name:      name,
		SKU:       "SKU-" + name,
		Price:     dec("19.99"),
		Stock:     10,
		Status:    catalogdomain.ProductStatusPublished,
	}
}

func newTestService(products ...*catalogdomain.Product) (*CartApplicationService, *memCartRepo, *memSavedRepo, *recordingPublisher) {
	carts := newMemCartRepo()
	saved := newMemSavedRepo()
	pub := &recordingPublisher{}
	svc := NewCartApplicationService(carts, saved, newMemProductRepo(products...), pricing.NewStaticPolicy(), pub)
	return svc, carts, saved, pub
}

func TestAddItem(t *testing.T) {
	ctx := context.Background()
	widget := published(t, "widget")
	svc, _, _, pub := newTestService(widget)

	cart, err := svc.AddItem(ctx, "sess-1", widget.ProductID, 2, "")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.True(t, dec("39.98").Equal(cart.Subtotal))
	assert.Contains(t, pub.topics, domain.CartItemAddedEventType)

	// 同商品合并
	cart, err = svc.AddItem(ctx, "sess-1", widget.ProductID, 3, "")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
}

func TestAddItemInsufficientStock(t *testing.T) {
	ctx := context.Background()
	widget := published(t, "widget")
	widget.Stock = 1
	svc, _, _, _ := newTestService(widget)

	_, err := svc.AddItem(ctx, "sess-1", widget.ProductID, 2, "")
	assert.ErrorIs(t, err, catalogdomain.ErrInsufficientStock)

	// 失败后购物车保持为空
	cart, err := svc.GetOrCreate(ctx, "sess-1", "")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestAddItemUnpublishedProduct(t *testing.T) {
	ctx := context.Background()
	draft := published(t, "draft")
	draft.Status = catalogdomain.ProductStatusDraft
	svc, _, _, _ := newTestService(draft)

	_, err := svc.AddItem(ctx, "sess-1", draft.ProductID, 1, "")
	assert.ErrorIs(t, err, catalogdomain.ErrProductUnavailable)
}

func TestUpdateItemRechecksLiveStock(t *testing.T) {
	ctx := context.Background()
	widget := published(t, "widget")
	svc, _, _, _ := newTestService(widget)

	cart, err := svc.AddItem(ctx, "sess-1", widget.ProductID, 2, "")
	require.NoError(t, err)
	itemID := cart.Items[0].ItemID

	// 库存被其它途径降到 3，改成 5 必须失败
	widget.Stock = 3
	_, err = svc.UpdateItem(ctx, "sess-1", itemID, 5, "")
	assert.ErrorIs(t, err, catalogdomain.ErrInsufficientStock)

	cart, err = svc.UpdateItem(ctx, "sess-1", itemID, 3, "")
	require.NoError(t, err)
	assert.Equal(t, 3, cart.Items[0].Quantity)
}

func TestRemoveItemIdempotent(t *testing.T) {
	ctx := context.Background()
	widget := published(t, "widget")
	svc, _, _, _ := newTestService(widget)

	cart, err := svc.AddItem(ctx, "sess-1", widget.ProductID, 1, "")
	require.NoError(t, err)
	itemID := cart.Items[0].ItemID

	cart, err = svc.RemoveItem(ctx, "sess-1", itemID, "")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.True(t, cart.Subtotal.IsZero())

	// 重复删除不报错
	cart, err = svc.RemoveItem(ctx, "sess-1", itemID, "")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestApplyDiscount(t *testing.T) {
	ctx := context.Background()
	widget := published(t, "widget")
	svc, _, _, _ := newTestService(widget)

	_, err := svc.AddItem(ctx, "sess-1", widget.ProductID, 3, "")
	require.NoError(t, err)

	cart, err := svc.ApplyDiscount(ctx, "sess-1", "SAVE10", "")
	require.NoError(t, err)
	// 3 * 19.99 = 59.97，10% 折扣 6.00
	assert.True(t, dec("6").Equal(cart.Discount))

	_, err = svc.ApplyDiscount(ctx, "sess-1", "NOPE", "")
	assert.ErrorIs(t, err, pricing.ErrInvalidDiscountCode)

	// 显式使用未达门槛的码报错，已有的折扣码保持不变
	_, err = svc.ApplyDiscount(ctx, "sess-1", "SAVE20", "")
	assert.ErrorIs(t, err, pricing.ErrMinSpendNotMet)
	cart, err = svc.GetOrCreate(ctx, "sess-1", "")
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", cart.DiscountCode)

	cart, err = svc.RemoveDiscount(ctx, "sess-1", "")
	require.NoError(t, err)
	assert.True(t, cart.Discount.IsZero())
	assert.Empty(t, cart.DiscountCode)
}

func TestSaveForLater(t *testing.T) {
	ctx := context.Background()
	widget := published(t, "widget")
	svc, _, _, _ := newTestService(widget)

	cart, err := svc.AddItem(ctx, "sess-1", widget.ProductID, 2, "user-1")
	require.NoError(t, err)
	itemID := cart.Items[0].ItemID

	// 游客不能用稍后购买
	_, err = svc.SaveForLater(ctx, "sess-1", itemID, "")
	assert.ErrorIs(t, err, domain.ErrUserRequired)

	saved, err := svc.SaveForLater(ctx, "sess-1", itemID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, widget.ProductID, saved.ProductID)

	cart, err = svc.GetOrCreate(ctx, "sess-1", "user-1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	items, err := svc.ListSavedItems(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestMoveToCart(t *testing.T) {
	ctx := context.Background()
	widget := published(t, "widget")
	svc, _, savedRepo, _ := newTestService(widget)

	cart, err := svc.AddItem(ctx, "sess-1", widget.ProductID, 2, "user-1")
	require.NoError(t, err)
	saved, err := svc.SaveForLater(ctx, "sess-1", cart.Items[0].ItemID, "user-1")
	require.NoError(t, err)

	cart, err = svc.MoveToCart(ctx, "sess-1", saved.SavedItemID, "user-1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].Quantity)
	assert.Empty(t, savedRepo.items)

	// 不属于该用户的条目不可见
	_, err = svc.MoveToCart(ctx, "sess-1", saved.SavedItemID, "user-1")
	assert.ErrorIs(t, err, domain.ErrSavedItemNotFound)
}

func TestMergeCartsAdoptsGuestCart(t *testing.T) {
	ctx := context.Background()
	widget := published(t, "widget")
	svc, _, _, _ := newTestService(widget)

	guest, err := svc.AddItem(ctx, "sess-guest", widget.ProductID, 2, "")
	require.NoError(t, err)

	merged, err := svc.MergeCarts(ctx, "sess-guest", "user-1")
	require.NoError(t, err)
	assert.Equal(t, guest.CartID, merged.CartID)
	assert.Equal(t, "user-1", merged.UserID)
	require.Len(t, merged.Items, 1)
	assert.Equal(t, 2, merged.Items[0].Quantity)
}

func TestMergeCartsCombinesQuantities(t *testing.T) {
	ctx := context.Background()
	widget := published(t, "widget")
	gadget := published(t, "gadget")
	svc, carts, _, pub := newTestService(widget, gadget)

	// 用户已有购物车
	userCart, err := svc.AddItem(ctx, "sess-user", widget.ProductID, 1, "user-1")
	require.NoError(t, err)

	// 游客购物车：同商品 + 新商品 + 折扣码
	_, err = svc.AddItem(ctx, "sess-guest", widget.ProductID, 2, "")
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "sess-guest", gadget.ProductID, 1, "")
	require.NoError(t, err)
	_, err = svc.ApplyDiscount(ctx, "sess-guest", "SAVE10", "")
	require.NoError(t, err)

	merged, err := svc.MergeCarts(ctx, "sess-guest", "user-1")
	require.NoError(t, err)
	assert.Equal(t, userCart.CartID, merged.CartID)
	require.Len(t, merged.Items, 2)
	assert.Equal(t, 3, merged.FindItemByProduct(widget.ProductID).Quantity)
	assert.Equal(t, "SAVE10", merged.DiscountCode)
	assert.Contains(t, pub.topics, domain.CartMergedEventType)

	// 游客购物车已删除
	guest, err := carts.GetBySession(ctx, "sess-guest")
	require.NoError(t, err)
	assert.Nil(t, guest)

	// 再次合并是无操作
	again, err := svc.MergeCarts(ctx, "sess-guest", "user-1")
	require.NoError(t, err)
	assert.Equal(t, merged.CartID, again.CartID)
	require.Len(t, again.Items, 2)
	assert.Equal(t, 3, again.FindItemByProduct(widget.ProductID).Quantity)
}

func TestValidateStock(t *testing.T) {
	ctx := context.Background()
	widget := published(t, "widget")
	gadget := published(t, "gadget")
	svc, _, _, _ := newTestService(widget, gadget)

	cart, err := svc.AddItem(ctx, "sess-1", widget.ProductID, 2, "")
	require.NoError(t, err)
	cart, err = svc.AddItem(ctx, "sess-1", gadget.ProductID, 1, "")
	require.NoError(t, err)

	issues, ok := svc.ValidateStock(ctx, cart)
	assert.True(t, ok)
	assert.Empty(t, issues)

	// 库存不足 + 商品下架
	widget.Stock = 1
	gadget.Status = catalogdomain.ProductStatusArchived
	issues, ok = svc.ValidateStock(ctx, cart)
	assert.False(t, ok)
	assert.Len(t, issues, 2)
}

func TestExpiredCartTreatedAsMissing(t *testing.T) {
	ctx := context.Background()
	widget := published(t, "widget")
	svc, carts, _, _ := newTestService(widget)

	cart, err := svc.AddItem(ctx, "sess-1", widget.ProductID, 1, "")
	require.NoError(t, err)

	// 手动把购物车标记为过期
	cart.ExpiresAt = time.Now().Add(-time.Hour)

	fresh, err := svc.GetOrCreate(ctx, "sess-1", "")
	require.NoError(t, err)
	assert.NotEqual(t, cart.CartID, fresh.CartID)
	assert.Empty(t, fresh.Items)
	assert.Len(t, carts.carts, 1)
}

func TestReapExpired(t *testing.T) {
	ctx := context.Background()
	svc, carts, _, _ := newTestService()

	carts.carts["old"] = &domain.Cart{CartID: "old", ExpiresAt: time.Now().Add(-time.Hour)}
	carts.carts["live"] = &domain.Cart{CartID: "live", ExpiresAt: time.Now().Add(time.Hour)}

	count, err := svc.ReapExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.NotContains(t, carts.carts, "old")
	assert.Contains(t, carts.carts, "live")
}

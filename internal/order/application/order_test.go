package application

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	catalogdomain "github.com/wyfcoding/ecommerce/internal/catalog/domain"
	"github.com/wyfcoding/ecommerce/internal/order/domain"
	"github.com/wyfcoding/ecommerce/internal/pricing"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

// memOrderRepo 内存订单仓储，按写入顺序保存
type memOrderRepo struct {
	mu     sync.Mutex
	orders []*domain.Order
}

func (r *memOrderRepo) Save(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.orders {
		if existing.OrderID == order.OrderID {
			r.orders[i] = order
			return nil
		}
	}
	order.CreatedAt = time.Now()
	r.orders = append(r.orders, order)
	return nil
}

func (r *memOrderRepo) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, order := range r.orders {
		if order.OrderID == orderID {
			return order, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (r *memOrderRepo) GetByOrderNo(ctx context.Context, orderNo string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, order := range r.orders {
		if order.OrderNo == orderNo {
			return order, nil
		}
	}
	return nil, nil
}

func (r *memOrderRepo) List(ctx context.Context, filter domain.OrderListFilter) ([]*domain.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*domain.Order
	for _, order := range r.orders {
		if filter.UserID != "" && order.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		matched = append(matched, order)
	}
	total := int64(len(matched))
	start := (filter.Page - 1) * filter.Limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *memOrderRepo) WithTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

// memReturnRepo 内存退货请求仓储
type memReturnRepo struct {
	requests map[string]*domain.ReturnRequest
}

func newMemReturnRepo() *memReturnRepo {
	return &memReturnRepo{requests: make(map[string]*domain.ReturnRequest)}
}

func (r *memReturnRepo) Save(ctx context.Context, request *domain.ReturnRequest) error {
	r.requests[request.ReturnID] = request
	return nil
}

func (r *memReturnRepo) Get(ctx context.Context, returnID string) (*domain.ReturnRequest, error) {
	request, ok := r.requests[returnID]
	if !ok {
		return nil, domain.ErrReturnRequestNotFound
	}
	return request, nil
}

func (r *memReturnRepo) ListByOrder(ctx context.Context, orderID string) ([]*domain.ReturnRequest, error) {
	var out []*domain.ReturnRequest
	for _, request := range r.requests {
		if request.OrderID == orderID {
			out = append(out, request)
		}
	}
	return out, nil
}

// memProductRepo 内存商品仓储，条件扣减在互斥锁内完成
type memProductRepo struct {
	mu       sync.Mutex
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
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ProductID] = p
	return nil
}

func (r *memProductRepo) GetByID(ctx context.Context, productID string) (*catalogdomain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[productID]
	if !ok {
		return nil, catalogdomain.ErrProductNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *memProductRepo) GetBySKU(ctx context.Context, sku string) (*catalogdomain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.products {
		if p.SKU == sku {
			clone := *p
			return &clone, nil
		}
	}
	return nil, catalogdomain.ErrProductNotFound
}

func (r *memProductRepo) List(ctx context.Context, filter catalogdomain.ProductListFilter) ([]*catalogdomain.Product, int64, error) {
	return nil, 0, nil
}

func (r *memProductRepo) UpdateStock(ctx context.Context, productID string, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[productID]
	if !ok {
		return catalogdomain.ErrProductNotFound
	}
	p.Stock = quantity
	return nil
}

func (r *memProductRepo) DecrementStock(ctx context.Context, productID string, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
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
	r.mu.Lock()
	defer r.mu.Unlock()
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

func (r *memProductRepo) stock(productID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.products[productID].Stock
}

// fakeGateway 支付网关桩，err 非空时模拟网关失败
type fakeGateway struct {
	err   error
	calls []domain.RefundRequest
}

func (g *fakeGateway) ProcessRefund(ctx context.Context, req domain.RefundRequest) error {
	g.calls = append(g.calls, req)
	return g.err
}

type recordingPublisher struct {
	topics []string
}

func (p *recordingPublisher) Publish(ctx context.Context, topic, key string, event any) error {
	p.topics = append(p.topics, topic)
	return nil
}

func published(name string, stock int) *catalogdomain.Product {
	return &catalogdomain.Product{
		ProductID: "prod-" + name,
		Name:      name,
		SKU:       "SKU-" + name,
		Price:     dec("19.99"),
		Stock:     stock,
		Status:    catalogdomain.ProductStatusPublished,
	}
}

type testEnv struct {
	svc      *OrderService
	orders   *memOrderRepo
	returns  *memReturnRepo
	products *memProductRepo
	gateway  *fakeGateway
	pub      *recordingPublisher
}

func newTestEnv(products ...*catalogdomain.Product) *testEnv {
	env := &testEnv{
		orders:   &memOrderRepo{},
		returns:  newMemReturnRepo(),
		products: newMemProductRepo(products...),
		gateway:  &fakeGateway{},
		pub:      &recordingPublisher{},
	}
	env.svc = NewOrderService(env.orders, env.returns, env.products, pricing.NewStaticPolicy(), env.gateway, env.pub)
	return env
}

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()
	widget := published("widget", 10)
	gadget := published("gadget", 10)
	gadget.Price = dec("5.00")
	env := newTestEnv(widget, gadget)

	order, err := env.svc.CreateOrder(ctx, CreateOrderCommand{
		UserID: "user-1",
		Items: []OrderItemInput{
			{ProductID: widget.ProductID, Quantity: 3, UnitPrice: dec("19.99")},
			{ProductID: gadget.ProductID, Quantity: 1, UnitPrice: dec("5.00")},
		},
		ShippingAddress: "1 Main St",
		DiscountCode:    "SAVE10",
	})
	require.NoError(t, err)

	// 59.97 + 5.00 = 64.97；折扣 6.50；税 9.75；运费 5
	assert.True(t, dec("64.97").Equal(order.Subtotal), "subtotal %s", order.Subtotal)
	assert.True(t, dec("6.50").Equal(order.Discount), "discount %s", order.Discount)
	assert.True(t, dec("9.75").Equal(order.Tax), "tax %s", order.Tax)
	assert.True(t, dec("5").Equal(order.ShippingFee))
	assert.True(t, dec("73.22").Equal(order.Total), "total %s", order.Total)

	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, domain.PaymentStatusPending, order.PaymentStatus)
	assert.Regexp(t, regexp.MustCompile(`^ORD-\d{8}-\d{4,}$`), order.OrderNo)

	// 库存已扣减
	assert.Equal(t, 7, env.products.stock(widget.ProductID))
	assert.Equal(t, 9, env.products.stock(gadget.ProductID))
	assert.Contains(t, env.pub.topics, domain.OrderCreatedEventType)
}

func TestCreateOrderEmpty(t *testing.T) {
	env := newTestEnv()
	_, err := env.svc.CreateOrder(context.Background(), CreateOrderCommand{UserID: "user-1"})
	assert.ErrorIs(t, err, domain.ErrEmptyOrder)
}

func TestCreateOrderInsufficientStockLeavesStockUntouched(t *testing.T) {
	ctx := context.Background()
	widget := published("widget", 10)
	scarce := published("scarce", 1)
	env := newTestEnv(widget, scarce)

	_, err := env.svc.CreateOrder(ctx, CreateOrderCommand{
		UserID: "user-1",
		Items: []OrderItemInput{
			{ProductID: widget.ProductID, Quantity: 2, UnitPrice: dec("19.99")},
			{ProductID: scarce.ProductID, Quantity: 5, UnitPrice: dec("19.99")},
		},
		ShippingAddress: "1 Main St",
	})
	assert.ErrorIs(t, err, catalogdomain.ErrInsufficientStock)

	// 整单失败，任何商品的库存都不动
	assert.Equal(t, 10, env.products.stock(widget.ProductID))
	assert.Equal(t, 1, env.products.stock(scarce.ProductID))
	assert.Empty(t, env.orders.orders)
}

func TestCreateOrderUnknownDiscount(t *testing.T) {
	ctx := context.Background()
	widget := published("widget", 10)
	env := newTestEnv(widget)

	_, err := env.svc.CreateOrder(ctx, CreateOrderCommand{
		UserID:          "user-1",
		Items:           []OrderItemInput{{ProductID: widget.ProductID, Quantity: 1, UnitPrice: dec("19.99")}},
		ShippingAddress: "1 Main St",
		DiscountCode:    "BOGUS",
	})
	assert.ErrorIs(t, err, pricing.ErrInvalidDiscountCode)
	assert.Equal(t, 10, env.products.stock(widget.ProductID))
}

func TestCreateOrderDiscountBelowMinSpend(t *testing.T) {
	ctx := context.Background()
	widget := published("widget", 10)
	env := newTestEnv(widget)

	// 19.99 的小计不满足 SAVE20 的 100 门槛，显式使用直接拒单
	_, err := env.svc.CreateOrder(ctx, CreateOrderCommand{
		UserID:          "user-1",
		Items:           []OrderItemInput{{ProductID: widget.ProductID, Quantity: 1, UnitPrice: dec("19.99")}},
		ShippingAddress: "1 Main St",
		DiscountCode:    "SAVE20",
	})
	assert.ErrorIs(t, err, pricing.ErrMinSpendNotMet)
	assert.Equal(t, 10, env.products.stock(widget.ProductID))
	assert.Empty(t, env.orders.orders)
}

func TestConcurrentOrdersLastUnit(t *testing.T) {
	ctx := context.Background()
	widget := published("widget", 1)
	env := newTestEnv(widget)

	cmd := CreateOrderCommand{
		UserID:          "user-1",
		Items:           []OrderItemInput{{ProductID: widget.ProductID, Quantity: 1, UnitPrice: dec("19.99")}},
		ShippingAddress: "1 Main St",
	}

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = env.svc.CreateOrder(ctx, cmd)
		}(i)
	}
	wg.Wait()

	// 恰好一单成功，库存不为负
	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, catalogdomain.ErrInsufficientStock)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 0, env.products.stock(widget.ProductID))
	assert.Len(t, env.orders.orders, 1)
}

func TestCancelOrderRestoresStock(t *testing.T) {
	ctx := context.Background()
	widget := published("widget", 10)
	env := newTestEnv(widget)

	order, err := env.svc.CreateOrder(ctx, CreateOrderCommand{
		UserID:          "user-1",
		Items:           []OrderItemInput{{ProductID: widget.ProductID, Quantity: 3, UnitPrice: dec("19.99")}},
		ShippingAddress: "1 Main St",
	})
	require.NoError(t, err)
	require.Equal(t, 7, env.products.stock(widget.ProductID))

	cancelled, err := env.svc.CancelOrder(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, 10, env.products.stock(widget.ProductID))
	assert.Contains(t, env.pub.topics, domain.OrderCancelledEventType)

	// 已取消订单不能再取消
	_, err = env.svc.CancelOrder(ctx, order.OrderID)
	assert.ErrorIs(t, err, domain.ErrInvalidStatusTransition)
}

func TestUpdateStatusShippedRecordsTracking(t *testing.T) {
	ctx := context.Background()
	widget := published("widget", 10)
	env := newTestEnv(widget)

	order, err := env.svc.CreateOrder(ctx, CreateOrderCommand{
		UserID:          "user-1",
		Items:           []OrderItemInput{{ProductID: widget.ProductID, Quantity: 1, UnitPrice: dec("19.99")}},
		ShippingAddress: "1 Main St",
	})
	require.NoError(t, err)

	for _, status := range []domain.OrderStatus{domain.OrderStatusConfirmed, domain.OrderStatusProcessing} {
		_, err = env.svc.UpdateStatus(ctx, UpdateStatusCommand{OrderID: order.OrderID, NewStatus: status})
		require.NoError(t, err)
	}

	eta := time.Now().Add(48 * time.Hour)
	shipped, err := env.svc.UpdateStatus(ctx, UpdateStatusCommand{
		OrderID:           order.OrderID,
		NewStatus:         domain.OrderStatusShipped,
		TrackingNumber:    "TRK-42",
		EstimatedDelivery: &eta,
	})
	require.NoError(t, err)
	assert.Equal(t, "TRK-42", shipped.TrackingNumber)
	require.NotNil(t, shipped.EstimatedDelivery)

	delivered, err := env.svc.UpdateStatus(ctx, UpdateStatusCommand{OrderID: order.OrderID, NewStatus: domain.OrderStatusDelivered})
	require.NoError(t, err)
	assert.NotNil(t, delivered.DeliveredAt)
}

func deliverOrder(t *testing.T, env *testEnv, orderID string) {
	t.Helper()
	for _, status := range []domain.OrderStatus{
		domain.OrderStatusConfirmed,
		domain.OrderStatusProcessing,
		domain.OrderStatusShipped,
		domain.OrderStatusDelivered,
	} {
		_, err := env.svc.UpdateStatus(context.Background(), UpdateStatusCommand{OrderID: orderID, NewStatus: status})
		require.NoError(t, err)
	}
}

func TestRefundRequiresDelivered(t *testing.T) {
	ctx := context.Background()
	widget := published("widget", 10)
	env := newTestEnv(widget)

	order, err := env.svc.CreateOrder(ctx, CreateOrderCommand{
		UserID:          "user-1",
		Items:           []OrderItemInput{{ProductID: widget.ProductID, Quantity: 2, UnitPrice: dec("19.99")}},
		ShippingAddress: "1 Main St",
	})
	require.NoError(t, err)

	_, err = env.svc.RequestRefund(ctx, RequestRefundCommand{OrderID: order.OrderID, Reason: "changed my mind"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatusTransition)
	assert.Empty(t, env.gateway.calls)
}

func TestRefundFullRestoresStock(t *testing.T) {
	ctx := context.Background()
	widget := published("widget", 10)
	env := newTestEnv(widget)

	order, err := env.svc.CreateOrder(ctx, CreateOrderCommand{
		UserID:          "user-1",
		Items:           []OrderItemInput{{ProductID: widget.ProductID, Quantity: 2, UnitPrice: dec("19.99")}},
		ShippingAddress: "1 Main St",
	})
	require.NoError(t, err)
	deliverOrder(t, env, order.OrderID)

	refunded, err := env.svc.RequestRefund(ctx, RequestRefundCommand{OrderID: order.OrderID, Reason: "damaged"})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusRefunded, refunded.Status)
	assert.Equal(t, domain.PaymentStatusRefunded, refunded.PaymentStatus)
	assert.Equal(t, 10, env.products.stock(widget.ProductID))

	require.Len(t, env.gateway.calls, 1)
	assert.True(t, refunded.Total.Equal(env.gateway.calls[0].Amount))
	assert.Contains(t, env.pub.topics, domain.OrderRefundedEventType)
}

func TestRefundGatewayFailureLeavesOrderUntouched(t *testing.T) {
	ctx := context.Background()
	widget := published("widget", 10)
	env := newTestEnv(widget)
	env.gateway.err = errors.New("gateway timeout")

	order, err := env.svc.CreateOrder(ctx, CreateOrderCommand{
		UserID:          "user-1",
		Items:           []OrderItemInput{{ProductID: widget.ProductID, Quantity: 2, UnitPrice: dec("19.99")}},
		ShippingAddress: "1 Main St",
	})
	require.NoError(t, err)
	deliverOrder(t, env, order.OrderID)

	_, err = env.svc.RequestRefund(ctx, RequestRefundCommand{OrderID: order.OrderID, Reason: "damaged"})
	require.Error(t, err)

	current, err := env.svc.GetOrder(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusDelivered, current.Status)
	assert.NotEqual(t, domain.PaymentStatusRefunded, current.PaymentStatus)
	assert.Equal(t, 8, env.products.stock(widget.ProductID))
}

func TestRequestReturn(t *testing.T) {
	ctx := context.Background()
	widget := published("widget", 10)
	env := newTestEnv(widget)

	order, err := env.svc.CreateOrder(ctx, CreateOrderCommand{
		UserID:          "user-1",
		Items:           []OrderItemInput{{ProductID: widget.ProductID, Quantity: 2, UnitPrice: dec("19.99")}},
		ShippingAddress: "1 Main St",
	})
	require.NoError(t, err)

	// 未送达不能退货
	_, err = env.svc.RequestReturn(ctx, order.OrderID, []ReturnItemInput{
		{OrderItemID: order.Items[0].ItemID, Quantity: 1, Reason: "wrong size"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidStatusTransition)

	deliverOrder(t, env, order.OrderID)

	request, err := env.svc.RequestReturn(ctx, order.OrderID, []ReturnItemInput{
		{OrderItemID: order.Items[0].ItemID, Quantity: 1, Reason: "wrong size"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ReturnStatusPending, request.Status)
	require.Len(t, request.Items, 1)
	// 创建退货请求不动库存
	assert.Equal(t, 8, env.products.stock(widget.ProductID))

	// 超量退货被拒
	_, err = env.svc.RequestReturn(ctx, order.OrderID, []ReturnItemInput{
		{OrderItemID: order.Items[0].ItemID, Quantity: 3, Reason: "wrong size"},
	})
	assert.Error(t, err)

	// 不存在的行项目被拒
	_, err = env.svc.RequestReturn(ctx, order.OrderID, []ReturnItemInput{
		{OrderItemID: "missing", Quantity: 1},
	})
	assert.Error(t, err)

	requests, err := env.svc.ListReturnRequests(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Len(t, requests, 1)
}

func TestListOrdersPagination(t *testing.T) {
	ctx := context.Background()
	widget := published("widget", 100)
	env := newTestEnv(widget)

	for range 5 {
		_, err := env.svc.CreateOrder(ctx, CreateOrderCommand{
			UserID:          "user-1",
			Items:           []OrderItemInput{{ProductID: widget.ProductID, Quantity: 1, UnitPrice: dec("19.99")}},
			ShippingAddress: "1 Main St",
		})
		require.NoError(t, err)
	}

	page, err := env.svc.ListOrders(ctx, domain.OrderListFilter{UserID: "user-1", Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, 3, page.PageCount)
	assert.Len(t, page.Orders, 2)

	page, err = env.svc.ListOrders(ctx, domain.OrderListFilter{UserID: "user-1", Page: 3, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Orders, 1)

	// 无匹配用户返回空页
	page, err = env.svc.ListOrders(ctx, domain.OrderListFilter{UserID: "nobody", Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(0), page.Total)
	assert.Empty(t, page.Orders)
}

func TestGetOrderTracking(t *testing.T) {
	ctx := context.Background()
	widget := published("widget", 10)
	env := newTestEnv(widget)

	order, err := env.svc.CreateOrder(ctx, CreateOrderCommand{
		UserID:          "user-1",
		Items:           []OrderItemInput{{ProductID: widget.ProductID, Quantity: 1, UnitPrice: dec("19.99")}},
		ShippingAddress: "1 Main St",
	})
	require.NoError(t, err)

	// 新订单只有下单一步
	steps, err := env.svc.GetOrderTracking(ctx, order.OrderID)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, domain.OrderStatusPending, steps[0].Status)

	for _, status := range []domain.OrderStatus{domain.OrderStatusConfirmed, domain.OrderStatusProcessing} {
		_, err = env.svc.UpdateStatus(ctx, UpdateStatusCommand{OrderID: order.OrderID, NewStatus: status})
		require.NoError(t, err)
	}
	_, err = env.svc.UpdateStatus(ctx, UpdateStatusCommand{
		OrderID:        order.OrderID,
		NewStatus:      domain.OrderStatusShipped,
		TrackingNumber: "TRK-42",
	})
	require.NoError(t, err)

	steps, err = env.svc.GetOrderTracking(ctx, order.OrderID)
	require.NoError(t, err)
	require.Len(t, steps, 4)
	assert.Equal(t, domain.OrderStatusShipped, steps[3].Status)
	assert.Contains(t, steps[3].Description, "TRK-42")
}

func TestGetOrderTrackingCancelled(t *testing.T) {
	ctx := context.Background()
	widget := published("widget", 10)
	env := newTestEnv(widget)

	order, err := env.svc.CreateOrder(ctx, CreateOrderCommand{
		UserID:          "user-1",
		Items:           []OrderItemInput{{ProductID: widget.ProductID, Quantity: 1, UnitPrice: dec("19.99")}},
		ShippingAddress: "1 Main St",
	})
	require.NoError(t, err)
	_, err = env.svc.CancelOrder(ctx, order.OrderID)
	require.NoError(t, err)

	steps, err := env.svc.GetOrderTracking(ctx, order.OrderID)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, domain.OrderStatusCancelled, steps[1].Status)
}

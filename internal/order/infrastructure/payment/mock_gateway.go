// Package payment 支付网关适配层
package payment

import (
	"context"

	"github.com/wyfcoding/ecommerce/internal/order/domain"
	"github.com/wyfcoding/pkg/logging"
)

// MockGateway 模拟支付网关
// 真实部署中替换为 Stripe/支付宝等适配器。
type MockGateway struct{}

// NewMockGateway 创建模拟支付网关
func NewMockGateway() domain.PaymentGateway {
	return &MockGateway{}
}

// ProcessRefund 处理退款（模拟实现，总是成功）
func (g *MockGateway) ProcessRefund(ctx context.Context, req domain.RefundRequest) error {
	logging.Info(ctx, "Processing refund",
		"gateway", "MockGateway",
		"transaction_id", req.TransactionID,
		"order_id", req.OrderID,
		"amount", req.Amount,
	)
	return nil
}

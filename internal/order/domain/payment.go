package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// RefundRequest 发往支付网关的退款请求
type RefundRequest struct {
	TransactionID string
	OrderID       string
	Amount        decimal.Decimal
	Reason        string
}

// PaymentGateway 支付网关接口
// 退款失败时订单保持原状态，绝不在网关未成功的情况下记为已退款。
type PaymentGateway interface {
	ProcessRefund(ctx context.Context, req RefundRequest) error
}

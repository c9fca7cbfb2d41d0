// Package pricing 包含购物车与订单共用的金额计算逻辑
// 所有函数均为纯函数，金额一律使用 decimal 并在每一步四舍五入到两位小数，
// 避免多次计算之间的舍入误差累积。
package pricing

import "github.com/shopspring/decimal"

var (
	// DefaultTaxRate 默认税率（百分比）
	DefaultTaxRate = decimal.NewFromInt(15)
	// FlatShippingRate 固定运费
	FlatShippingRate = decimal.NewFromInt(5)
	// FreeShippingThreshold 免运费的小计门槛
	FreeShippingThreshold = decimal.NewFromInt(100)

	oneHundred = decimal.NewFromInt(100)
)

// Round2 四舍五入到两位小数（远离零方向）
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ItemSubtotal 计算单行小计：price*quantity 再按百分比扣减行内折扣
func ItemSubtotal(price decimal.Decimal, quantity int64, discountPercent decimal.Decimal) decimal.Decimal {
	gross := price.Mul(decimal.NewFromInt(quantity))
	if discountPercent.IsZero() {
		return Round2(gross)
	}
	return Round2(gross.Sub(gross.Mul(discountPercent).Div(oneHundred)))
}

// Tax 按百分比税率计算税额
func Tax(amount, rate decimal.Decimal) decimal.Decimal {
	return Round2(amount.Mul(rate).Div(oneHundred))
}

// Shipping 计算运费，小计达到免运费门槛时为零
func Shipping(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(FreeShippingThreshold) {
		return decimal.Zero
	}
	return Round2(FlatShippingRate)
}

// Total 计算应付总额：subtotal - discount + tax + shipping
func Total(subtotal, discount, tax, shipping decimal.Decimal) decimal.Decimal {
	return Round2(subtotal.Sub(discount).Add(tax).Add(shipping))
}

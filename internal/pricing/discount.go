package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrInvalidDiscountCode 折扣码不存在
var ErrInvalidDiscountCode = errors.New("Invalid discount code")

// ErrMinSpendNotMet 未达到折扣码的最低消费额
var ErrMinSpendNotMet = errors.New("Minimum spend not met for discount code")

// DiscountType 折扣类型
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "PERCENTAGE" // 按小计百分比
	DiscountTypeFixed      DiscountType = "FIXED"      // 固定金额
)

// DiscountRule 一条折扣规则
type DiscountRule struct {
	Code     string
	Type     DiscountType
	Value    decimal.Decimal
	MinSpend decimal.Decimal // 最低消费额，零表示不限
}

// DiscountPolicy 折扣码查询接口
// 注入到购物车/订单服务，便于之后替换为促销系统的实现。
type DiscountPolicy interface {
	Lookup(code string) (DiscountRule, bool)
}

// StaticPolicy 内置折扣码表
type StaticPolicy struct {
	rules map[string]DiscountRule
}

// NewStaticPolicy 创建内置折扣码表
func NewStaticPolicy() *StaticPolicy {
	rules := map[string]DiscountRule{
		"SAVE10": {Code: "SAVE10", Type: DiscountTypePercentage, Value: decimal.NewFromInt(10)},
		"SAVE20": {Code: "SAVE20", Type: DiscountTypePercentage, Value: decimal.NewFromInt(20), MinSpend: decimal.NewFromInt(100)},
		"FLAT5":  {Code: "FLAT5", Type: DiscountTypeFixed, Value: decimal.NewFromInt(5)},
		"FLAT10": {Code: "FLAT10", Type: DiscountTypeFixed, Value: decimal.NewFromInt(10)},
	}
	return &StaticPolicy{rules: rules}
}

// Lookup 查询折扣码
func (p *StaticPolicy) Lookup(code string) (DiscountRule, bool) {
	rule, ok := p.rules[code]
	return rule, ok
}

// ComputeDiscount 根据规则和当前小计计算折扣金额
// 不满足最低消费时退化为零；固定金额折扣封顶到小计，保证总额不为负。
func ComputeDiscount(rule DiscountRule, subtotal decimal.Decimal) decimal.Decimal {
	if !rule.MinSpend.IsZero() && subtotal.LessThan(rule.MinSpend) {
		return decimal.Zero
	}
	switch rule.Type {
	case DiscountTypePercentage:
		return Round2(subtotal.Mul(rule.Value).Div(oneHundred))
	case DiscountTypeFixed:
		if rule.Value.GreaterThan(subtotal) {
			return Round2(subtotal)
		}
		return Round2(rule.Value)
	default:
		return decimal.Zero
	}
}

// ValidateCode 校验折扣码并返回按当前小计计算的折扣金额
// 显式使用折扣码时未达最低消费额即报错；重算路径用 Lookup+ComputeDiscount 静默退化。
func ValidateCode(policy DiscountPolicy, code string, subtotal decimal.Decimal) (decimal.Decimal, error) {
	rule, ok := policy.Lookup(code)
	if !ok {
		return decimal.Zero, ErrInvalidDiscountCode
	}
	if !rule.MinSpend.IsZero() && subtotal.LessThan(rule.MinSpend) {
		return decimal.Zero, ErrMinSpendNotMet
	}
	return ComputeDiscount(rule, subtotal), nil
}

// Package pricing resolves loyalty and voucher discounts for an order.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-mart/internal/ledger"
	"github.com/odyssey-erp/odyssey-mart/internal/shared"
)

// MoneyScale is the number of fractional digits kept on monetary results.
const MoneyScale = 2

var hundred = decimal.NewFromInt(100)

// Quote is the priced outcome of an order.
type Quote struct {
	Subtotal        decimal.Decimal
	Rank            Rank
	RankDiscount    decimal.Decimal
	VoucherDiscount decimal.Decimal
	Discount        decimal.Decimal
	Total           decimal.Decimal
}

// VoucherDiscount validates v against subtotal at now and returns its uncapped-by-subtotal discount.
// Checks run in order: active, validity window, minimum order value.
func VoucherDiscount(v ledger.Voucher, subtotal decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if !v.IsActive {
		return decimal.Zero, shared.InvalidState("voucher %s is inactive", v.Code)
	}
	if now.Before(v.StartDate) {
		return decimal.Zero, shared.InvalidState("voucher %s is not valid before %s", v.Code, v.StartDate.Format(time.RFC3339))
	}
	if now.After(v.EndDate) {
		return decimal.Zero, shared.InvalidState("voucher %s expired at %s", v.Code, v.EndDate.Format(time.RFC3339))
	}
	if v.MinOrderValue.IsPositive() && subtotal.LessThan(v.MinOrderValue) {
		return decimal.Zero, shared.InvalidInput("voucherCode", "order value below minimum "+v.MinOrderValue.StringFixed(MoneyScale))
	}
	switch v.Type {
	case ledger.VoucherPercentage:
		discount := subtotal.Mul(v.Value).Div(hundred)
		if v.MaxDiscount.IsPositive() && discount.GreaterThan(v.MaxDiscount) {
			discount = v.MaxDiscount
		}
		return discount.Round(MoneyScale), nil
	case ledger.VoucherFixedAmount:
		return v.Value.Round(MoneyScale), nil
	default:
		return decimal.Zero, shared.InvalidState("voucher %s has unknown type %s", v.Code, v.Type)
	}
}

// Price combines the rank discount of customer and the discount of voucher on the same subtotal.
// Either may be nil. The combined discount never exceeds the subtotal.
func Price(subtotal decimal.Decimal, customer *ledger.Customer, voucher *ledger.Voucher, now time.Time) (Quote, error) {
	if subtotal.IsNegative() {
		return Quote{}, shared.InvalidInput("subtotal", "must not be negative")
	}
	q := Quote{Subtotal: subtotal, Rank: Ranks[0], RankDiscount: decimal.Zero, VoucherDiscount: decimal.Zero}
	if customer != nil {
		q.Rank = RankFor(customer.Points)
		q.RankDiscount = subtotal.Mul(q.Rank.DiscountPercent).Div(hundred).Round(MoneyScale)
	}
	if voucher != nil {
		d, err := VoucherDiscount(*voucher, subtotal, now)
		if err != nil {
			return Quote{}, err
		}
		q.VoucherDiscount = d
	}
	q.Discount = decimal.Min(q.RankDiscount.Add(q.VoucherDiscount), subtotal)
	q.Total = subtotal.Sub(q.Discount)
	return q, nil
}

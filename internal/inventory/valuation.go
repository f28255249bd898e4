package inventory

import "github.com/shopspring/decimal"

// ValuationScale is the number of fractional digits kept on weighted-average import prices.
const ValuationScale = 4

// WeightedAverage returns the stock and unit import price after receiving receivedQty units at receivedCost.
// A product with no stock takes the received cost exactly.
func WeightedAverage(currentStock int64, currentPrice decimal.Decimal, receivedQty int64, receivedCost decimal.Decimal) (int64, decimal.Decimal) {
	newStock := currentStock + receivedQty
	if newStock <= 0 {
		return newStock, currentPrice
	}
	oldValue := decimal.NewFromInt(currentStock).Mul(currentPrice)
	newValue := decimal.NewFromInt(receivedQty).Mul(receivedCost)
	price := oldValue.Add(newValue).DivRound(decimal.NewFromInt(newStock), ValuationScale)
	return newStock, price
}

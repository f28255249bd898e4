package inventory

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestWeightedAverage(t *testing.T) {
	cases := []struct {
		name      string
		stock     int64
		price     int64
		qty       int64
		cost      int64
		wantStock int64
		wantPrice string
	}{
		{name: "new product", stock: 0, price: 0, qty: 10, cost: 5000, wantStock: 10, wantPrice: "5000"},
		{name: "equal halves", stock: 10, price: 1000, qty: 10, cost: 2000, wantStock: 20, wantPrice: "1500"},
		{name: "existing product", stock: 5, price: 1000, qty: 15, cost: 2000, wantStock: 20, wantPrice: "1625"},
		{name: "free goods", stock: 4, price: 3000, qty: 4, cost: 0, wantStock: 8, wantPrice: "1500"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stock, price := WeightedAverage(tc.stock, decimal.NewFromInt(tc.price), tc.qty, decimal.NewFromInt(tc.cost))
			require.Equal(t, tc.wantStock, stock)
			require.True(t, price.Equal(decimal.RequireFromString(tc.wantPrice)), "got %s", price)
		})
	}
}

func TestWeightedAverageRepeatedReceiptsDoNotDrift(t *testing.T) {
	stock, price := int64(0), decimal.Zero
	for i := 0; i < 1000; i++ {
		stock, price = WeightedAverage(stock, price, 3, decimal.RequireFromString("1234.5"))
	}
	require.Equal(t, int64(3000), stock)
	require.True(t, price.Equal(decimal.RequireFromString("1234.5")), "got %s", price)
}

func TestWeightedAverageRoundsToValuationScale(t *testing.T) {
	_, price := WeightedAverage(2, decimal.NewFromInt(100), 1, decimal.NewFromInt(200))
	require.Equal(t, "133.3333", price.StringFixed(ValuationScale))
}

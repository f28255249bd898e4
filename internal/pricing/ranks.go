package pricing

import "github.com/shopspring/decimal"

// Rank is a loyalty tier unlocked at MinPoints.
type Rank struct {
	Code            string
	Name            string
	MinPoints       int64
	DiscountPercent decimal.Decimal
}

// Ranks is ordered by ascending threshold.
var Ranks = []Rank{
	{Code: "BRONZE", Name: "Đồng", MinPoints: 0, DiscountPercent: decimal.NewFromInt(0)},
	{Code: "SILVER", Name: "Bạc", MinPoints: 100, DiscountPercent: decimal.NewFromInt(2)},
	{Code: "GOLD", Name: "Vàng", MinPoints: 500, DiscountPercent: decimal.NewFromInt(5)},
	{Code: "PLATINUM", Name: "Bạch Kim", MinPoints: 1000, DiscountPercent: decimal.NewFromInt(8)},
	{Code: "EMERALD", Name: "Lục Bảo", MinPoints: 2000, DiscountPercent: decimal.NewFromInt(10)},
	{Code: "RUBY", Name: "Ruby", MinPoints: 5000, DiscountPercent: decimal.NewFromInt(12)},
	{Code: "DIAMOND", Name: "Kim Cương", MinPoints: 10000, DiscountPercent: decimal.NewFromInt(15)},
}

// RankFor returns the highest rank whose threshold is covered by points.
// Negative balances fall back to the first rank.
func RankFor(points int64) Rank {
	best := Ranks[0]
	for _, r := range Ranks {
		if points >= r.MinPoints {
			best = r
		}
	}
	return best
}

// pointUnit is the amount of money earning one loyalty point.
var pointUnit = decimal.NewFromInt(10000)

// PointsFor returns floor(amount / 10000), zero for non-positive amounts.
func PointsFor(amount decimal.Decimal) int64 {
	if !amount.IsPositive() {
		return 0
	}
	return amount.Div(pointUnit).Floor().IntPart()
}

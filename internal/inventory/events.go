package inventory

import (
	"context"

	"github.com/odyssey-erp/odyssey-mart/internal/ledger"
)

// LowStockNotifier receives low-stock events after the triggering transaction committed.
type LowStockNotifier interface {
	NotifyLowStock(ctx context.Context, evt LowStockEvent) error
}

// LowStockEvent reports a product that reached its reorder threshold.
type LowStockEvent struct {
	ProductID     int64  `json:"product_id"`
	Barcode       string `json:"barcode"`
	Name          string `json:"name"`
	StockQuantity int64  `json:"stock_quantity"`
	MinStockLevel int64  `json:"min_stock_level"`
}

// LowStockEvents returns events for the products at or below their threshold.
func LowStockEvents(products map[int64]ledger.Product) []LowStockEvent {
	var events []LowStockEvent
	for _, id := range ledger.SortedIDs(mapKeys(products)) {
		p := products[id]
		if p.IsActive && p.StockQuantity <= p.MinStockLevel {
			events = append(events, LowStockEvent{
				ProductID:     p.ID,
				Barcode:       p.Barcode,
				Name:          p.Name,
				StockQuantity: p.StockQuantity,
				MinStockLevel: p.MinStockLevel,
			})
		}
	}
	return events
}

func mapKeys(products map[int64]ledger.Product) []int64 {
	keys := make([]int64, 0, len(products))
	for id := range products {
		keys = append(keys, id)
	}
	return keys
}

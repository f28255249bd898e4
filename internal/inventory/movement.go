package inventory

import (
	"context"

	"github.com/odyssey-erp/odyssey-mart/internal/ledger"
	"github.com/odyssey-erp/odyssey-mart/internal/shared"
)

// ApplyMovement writes the stock of p shifted by m.Delta, together with p.ImportPrice, and
// records the stock log. p is updated in place so later lines of the same transaction see it.
// The row of p must already be locked by tx.
func ApplyMovement(ctx context.Context, tx ledger.Tx, p *ledger.Product, m Movement) (ledger.StockLog, error) {
	newStock := p.StockQuantity + m.Delta
	if newStock < 0 {
		return ledger.StockLog{}, shared.InsufficientStock(p.ID, -m.Delta, p.StockQuantity)
	}
	if err := tx.UpdateProductStock(ctx, p.ID, newStock, p.ImportPrice); err != nil {
		return ledger.StockLog{}, err
	}
	p.StockQuantity = newStock
	return tx.InsertStockLog(ctx, ledger.StockLog{
		ProductID:       p.ID,
		StaffID:         m.StaffID,
		ChangeType:      m.ChangeType,
		ChangeQuantity:  m.Delta,
		CurrentStock:    newStock,
		ImportReceiptID: m.ImportReceiptID,
		InvoiceID:       m.InvoiceID,
		ReturnInvoiceID: m.ReturnInvoiceID,
		Note:            m.Note,
	})
}

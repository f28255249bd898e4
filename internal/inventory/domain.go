package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-mart/internal/ledger"
)

const (
	// DefaultUnit is used when a new product omits its unit.
	DefaultUnit = "cái"
	// DefaultMinStockLevel is the reorder threshold of new products.
	DefaultMinStockLevel = 10
)

// ReceiptLine is either an ExistingProductLine or a NewProductLine.
type ReceiptLine interface {
	receiptLine()
	quantity() int64
	unitCost() decimal.Decimal
}

// ExistingProductLine receives stock for a known product.
type ExistingProductLine struct {
	ProductID int64
	Quantity  int64
	UnitCost  decimal.Decimal
}

// NewProductLine creates the product and receives its first stock.
type NewProductLine struct {
	Product  NewProduct
	Quantity int64
	UnitCost decimal.Decimal
}

func (ExistingProductLine) receiptLine()                {}
func (l ExistingProductLine) quantity() int64           { return l.Quantity }
func (l ExistingProductLine) unitCost() decimal.Decimal { return l.UnitCost }
func (NewProductLine) receiptLine()                     {}
func (l NewProductLine) quantity() int64                { return l.Quantity }
func (l NewProductLine) unitCost() decimal.Decimal      { return l.UnitCost }

// NewProduct carries the descriptive fields of a product created by a receipt.
type NewProduct struct {
	Name            string
	Barcode         string
	CategoryID      int64
	RetailPrice     decimal.Decimal
	Unit            string
	MinStockLevel   int64
	PackingQuantity int64
	Description     string
}

// ImportReceiptInput describes a goods receipt.
type ImportReceiptInput struct {
	SupplierID int64
	StaffID    int64
	Note       string
	Lines      []ReceiptLine
}

// AdjustStockInput describes a DAMAGE or AUDIT adjustment.
type AdjustStockInput struct {
	ProductID  int64
	ChangeType ledger.ChangeType
	Quantity   int64
	Note       string
}

// Movement is a signed stock change recorded against a product.
type Movement struct {
	ChangeType      ledger.ChangeType
	Delta           int64
	StaffID         int64
	ImportReceiptID int64
	InvoiceID       int64
	ReturnInvoiceID int64
	Note            string
}

package ledger

import (
	"context"
	"slices"

	"github.com/shopspring/decimal"
)

// Store is the durable ledger. All mutations go through WithTx.
type Store interface {
	// WithTx runs fn inside one transaction. A nil return commits; any error rolls back every write.
	WithTx(ctx context.Context, fn func(context.Context, Tx) error) error

	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	LowStockProducts(ctx context.Context) ([]Product, error)
	StockLogs(ctx context.Context, productID int64, limit int) ([]StockLog, error)
	ReconcileStock(ctx context.Context) ([]StockDrift, error)
}

// Tx exposes transactional reads and writes. Reads named ForUpdate, and LockProducts,
// hold a row lock until the transaction ends.
type Tx interface {
	LockProducts(ctx context.Context, ids []int64) (map[int64]Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (Product, error)
	InsertProduct(ctx context.Context, p Product) (Product, error)
	UpdateProductStock(ctx context.Context, id, stock int64, importPrice decimal.Decimal) error

	GetCategory(ctx context.Context, id int64) (Category, error)
	GetSupplier(ctx context.Context, id int64) (Supplier, error)
	GetCustomerForUpdate(ctx context.Context, id int64) (Customer, error)
	AddCustomerPoints(ctx context.Context, id, delta int64) error

	InsertImportReceipt(ctx context.Context, r ImportReceipt) (ImportReceipt, error)
	InsertStockLog(ctx context.Context, log StockLog) (StockLog, error)

	InsertInvoice(ctx context.Context, inv Invoice) (Invoice, error)
	GetInvoiceForUpdate(ctx context.Context, id int64) (Invoice, error)
	UpdateInvoiceStatus(ctx context.Context, id int64, status InvoiceStatus, staffID int64) error
	ReturnedQuantities(ctx context.Context, invoiceID int64) (map[int64]int64, error)
	InsertReturnInvoice(ctx context.Context, r ReturnInvoice) (ReturnInvoice, error)

	GetOpenShiftForUpdate(ctx context.Context, staffID int64) (WorkShift, error)
	InsertShift(ctx context.Context, s WorkShift) (WorkShift, error)
	CloseShift(ctx context.Context, s WorkShift) error
	CashRevenue(ctx context.Context, shiftID int64) (decimal.Decimal, error)

	GetVoucher(ctx context.Context, id int64) (Voucher, error)
	GetVoucherByCodeForUpdate(ctx context.Context, code string) (Voucher, error)
	InsertVoucher(ctx context.Context, v Voucher) (Voucher, error)
	DeleteVoucher(ctx context.Context, id int64) error
	AddVoucherUsage(ctx context.Context, id, delta int64) error
}

// SortedIDs returns the distinct ids in ascending order, the order product rows are locked in.
func SortedIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

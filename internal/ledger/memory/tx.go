package memory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-mart/internal/ledger"
	"github.com/odyssey-erp/odyssey-mart/internal/shared"
)

type tx struct {
	st  *state
	now func() time.Time
}

func (t *tx) LockProducts(ctx context.Context, ids []int64) (map[int64]ledger.Product, error) {
	out := make(map[int64]ledger.Product, len(ids))
	for _, id := range ledger.SortedIDs(ids) {
		p, ok := t.st.products[id]
		if !ok {
			return nil, shared.NotFound("product", id)
		}
		out[id] = p
	}
	return out, nil
}

func (t *tx) GetProductByBarcode(ctx context.Context, barcode string) (ledger.Product, error) {
	for _, p := range t.st.products {
		if p.Barcode == barcode {
			return p, nil
		}
	}
	return ledger.Product{}, shared.NotFound("product", barcode)
}

func (t *tx) InsertProduct(ctx context.Context, p ledger.Product) (ledger.Product, error) {
	if _, err := t.GetProductByBarcode(ctx, p.Barcode); err == nil {
		return ledger.Product{}, shared.Conflict("product", "barcode", p.Barcode)
	}
	p.ID = t.st.id()
	p.CreatedAt = t.now()
	p.UpdatedAt = p.CreatedAt
	t.st.products[p.ID] = p
	return p, nil
}

func (t *tx) UpdateProductStock(ctx context.Context, id, stock int64, importPrice decimal.Decimal) error {
	p, ok := t.st.products[id]
	if !ok {
		return shared.NotFound("product", id)
	}
	p.StockQuantity = stock
	p.ImportPrice = importPrice
	p.UpdatedAt = t.now()
	t.st.products[id] = p
	return nil
}

func (t *tx) GetCategory(ctx context.Context, id int64) (ledger.Category, error) {
	c, ok := t.st.categories[id]
	if !ok {
		return ledger.Category{}, shared.NotFound("category", id)
	}
	return c, nil
}

func (t *tx) GetSupplier(ctx context.Context, id int64) (ledger.Supplier, error) {
	s, ok := t.st.suppliers[id]
	if !ok {
		return ledger.Supplier{}, shared.NotFound("supplier", id)
	}
	return s, nil
}

func (t *tx) GetCustomerForUpdate(ctx context.Context, id int64) (ledger.Customer, error) {
	c, ok := t.st.customers[id]
	if !ok {
		return ledger.Customer{}, shared.NotFound("customer", id)
	}
	return c, nil
}

func (t *tx) AddCustomerPoints(ctx context.Context, id, delta int64) error {
	c, ok := t.st.customers[id]
	if !ok {
		return shared.NotFound("customer", id)
	}
	c.Points += delta
	t.st.customers[id] = c
	return nil
}

func (t *tx) InsertImportReceipt(ctx context.Context, r ledger.ImportReceipt) (ledger.ImportReceipt, error) {
	r.ID = t.st.id()
	r.CreatedAt = t.now()
	for i := range r.Items {
		r.Items[i].ID = t.st.id()
		r.Items[i].ReceiptID = r.ID
	}
	t.st.receipts[r.ID] = r
	return r, nil
}

func (t *tx) InsertStockLog(ctx context.Context, log ledger.StockLog) (ledger.StockLog, error) {
	log.ID = t.st.id()
	log.CreatedAt = t.now()
	t.st.stockLogs = append(t.st.stockLogs, log)
	return log, nil
}

func (t *tx) InsertInvoice(ctx context.Context, inv ledger.Invoice) (ledger.Invoice, error) {
	for _, existing := range t.st.invoices {
		if existing.Code == inv.Code {
			return ledger.Invoice{}, shared.Conflict("invoice", "code", inv.Code)
		}
	}
	inv.ID = t.st.id()
	inv.CreatedAt = t.now()
	inv.UpdatedAt = inv.CreatedAt
	for i := range inv.Items {
		inv.Items[i].ID = t.st.id()
		inv.Items[i].InvoiceID = inv.ID
	}
	t.st.invoices[inv.ID] = inv
	return inv, nil
}

func (t *tx) GetInvoiceForUpdate(ctx context.Context, id int64) (ledger.Invoice, error) {
	inv, ok := t.st.invoices[id]
	if !ok {
		return ledger.Invoice{}, shared.NotFound("invoice", id)
	}
	inv.Items = append([]ledger.InvoiceItem(nil), inv.Items...)
	return inv, nil
}

func (t *tx) UpdateInvoiceStatus(ctx context.Context, id int64, status ledger.InvoiceStatus, staffID int64) error {
	inv, ok := t.st.invoices[id]
	if !ok {
		return shared.NotFound("invoice", id)
	}
	inv.Status = status
	if staffID != 0 {
		inv.StaffID = staffID
	}
	inv.UpdatedAt = t.now()
	t.st.invoices[id] = inv
	return nil
}

func (t *tx) ReturnedQuantities(ctx context.Context, invoiceID int64) (map[int64]int64, error) {
	out := make(map[int64]int64)
	for _, r := range t.st.returns {
		if r.InvoiceID != invoiceID {
			continue
		}
		for _, item := range r.Items {
			out[item.ProductID] += item.Quantity
		}
	}
	return out, nil
}

func (t *tx) InsertReturnInvoice(ctx context.Context, r ledger.ReturnInvoice) (ledger.ReturnInvoice, error) {
	r.ID = t.st.id()
	r.CreatedAt = t.now()
	for i := range r.Items {
		r.Items[i].ID = t.st.id()
		r.Items[i].ReturnInvoiceID = r.ID
	}
	t.st.returns[r.ID] = r
	return r, nil
}

func (t *tx) GetOpenShiftForUpdate(ctx context.Context, staffID int64) (ledger.WorkShift, error) {
	for _, s := range t.st.shifts {
		if s.StaffID == staffID && s.Open() {
			return s, nil
		}
	}
	return ledger.WorkShift{}, shared.NotFound("open shift for staff", staffID)
}

func (t *tx) InsertShift(ctx context.Context, s ledger.WorkShift) (ledger.WorkShift, error) {
	if _, err := t.GetOpenShiftForUpdate(ctx, s.StaffID); err == nil {
		return ledger.WorkShift{}, shared.InvalidState("staff %d already has an open shift", s.StaffID)
	}
	s.ID = t.st.id()
	if s.StartTime.IsZero() {
		s.StartTime = t.now()
	}
	t.st.shifts[s.ID] = s
	return s, nil
}

func (t *tx) CloseShift(ctx context.Context, s ledger.WorkShift) error {
	current, ok := t.st.shifts[s.ID]
	if !ok {
		return shared.NotFound("shift", s.ID)
	}
	if !current.Open() {
		return shared.InvalidState("shift %d already closed", s.ID)
	}
	t.st.shifts[s.ID] = s
	return nil
}

func (t *tx) CashRevenue(ctx context.Context, shiftID int64) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, inv := range t.st.invoices {
		if inv.WorkShiftID == shiftID && inv.PaymentMethod == ledger.PaymentCash && inv.Status == ledger.StatusCompleted {
			total = total.Add(inv.TotalAmount)
		}
	}
	return total, nil
}

func (t *tx) GetVoucher(ctx context.Context, id int64) (ledger.Voucher, error) {
	v, ok := t.st.vouchers[id]
	if !ok {
		return ledger.Voucher{}, shared.NotFound("voucher", id)
	}
	return v, nil
}

func (t *tx) GetVoucherByCodeForUpdate(ctx context.Context, code string) (ledger.Voucher, error) {
	for _, v := range t.st.vouchers {
		if v.Code == code {
			return v, nil
		}
	}
	return ledger.Voucher{}, shared.NotFound("voucher", code)
}

func (t *tx) InsertVoucher(ctx context.Context, v ledger.Voucher) (ledger.Voucher, error) {
	if _, err := t.GetVoucherByCodeForUpdate(ctx, v.Code); err == nil {
		return ledger.Voucher{}, shared.Conflict("voucher", "code", v.Code)
	}
	v.ID = t.st.id()
	v.CreatedAt = t.now()
	t.st.vouchers[v.ID] = v
	return v, nil
}

func (t *tx) DeleteVoucher(ctx context.Context, id int64) error {
	if _, ok := t.st.vouchers[id]; !ok {
		return shared.NotFound("voucher", id)
	}
	delete(t.st.vouchers, id)
	return nil
}

func (t *tx) AddVoucherUsage(ctx context.Context, id, delta int64) error {
	v, ok := t.st.vouchers[id]
	if !ok {
		return shared.NotFound("voucher", id)
	}
	v.UsedCount += delta
	if v.UsedCount < 0 {
		v.UsedCount = 0
	}
	t.st.vouchers[id] = v
	return nil
}

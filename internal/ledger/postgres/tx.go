package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-mart/internal/ledger"
	"github.com/odyssey-erp/odyssey-mart/internal/platform/db"
	"github.com/odyssey-erp/odyssey-mart/internal/shared"
)

type txRepository struct {
	tx pgx.Tx
}

func notFound(err error, entity string, ref any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.NotFound(entity, ref)
	}
	return fmt.Errorf("ledger/postgres: %s %v: %w", entity, ref, err)
}

func (r *txRepository) LockProducts(ctx context.Context, ids []int64) (map[int64]ledger.Product, error) {
	sorted := ledger.SortedIDs(ids)
	rows, err := r.tx.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`, sorted)
	if err != nil {
		return nil, fmt.Errorf("ledger/postgres: lock products: %w", err)
	}
	defer rows.Close()
	out := make(map[int64]ledger.Product, len(sorted))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, id := range sorted {
		if _, ok := out[id]; !ok {
			return nil, shared.NotFound("product", id)
		}
	}
	return out, nil
}

func (r *txRepository) GetProductByBarcode(ctx context.Context, barcode string) (ledger.Product, error) {
	p, err := scanProduct(r.tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE barcode=$1`, barcode))
	if err != nil {
		return ledger.Product{}, notFound(err, "product", barcode)
	}
	return p, nil
}

func (r *txRepository) InsertProduct(ctx context.Context, p ledger.Product) (ledger.Product, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO products (barcode, name, category_id, stock_quantity, import_price, retail_price, min_stock_level, unit, packing_quantity, description, is_active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NOW(),NOW()) RETURNING id, created_at, updated_at`,
		p.Barcode, p.Name, p.CategoryID, p.StockQuantity, p.ImportPrice, p.RetailPrice, p.MinStockLevel, p.Unit, p.PackingQuantity, p.Description, p.IsActive).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, "products_barcode_key") {
			return ledger.Product{}, shared.Conflict("product", "barcode", p.Barcode)
		}
		return ledger.Product{}, fmt.Errorf("ledger/postgres: insert product: %w", err)
	}
	return p, nil
}

func (r *txRepository) UpdateProductStock(ctx context.Context, id, stock int64, importPrice decimal.Decimal) error {
	tag, err := r.tx.Exec(ctx, `UPDATE products SET stock_quantity=$2, import_price=$3, updated_at=NOW() WHERE id=$1`, id, stock, importPrice)
	if err != nil {
		return fmt.Errorf("ledger/postgres: update product stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("product", id)
	}
	return nil
}

func (r *txRepository) GetCategory(ctx context.Context, id int64) (ledger.Category, error) {
	var c ledger.Category
	if err := r.tx.QueryRow(ctx, `SELECT id, name FROM categories WHERE id=$1`, id).Scan(&c.ID, &c.Name); err != nil {
		return ledger.Category{}, notFound(err, "category", id)
	}
	return c, nil
}

func (r *txRepository) GetSupplier(ctx context.Context, id int64) (ledger.Supplier, error) {
	var s ledger.Supplier
	if err := r.tx.QueryRow(ctx, `SELECT id, name, phone, address FROM suppliers WHERE id=$1`, id).Scan(&s.ID, &s.Name, &s.Phone, &s.Address); err != nil {
		return ledger.Supplier{}, notFound(err, "supplier", id)
	}
	return s, nil
}

func (r *txRepository) GetCustomerForUpdate(ctx context.Context, id int64) (ledger.Customer, error) {
	var c ledger.Customer
	err := r.tx.QueryRow(ctx, `SELECT id, phone, name, points, password_hash FROM customers WHERE id=$1 FOR UPDATE`, id).
		Scan(&c.ID, &c.Phone, &c.Name, &c.Points, &c.PasswordHash)
	if err != nil {
		return ledger.Customer{}, notFound(err, "customer", id)
	}
	return c, nil
}

func (r *txRepository) AddCustomerPoints(ctx context.Context, id, delta int64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE customers SET points = points + $2 WHERE id=$1`, id, delta)
	if err != nil {
		return fmt.Errorf("ledger/postgres: customer points: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("customer", id)
	}
	return nil
}

func (r *txRepository) InsertImportReceipt(ctx context.Context, rec ledger.ImportReceipt) (ledger.ImportReceipt, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO import_receipts (code, supplier_id, staff_id, total_cost, note, created_at)
VALUES ($1,$2,$3,$4,$5,NOW()) RETURNING id, created_at`, rec.Code, rec.SupplierID, rec.StaffID, rec.TotalCost, rec.Note).
		Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return ledger.ImportReceipt{}, fmt.Errorf("ledger/postgres: insert receipt: %w", err)
	}
	for i := range rec.Items {
		item := &rec.Items[i]
		item.ReceiptID = rec.ID
		if err := r.tx.QueryRow(ctx, `INSERT INTO import_items (import_receipt_id, product_id, quantity, unit_cost, line_total)
VALUES ($1,$2,$3,$4,$5) RETURNING id`, rec.ID, item.ProductID, item.Quantity, item.UnitCost, item.LineTotal).Scan(&item.ID); err != nil {
			return ledger.ImportReceipt{}, fmt.Errorf("ledger/postgres: insert receipt item: %w", err)
		}
	}
	return rec, nil
}

func (r *txRepository) InsertStockLog(ctx context.Context, l ledger.StockLog) (ledger.StockLog, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_logs (product_id, staff_id, change_type, change_quantity, current_stock, import_receipt_id, invoice_id, return_invoice_id, note, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW()) RETURNING id, created_at`,
		l.ProductID, nullInt(l.StaffID), string(l.ChangeType), l.ChangeQuantity, l.CurrentStock,
		nullInt(l.ImportReceiptID), nullInt(l.InvoiceID), nullInt(l.ReturnInvoiceID), l.Note).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return ledger.StockLog{}, fmt.Errorf("ledger/postgres: insert stock log: %w", err)
	}
	return l, nil
}

func (r *txRepository) InsertInvoice(ctx context.Context, inv ledger.Invoice) (ledger.Invoice, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO invoices (code, source, status, staff_id, customer_id, work_shift_id, voucher_id, total_amount, discount_amount, payment_method, delivery_address, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NOW(),NOW()) RETURNING id, created_at, updated_at`,
		inv.Code, string(inv.Source), string(inv.Status), nullInt(inv.StaffID), nullInt(inv.CustomerID), nullInt(inv.WorkShiftID),
		nullInt(inv.VoucherID), inv.TotalAmount, inv.DiscountAmount, string(inv.PaymentMethod), inv.DeliveryAddress).
		Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, "invoices_code_key") {
			return ledger.Invoice{}, shared.Conflict("invoice", "code", inv.Code)
		}
		return ledger.Invoice{}, fmt.Errorf("ledger/postgres: insert invoice: %w", err)
	}
	for i := range inv.Items {
		item := &inv.Items[i]
		item.InvoiceID = inv.ID
		if err := r.tx.QueryRow(ctx, `INSERT INTO invoice_items (invoice_id, product_id, quantity, unit_price, line_total)
VALUES ($1,$2,$3,$4,$5) RETURNING id`, inv.ID, item.ProductID, item.Quantity, item.UnitPrice, item.LineTotal).Scan(&item.ID); err != nil {
			return ledger.Invoice{}, fmt.Errorf("ledger/postgres: insert invoice item: %w", err)
		}
	}
	return inv, nil
}

func (r *txRepository) GetInvoiceForUpdate(ctx context.Context, id int64) (ledger.Invoice, error) {
	return loadInvoice(ctx, r.tx, id, true)
}

// querier is satisfied by both pgx.Tx and *pgxpool.Pool.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func loadInvoice(ctx context.Context, q querier, id int64, lock bool) (ledger.Invoice, error) {
	query := `SELECT id, code, source, status, COALESCE(staff_id, 0), COALESCE(customer_id, 0), COALESCE(work_shift_id, 0),
COALESCE(voucher_id, 0), total_amount, discount_amount, payment_method, delivery_address, created_at, updated_at
FROM invoices WHERE id=$1`
	if lock {
		query += ` FOR UPDATE`
	}
	var inv ledger.Invoice
	var source, status, method string
	err := q.QueryRow(ctx, query, id).
		Scan(&inv.ID, &inv.Code, &source, &status, &inv.StaffID, &inv.CustomerID, &inv.WorkShiftID, &inv.VoucherID,
			&inv.TotalAmount, &inv.DiscountAmount, &method, &inv.DeliveryAddress, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return ledger.Invoice{}, notFound(err, "invoice", id)
	}
	inv.Source = ledger.InvoiceSource(source)
	inv.Status = ledger.InvoiceStatus(status)
	inv.PaymentMethod = ledger.PaymentMethod(method)

	rows, err := q.Query(ctx, `SELECT id, invoice_id, product_id, quantity, unit_price, line_total FROM invoice_items WHERE invoice_id=$1 ORDER BY id`, id)
	if err != nil {
		return ledger.Invoice{}, fmt.Errorf("ledger/postgres: invoice items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var item ledger.InvoiceItem
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.LineTotal); err != nil {
			return ledger.Invoice{}, err
		}
		inv.Items = append(inv.Items, item)
	}
	return inv, rows.Err()
}

func (r *txRepository) UpdateInvoiceStatus(ctx context.Context, id int64, status ledger.InvoiceStatus, staffID int64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE invoices SET status=$2, staff_id=COALESCE($3, staff_id), updated_at=NOW() WHERE id=$1`, id, string(status), nullInt(staffID))
	if err != nil {
		return fmt.Errorf("ledger/postgres: update invoice status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("invoice", id)
	}
	return nil
}

func (r *txRepository) ReturnedQuantities(ctx context.Context, invoiceID int64) (map[int64]int64, error) {
	rows, err := r.tx.Query(ctx, `SELECT ri.product_id, SUM(ri.quantity)::BIGINT
FROM return_items ri JOIN return_invoices ret ON ret.id = ri.return_invoice_id
WHERE ret.invoice_id=$1 GROUP BY ri.product_id`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("ledger/postgres: returned quantities: %w", err)
	}
	defer rows.Close()
	out := make(map[int64]int64)
	for rows.Next() {
		var productID, qty int64
		if err := rows.Scan(&productID, &qty); err != nil {
			return nil, err
		}
		out[productID] = qty
	}
	return out, rows.Err()
}

func (r *txRepository) InsertReturnInvoice(ctx context.Context, ret ledger.ReturnInvoice) (ledger.ReturnInvoice, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO return_invoices (invoice_id, staff_id, refund_amount, reason, created_at)
VALUES ($1,$2,$3,$4,NOW()) RETURNING id, created_at`, ret.InvoiceID, ret.StaffID, ret.RefundAmount, ret.Reason).Scan(&ret.ID, &ret.CreatedAt)
	if err != nil {
		return ledger.ReturnInvoice{}, fmt.Errorf("ledger/postgres: insert return: %w", err)
	}
	for i := range ret.Items {
		item := &ret.Items[i]
		item.ReturnInvoiceID = ret.ID
		if err := r.tx.QueryRow(ctx, `INSERT INTO return_items (return_invoice_id, product_id, quantity, is_restocked)
VALUES ($1,$2,$3,$4) RETURNING id`, ret.ID, item.ProductID, item.Quantity, item.IsRestocked).Scan(&item.ID); err != nil {
			return ledger.ReturnInvoice{}, fmt.Errorf("ledger/postgres: insert return item: %w", err)
		}
	}
	return ret, nil
}

const shiftColumns = `id, staff_id, start_time, end_time, initial_cash, system_revenue, actual_cash, difference, note`

func (r *txRepository) GetOpenShiftForUpdate(ctx context.Context, staffID int64) (ledger.WorkShift, error) {
	var s ledger.WorkShift
	err := r.tx.QueryRow(ctx, `SELECT `+shiftColumns+` FROM work_shifts WHERE staff_id=$1 AND end_time IS NULL FOR UPDATE`, staffID).
		Scan(&s.ID, &s.StaffID, &s.StartTime, &s.EndTime, &s.InitialCash, &s.SystemRevenue, &s.ActualCash, &s.Difference, &s.Note)
	if err != nil {
		return ledger.WorkShift{}, notFound(err, "open shift for staff", staffID)
	}
	return s, nil
}

func (r *txRepository) InsertShift(ctx context.Context, s ledger.WorkShift) (ledger.WorkShift, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO work_shifts (staff_id, start_time, initial_cash, note) VALUES ($1, NOW(), $2, $3) RETURNING id, start_time`,
		s.StaffID, s.InitialCash, s.Note).Scan(&s.ID, &s.StartTime)
	if err != nil {
		if db.IsUniqueViolation(err, "work_shifts_one_open") {
			return ledger.WorkShift{}, shared.InvalidState("staff %d already has an open shift", s.StaffID)
		}
		return ledger.WorkShift{}, fmt.Errorf("ledger/postgres: insert shift: %w", err)
	}
	return s, nil
}

func (r *txRepository) CloseShift(ctx context.Context, s ledger.WorkShift) error {
	tag, err := r.tx.Exec(ctx, `UPDATE work_shifts SET end_time=$2, system_revenue=$3, actual_cash=$4, difference=$5, note=$6 WHERE id=$1 AND end_time IS NULL`,
		s.ID, s.EndTime, s.SystemRevenue, s.ActualCash, s.Difference, s.Note)
	if err != nil {
		return fmt.Errorf("ledger/postgres: close shift: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.InvalidState("shift %d is not open", s.ID)
	}
	return nil
}

func (r *txRepository) CashRevenue(ctx context.Context, shiftID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(SUM(total_amount), 0) FROM invoices WHERE work_shift_id=$1 AND payment_method=$2 AND status=$3`,
		shiftID, string(ledger.PaymentCash), string(ledger.StatusCompleted)).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ledger/postgres: cash revenue: %w", err)
	}
	return total, nil
}

const voucherColumns = `id, code, type, value, min_order_value, max_discount, start_date, end_date, is_active, used_count, created_at`

func scanVoucher(row pgx.Row) (ledger.Voucher, error) {
	var v ledger.Voucher
	var typ string
	err := row.Scan(&v.ID, &v.Code, &typ, &v.Value, &v.MinOrderValue, &v.MaxDiscount, &v.StartDate, &v.EndDate, &v.IsActive, &v.UsedCount, &v.CreatedAt)
	v.Type = ledger.VoucherType(typ)
	return v, err
}

func (r *txRepository) GetVoucher(ctx context.Context, id int64) (ledger.Voucher, error) {
	v, err := scanVoucher(r.tx.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return ledger.Voucher{}, notFound(err, "voucher", id)
	}
	return v, nil
}

func (r *txRepository) GetVoucherByCodeForUpdate(ctx context.Context, code string) (ledger.Voucher, error) {
	v, err := scanVoucher(r.tx.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE code=$1 FOR UPDATE`, code))
	if err != nil {
		return ledger.Voucher{}, notFound(err, "voucher", code)
	}
	return v, nil
}

func (r *txRepository) InsertVoucher(ctx context.Context, v ledger.Voucher) (ledger.Voucher, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO vouchers (code, type, value, min_order_value, max_discount, start_date, end_date, is_active, used_count, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,0,NOW()) RETURNING id, created_at`,
		v.Code, string(v.Type), v.Value, v.MinOrderValue, v.MaxDiscount, v.StartDate, v.EndDate, v.IsActive).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, "vouchers_code_key") {
			return ledger.Voucher{}, shared.Conflict("voucher", "code", v.Code)
		}
		return ledger.Voucher{}, fmt.Errorf("ledger/postgres: insert voucher: %w", err)
	}
	v.UsedCount = 0
	return v, nil
}

func (r *txRepository) DeleteVoucher(ctx context.Context, id int64) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM vouchers WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("ledger/postgres: delete voucher: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("voucher", id)
	}
	return nil
}

func (r *txRepository) AddVoucherUsage(ctx context.Context, id, delta int64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE vouchers SET used_count = GREATEST(used_count + $2, 0) WHERE id=$1`, id, delta)
	if err != nil {
		return fmt.Errorf("ledger/postgres: voucher usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("voucher", id)
	}
	return nil
}

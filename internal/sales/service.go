package sales

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-mart/internal/inventory"
	"github.com/odyssey-erp/odyssey-mart/internal/ledger"
	"github.com/odyssey-erp/odyssey-mart/internal/pricing"
	"github.com/odyssey-erp/odyssey-mart/internal/shared"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// StockWatcher is told about products whose stock changed in a committed sale.
type StockWatcher interface {
	NotifyLowStock(ctx context.Context, products map[int64]ledger.Product)
}

// MetricsPort receives sales outcomes.
type MetricsPort interface {
	StockMoved(changeType string, qty int64)
	OperationFailed(op string, err error)
	InvoiceRecorded(source string, amount decimal.Decimal)
}

// Service runs POS sales, online orders and returns.
type Service struct {
	store   ledger.Store
	audit   AuditPort
	watcher StockWatcher
	metrics MetricsPort
	logger  *slog.Logger
	now     func() time.Time
}

// NewService builds Service. audit, watcher and metrics may be nil.
func NewService(store ledger.Store, audit AuditPort, watcher StockWatcher, metrics MetricsPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, audit: audit, watcher: watcher, metrics: metrics, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

func validateLines(items []LineInput) error {
	if len(items) == 0 {
		return shared.InvalidInput("items", "must not be empty")
	}
	for i, item := range items {
		if item.ProductID <= 0 {
			return shared.InvalidInput(fmt.Sprintf("items[%d].productId", i), "required")
		}
		if item.Quantity <= 0 {
			return shared.InvalidInput(fmt.Sprintf("items[%d].quantity", i), "must be positive")
		}
	}
	return nil
}

func productIDs(items []LineInput) []int64 {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

// priceLines checks every line against the locked products and snapshots the retail price.
// Repeated products are checked against their combined quantity.
func priceLines(products map[int64]ledger.Product, items []LineInput) ([]ledger.InvoiceItem, decimal.Decimal, error) {
	wanted := make(map[int64]int64, len(items))
	lines := make([]ledger.InvoiceItem, 0, len(items))
	subtotal := decimal.Zero
	for _, item := range items {
		p := products[item.ProductID]
		if !p.IsActive {
			return nil, decimal.Zero, shared.InvalidState("product %d (%s) is not available", p.ID, p.Name)
		}
		wanted[p.ID] += item.Quantity
		if wanted[p.ID] > p.StockQuantity {
			return nil, decimal.Zero, shared.InsufficientStock(p.ID, wanted[p.ID], p.StockQuantity)
		}
		lineTotal := p.RetailPrice.Mul(decimal.NewFromInt(item.Quantity))
		subtotal = subtotal.Add(lineTotal)
		lines = append(lines, ledger.InvoiceItem{
			ProductID: p.ID,
			Quantity:  item.Quantity,
			UnitPrice: p.RetailPrice,
			LineTotal: lineTotal,
		})
	}
	return lines, subtotal, nil
}

func (s *Service) lookupVoucher(ctx context.Context, tx ledger.Tx, code string) (*ledger.Voucher, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	v, err := tx.GetVoucherByCodeForUpdate(ctx, code)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// sell deducts the invoice lines from the locked products and logs each movement.
func sell(ctx context.Context, tx ledger.Tx, products map[int64]ledger.Product, inv ledger.Invoice, staffID int64, note string) error {
	for _, item := range inv.Items {
		p := products[item.ProductID]
		if _, err := inventory.ApplyMovement(ctx, tx, &p, inventory.Movement{
			ChangeType: ledger.ChangeSell,
			Delta:      -item.Quantity,
			StaffID:    staffID,
			InvoiceID:  inv.ID,
			Note:       note,
		}); err != nil {
			return err
		}
		products[p.ID] = p
	}
	return nil
}

// CreatePOSInvoice sells goods at the counter inside the staff's open shift.
func (s *Service) CreatePOSInvoice(ctx context.Context, staffID int64, in POSInput) (ledger.Invoice, error) {
	inv, touched, err := s.createPOSInvoice(ctx, staffID, in)
	if err != nil {
		s.failed("create_pos_invoice", err)
		return ledger.Invoice{}, err
	}
	s.committed(ctx, inv, touched)
	s.logger.InfoContext(ctx, "pos invoice created",
		slog.Int64("invoice_id", inv.ID),
		slog.String("code", inv.Code),
		slog.Int64("staff_id", staffID),
		slog.Int64("shift_id", inv.WorkShiftID),
		slog.String("total", inv.TotalAmount.String()))
	s.record(ctx, staffID, "sales.pos", inv.ID, map[string]any{"code": inv.Code, "total": inv.TotalAmount.String()})
	return inv, nil
}

func (s *Service) createPOSInvoice(ctx context.Context, staffID int64, in POSInput) (ledger.Invoice, map[int64]ledger.Product, error) {
	if staffID <= 0 {
		return ledger.Invoice{}, nil, shared.InvalidInput("staffId", "required")
	}
	if err := validateLines(in.Items); err != nil {
		return ledger.Invoice{}, nil, err
	}
	method := in.PaymentMethod
	if method == "" {
		method = ledger.PaymentCash
	}
	if !method.Valid() {
		return ledger.Invoice{}, nil, shared.InvalidInput("paymentMethod", "unknown payment method "+string(method))
	}
	now := s.now()
	var inv ledger.Invoice
	var products map[int64]ledger.Product
	err := s.store.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		shift, err := tx.GetOpenShiftForUpdate(ctx, staffID)
		if err != nil {
			if shared.KindOf(err) == shared.ErrNotFound {
				return shared.InvalidState("staff %d has no open shift", staffID)
			}
			return err
		}
		var customer *ledger.Customer
		if in.CustomerID != 0 {
			c, err := tx.GetCustomerForUpdate(ctx, in.CustomerID)
			if err != nil {
				return err
			}
			customer = &c
		}
		voucher, err := s.lookupVoucher(ctx, tx, in.VoucherCode)
		if err != nil {
			return err
		}
		products, err = tx.LockProducts(ctx, productIDs(in.Items))
		if err != nil {
			return err
		}
		lines, subtotal, err := priceLines(products, in.Items)
		if err != nil {
			return err
		}
		quote, err := pricing.Price(subtotal, customer, voucher, now)
		if err != nil {
			return err
		}

		draft := ledger.Invoice{
			Code:           shared.DocumentCode("HD-", now),
			Source:         ledger.SourcePOS,
			Status:         ledger.StatusCompleted,
			StaffID:        staffID,
			CustomerID:     in.CustomerID,
			WorkShiftID:    shift.ID,
			TotalAmount:    quote.Total,
			DiscountAmount: quote.Discount,
			PaymentMethod:  method,
			Items:          lines,
		}
		if voucher != nil {
			draft.VoucherID = voucher.ID
		}
		inv, err = tx.InsertInvoice(ctx, draft)
		if err != nil {
			return err
		}
		if err := sell(ctx, tx, products, inv, staffID, "POS invoice "+inv.Code); err != nil {
			return err
		}
		if voucher != nil {
			if err := tx.AddVoucherUsage(ctx, voucher.ID, 1); err != nil {
				return err
			}
		}
		if customer != nil {
			if err := tx.AddCustomerPoints(ctx, customer.ID, pricing.PointsFor(quote.Total)); err != nil {
				return err
			}
		}
		return nil
	})
	return inv, products, err
}

// CreateOnlineOrder places a PENDING storefront order. Stock is checked but not deducted until confirmation.
func (s *Service) CreateOnlineOrder(ctx context.Context, customerID int64, in OnlineOrderInput) (ledger.Invoice, error) {
	inv, err := s.createOnlineOrder(ctx, customerID, in)
	if err != nil {
		s.failed("create_online_order", err)
		return ledger.Invoice{}, err
	}
	if s.metrics != nil {
		s.metrics.InvoiceRecorded(string(inv.Source), inv.TotalAmount)
	}
	s.logger.InfoContext(ctx, "online order created",
		slog.Int64("invoice_id", inv.ID),
		slog.String("code", inv.Code),
		slog.Int64("customer_id", customerID),
		slog.String("total", inv.TotalAmount.String()))
	s.record(ctx, 0, "sales.online_order", inv.ID, map[string]any{"code": inv.Code, "customer_id": customerID})
	return inv, nil
}

func (s *Service) createOnlineOrder(ctx context.Context, customerID int64, in OnlineOrderInput) (ledger.Invoice, error) {
	if customerID <= 0 {
		return ledger.Invoice{}, shared.InvalidInput("customerId", "required")
	}
	if err := validateLines(in.Items); err != nil {
		return ledger.Invoice{}, err
	}
	address := strings.TrimSpace(in.DeliveryAddress)
	if address == "" {
		return ledger.Invoice{}, shared.InvalidInput("deliveryAddress", "required")
	}
	method := in.PaymentMethod
	if method == "" {
		method = ledger.PaymentCOD
	}
	if !method.Valid() {
		return ledger.Invoice{}, shared.InvalidInput("paymentMethod", "unknown payment method "+string(method))
	}
	now := s.now()
	var inv ledger.Invoice
	err := s.store.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		customer, err := tx.GetCustomerForUpdate(ctx, customerID)
		if err != nil {
			return err
		}
		voucher, err := s.lookupVoucher(ctx, tx, in.VoucherCode)
		if err != nil {
			return err
		}
		products, err := tx.LockProducts(ctx, productIDs(in.Items))
		if err != nil {
			return err
		}
		lines, subtotal, err := priceLines(products, in.Items)
		if err != nil {
			return err
		}
		quote, err := pricing.Price(subtotal, &customer, voucher, now)
		if err != nil {
			return err
		}
		draft := ledger.Invoice{
			Code:            shared.DocumentCode("WEB-", now),
			Source:          ledger.SourceOnline,
			Status:          ledger.StatusPending,
			CustomerID:      customerID,
			TotalAmount:     quote.Total,
			DiscountAmount:  quote.Discount,
			PaymentMethod:   method,
			DeliveryAddress: address,
			Items:           lines,
		}
		if voucher != nil {
			draft.VoucherID = voucher.ID
		}
		inv, err = tx.InsertInvoice(ctx, draft)
		if err != nil {
			return err
		}
		if voucher != nil {
			return tx.AddVoucherUsage(ctx, voucher.ID, 1)
		}
		return nil
	})
	return inv, err
}

// UpdateOrderStatus moves an invoice through its lifecycle, applying the stock, point and voucher
// side effects of the move in the same transaction.
func (s *Service) UpdateOrderStatus(ctx context.Context, invoiceID int64, status ledger.InvoiceStatus, staffID int64) (ledger.Invoice, error) {
	inv, from, touched, err := s.updateOrderStatus(ctx, invoiceID, status, staffID)
	if err != nil {
		s.failed("update_order_status", err)
		return ledger.Invoice{}, err
	}
	if from == status {
		return inv, nil
	}
	switch status {
	case ledger.StatusConfirmed, ledger.StatusCompleted:
		if !stockCommitted(from) {
			s.sold(ctx, inv, touched)
		}
	case ledger.StatusCancelled:
		if stockCommitted(from) {
			for _, item := range inv.Items {
				s.moved(ledger.ChangeReturn, item.Quantity)
			}
		}
	}
	s.logger.InfoContext(ctx, "order status updated",
		slog.Int64("invoice_id", inv.ID),
		slog.String("code", inv.Code),
		slog.String("from", string(from)),
		slog.String("to", string(status)),
		slog.Int64("staff_id", staffID))
	s.record(ctx, staffID, "sales.order_status", inv.ID, map[string]any{"from": string(from), "to": string(status)})
	return inv, nil
}

func (s *Service) updateOrderStatus(ctx context.Context, invoiceID int64, status ledger.InvoiceStatus, staffID int64) (ledger.Invoice, ledger.InvoiceStatus, map[int64]ledger.Product, error) {
	if invoiceID <= 0 {
		return ledger.Invoice{}, "", nil, shared.InvalidInput("invoiceId", "required")
	}
	if !status.Valid() {
		return ledger.Invoice{}, "", nil, shared.InvalidInput("status", "unknown status "+string(status))
	}
	var inv ledger.Invoice
	var from ledger.InvoiceStatus
	var products map[int64]ledger.Product
	err := s.store.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		inv, err = tx.GetInvoiceForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		from = inv.Status
		if from == ledger.StatusCompleted && status == ledger.StatusCompleted {
			return nil
		}
		if !CanTransition(from, status) {
			return shared.InvalidState("invoice %s cannot move from %s to %s", inv.Code, from, status)
		}

		switch status {
		case ledger.StatusConfirmed:
			products, err = confirm(ctx, tx, inv, staffID)
			if err != nil {
				return err
			}
		case ledger.StatusCompleted:
			if inv.CustomerID != 0 {
				if err := tx.AddCustomerPoints(ctx, inv.CustomerID, pricing.PointsFor(inv.TotalAmount)); err != nil {
					return err
				}
			}
			if !stockCommitted(from) {
				products, err = confirm(ctx, tx, inv, staffID)
				if err != nil {
					return err
				}
			}
		case ledger.StatusCancelled:
			if inv.VoucherID != 0 {
				if err := tx.AddVoucherUsage(ctx, inv.VoucherID, -1); err != nil {
					return err
				}
			}
			if stockCommitted(from) {
				products, err = tx.LockProducts(ctx, invoiceProductIDs(inv))
				if err != nil {
					return err
				}
				for _, item := range inv.Items {
					p := products[item.ProductID]
					if _, err := inventory.ApplyMovement(ctx, tx, &p, inventory.Movement{
						ChangeType: ledger.ChangeReturn,
						Delta:      item.Quantity,
						StaffID:    staffID,
						InvoiceID:  inv.ID,
						Note:       "Cancel online order " + inv.Code,
					}); err != nil {
						return err
					}
					products[p.ID] = p
				}
			}
		}

		if err := tx.UpdateInvoiceStatus(ctx, inv.ID, status, staffID); err != nil {
			return err
		}
		inv.Status = status
		if staffID != 0 {
			inv.StaffID = staffID
		}
		inv.UpdatedAt = s.now()
		return nil
	})
	return inv, from, products, err
}

// confirm re-checks and deducts the stock of a pending order under the product row locks.
func confirm(ctx context.Context, tx ledger.Tx, inv ledger.Invoice, staffID int64) (map[int64]ledger.Product, error) {
	products, err := tx.LockProducts(ctx, invoiceProductIDs(inv))
	if err != nil {
		return nil, err
	}
	if err := sell(ctx, tx, products, inv, staffID, "Confirm online order "+inv.Code); err != nil {
		return nil, err
	}
	return products, nil
}

func invoiceProductIDs(inv ledger.Invoice) []int64 {
	ids := make([]int64, 0, len(inv.Items))
	for _, item := range inv.Items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

// ReturnInvoice takes back goods of a completed invoice, refunding the sale price snapshot.
func (s *Service) ReturnInvoice(ctx context.Context, staffID int64, in ReturnInput) (ledger.ReturnInvoice, error) {
	ret, touched, err := s.returnInvoice(ctx, staffID, in)
	if err != nil {
		s.failed("return_invoice", err)
		return ledger.ReturnInvoice{}, err
	}
	for _, item := range ret.Items {
		if item.IsRestocked {
			s.moved(ledger.ChangeReturn, item.Quantity)
		}
	}
	if s.watcher != nil {
		s.watcher.NotifyLowStock(ctx, touched)
	}
	s.logger.InfoContext(ctx, "invoice returned",
		slog.Int64("return_id", ret.ID),
		slog.Int64("invoice_id", ret.InvoiceID),
		slog.Int64("staff_id", staffID),
		slog.String("refund", ret.RefundAmount.String()))
	s.record(ctx, staffID, "sales.return", ret.InvoiceID, map[string]any{"return_id": ret.ID, "refund": ret.RefundAmount.String()})
	return ret, nil
}

func (s *Service) returnInvoice(ctx context.Context, staffID int64, in ReturnInput) (ledger.ReturnInvoice, map[int64]ledger.Product, error) {
	if staffID <= 0 {
		return ledger.ReturnInvoice{}, nil, shared.InvalidInput("staffId", "required")
	}
	if in.InvoiceID <= 0 {
		return ledger.ReturnInvoice{}, nil, shared.InvalidInput("invoiceId", "required")
	}
	if len(in.Items) == 0 {
		return ledger.ReturnInvoice{}, nil, shared.InvalidInput("items", "must not be empty")
	}
	for i, item := range in.Items {
		if item.Quantity <= 0 {
			return ledger.ReturnInvoice{}, nil, shared.InvalidInput(fmt.Sprintf("items[%d].quantity", i), "must be positive")
		}
	}

	var ret ledger.ReturnInvoice
	var products map[int64]ledger.Product
	err := s.store.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, in.InvoiceID)
		if err != nil {
			return err
		}
		if inv.Status != ledger.StatusCompleted {
			return shared.InvalidState("invoice %s is %s, only completed invoices can be returned", inv.Code, inv.Status)
		}

		purchased := make(map[int64]int64, len(inv.Items))
		unitPrice := make(map[int64]decimal.Decimal, len(inv.Items))
		for _, item := range inv.Items {
			purchased[item.ProductID] += item.Quantity
			if _, ok := unitPrice[item.ProductID]; !ok {
				unitPrice[item.ProductID] = item.UnitPrice
			}
		}
		returned, err := tx.ReturnedQuantities(ctx, inv.ID)
		if err != nil {
			return err
		}

		refund := decimal.Zero
		items := make([]ledger.ReturnItem, 0, len(in.Items))
		ids := make([]int64, 0, len(in.Items))
		for i, line := range in.Items {
			bought, ok := purchased[line.ProductID]
			if !ok {
				return shared.InvalidInput(fmt.Sprintf("items[%d].productId", i), fmt.Sprintf("product %d is not on invoice %s", line.ProductID, inv.Code))
			}
			returned[line.ProductID] += line.Quantity
			if returned[line.ProductID] > bought {
				return shared.InvalidInput(fmt.Sprintf("items[%d].quantity", i),
					fmt.Sprintf("returning %d of product %d exceeds the %d purchased", returned[line.ProductID], line.ProductID, bought))
			}
			refund = refund.Add(unitPrice[line.ProductID].Mul(decimal.NewFromInt(line.Quantity)))
			items = append(items, ledger.ReturnItem{ProductID: line.ProductID, Quantity: line.Quantity, IsRestocked: line.IsRestocked})
			ids = append(ids, line.ProductID)
		}

		if inv.CustomerID != 0 {
			if points := pricing.PointsFor(refund); points > 0 {
				if err := tx.AddCustomerPoints(ctx, inv.CustomerID, -points); err != nil {
					return err
				}
			}
		}
		products, err = tx.LockProducts(ctx, ids)
		if err != nil {
			return err
		}
		ret, err = tx.InsertReturnInvoice(ctx, ledger.ReturnInvoice{
			InvoiceID:    inv.ID,
			StaffID:      staffID,
			RefundAmount: refund,
			Reason:       in.Reason,
			Items:        items,
		})
		if err != nil {
			return err
		}

		for _, item := range items {
			p := products[item.ProductID]
			m := inventory.Movement{
				ChangeType:      ledger.ChangeDamage,
				StaffID:         staffID,
				InvoiceID:       inv.ID,
				ReturnInvoiceID: ret.ID,
				Note:            fmt.Sprintf("Returned damaged from invoice %s", inv.Code),
			}
			if item.IsRestocked {
				m.ChangeType = ledger.ChangeReturn
				m.Delta = item.Quantity
				m.Note = fmt.Sprintf("Return from invoice %s", inv.Code)
			}
			if _, err := inventory.ApplyMovement(ctx, tx, &p, m); err != nil {
				return err
			}
			products[p.ID] = p
		}
		return nil
	})
	return ret, products, err
}

// GetInvoice loads an invoice with its lines.
func (s *Service) GetInvoice(ctx context.Context, id int64) (ledger.Invoice, error) {
	if id <= 0 {
		return ledger.Invoice{}, shared.InvalidInput("id", "required")
	}
	return s.store.GetInvoice(ctx, id)
}

func (s *Service) committed(ctx context.Context, inv ledger.Invoice, touched map[int64]ledger.Product) {
	s.sold(ctx, inv, touched)
	if s.metrics != nil {
		s.metrics.InvoiceRecorded(string(inv.Source), inv.TotalAmount)
	}
}

// sold reports the stock an invoice took out once its transaction committed.
func (s *Service) sold(ctx context.Context, inv ledger.Invoice, touched map[int64]ledger.Product) {
	for _, item := range inv.Items {
		s.moved(ledger.ChangeSell, item.Quantity)
	}
	if s.watcher != nil {
		s.watcher.NotifyLowStock(ctx, touched)
	}
}

func (s *Service) moved(changeType ledger.ChangeType, qty int64) {
	if s.metrics != nil {
		s.metrics.StockMoved(string(changeType), qty)
	}
}

func (s *Service) failed(op string, err error) {
	if s.metrics != nil {
		s.metrics.OperationFailed(op, err)
	}
}

func (s *Service) record(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: "invoice", EntityID: strconv.FormatInt(id, 10), Meta: meta, At: s.now()}); err != nil {
		s.logger.WarnContext(ctx, "audit sales", slog.String("action", action), slog.Any("error", err))
	}
}

package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-mart/internal/ledger"
	"github.com/odyssey-erp/odyssey-mart/internal/shared"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort receives committed stock movements.
type MetricsPort interface {
	StockMoved(changeType string, qty int64)
	OperationFailed(op string, err error)
}

// Service coordinates goods receipts and stock adjustments.
type Service struct {
	store    ledger.Store
	audit    AuditPort
	notifier LowStockNotifier
	metrics  MetricsPort
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds Service. audit, notifier and metrics may be nil.
func NewService(store ledger.Store, audit AuditPort, notifier LowStockNotifier, metrics MetricsPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, audit: audit, notifier: notifier, metrics: metrics, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// CreateImportReceipt receives goods, recomputing the weighted-average import price of every line.
func (s *Service) CreateImportReceipt(ctx context.Context, in ImportReceiptInput) (ledger.ImportReceipt, error) {
	receipt, err := s.createImportReceipt(ctx, in)
	if err != nil {
		s.failed("create_import_receipt", err)
		return ledger.ImportReceipt{}, err
	}
	for _, item := range receipt.Items {
		s.moved(ledger.ChangeImport, item.Quantity)
	}
	s.logger.InfoContext(ctx, "import receipt created",
		slog.Int64("receipt_id", receipt.ID),
		slog.String("code", receipt.Code),
		slog.Int("lines", len(receipt.Items)),
		slog.String("total_cost", receipt.TotalCost.String()))
	s.record(ctx, in.StaffID, "inventory.import", "import_receipt", receipt.ID, map[string]any{"code": receipt.Code, "total_cost": receipt.TotalCost.String()})
	return receipt, nil
}

func validateReceipt(in ImportReceiptInput) error {
	if in.SupplierID <= 0 {
		return shared.InvalidInput("supplierId", "required")
	}
	if in.StaffID <= 0 {
		return shared.InvalidInput("staffId", "required")
	}
	if len(in.Lines) == 0 {
		return shared.InvalidInput("items", "must not be empty")
	}
	barcodes := make(map[string]struct{})
	for i, line := range in.Lines {
		field := fmt.Sprintf("items[%d]", i)
		if line == nil {
			return shared.InvalidInput(field, "missing line")
		}
		if line.quantity() <= 0 {
			return shared.InvalidInput(field+".quantity", "must be positive")
		}
		if line.unitCost().IsNegative() {
			return shared.InvalidInput(field+".unitCost", "must not be negative")
		}
		switch l := line.(type) {
		case ExistingProductLine:
			if l.ProductID <= 0 {
				return shared.InvalidInput(field+".productId", "required")
			}
		case NewProductLine:
			p := l.Product
			if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Barcode) == "" || p.CategoryID <= 0 || !p.RetailPrice.IsPositive() {
				return shared.InvalidInput(field+".productData", "name, barcode, categoryId and retailPrice are required")
			}
			if _, dup := barcodes[p.Barcode]; dup {
				return shared.Conflict("product", "barcode", p.Barcode)
			}
			barcodes[p.Barcode] = struct{}{}
		}
	}
	return nil
}

func (s *Service) createImportReceipt(ctx context.Context, in ImportReceiptInput) (ledger.ImportReceipt, error) {
	if err := validateReceipt(in); err != nil {
		return ledger.ImportReceipt{}, err
	}
	now := s.now()
	code := shared.DocumentCode("PN_", now)
	var receipt ledger.ImportReceipt
	err := s.store.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		if _, err := tx.GetSupplier(ctx, in.SupplierID); err != nil {
			return err
		}
		var existingIDs []int64
		for _, line := range in.Lines {
			if l, ok := line.(ExistingProductLine); ok {
				existingIDs = append(existingIDs, l.ProductID)
			}
		}
		products, err := tx.LockProducts(ctx, existingIDs)
		if err != nil {
			return err
		}

		productIDs := make([]int64, len(in.Lines))
		totalCost := decimal.Zero
		items := make([]ledger.ImportItem, 0, len(in.Lines))
		for i, line := range in.Lines {
			switch l := line.(type) {
			case ExistingProductLine:
				productIDs[i] = l.ProductID
			case NewProductLine:
				created, err := s.insertNewProduct(ctx, tx, l)
				if err != nil {
					return err
				}
				products[created.ID] = created
				productIDs[i] = created.ID
			}
			lineTotal := decimal.NewFromInt(line.quantity()).Mul(line.unitCost())
			totalCost = totalCost.Add(lineTotal)
			items = append(items, ledger.ImportItem{
				ProductID: productIDs[i],
				Quantity:  line.quantity(),
				UnitCost:  line.unitCost(),
				LineTotal: lineTotal,
			})
		}

		receipt, err = tx.InsertImportReceipt(ctx, ledger.ImportReceipt{
			Code:       code,
			SupplierID: in.SupplierID,
			StaffID:    in.StaffID,
			TotalCost:  totalCost,
			Note:       in.Note,
			Items:      items,
		})
		if err != nil {
			return err
		}

		for i, line := range in.Lines {
			p := products[productIDs[i]]
			_, p.ImportPrice = WeightedAverage(p.StockQuantity, p.ImportPrice, line.quantity(), line.unitCost())
			if _, err := ApplyMovement(ctx, tx, &p, Movement{
				ChangeType:      ledger.ChangeImport,
				Delta:           line.quantity(),
				StaffID:         in.StaffID,
				ImportReceiptID: receipt.ID,
				Note:            "Import receipt " + code,
			}); err != nil {
				return err
			}
			products[p.ID] = p
		}
		return nil
	})
	return receipt, err
}

func (s *Service) insertNewProduct(ctx context.Context, tx ledger.Tx, l NewProductLine) (ledger.Product, error) {
	np := l.Product
	if _, err := tx.GetCategory(ctx, np.CategoryID); err != nil {
		return ledger.Product{}, err
	}
	if existing, err := tx.GetProductByBarcode(ctx, np.Barcode); err == nil {
		return ledger.Product{}, shared.Conflict("product", "barcode", existing.Barcode)
	} else if shared.KindOf(err) != shared.ErrNotFound {
		return ledger.Product{}, err
	}
	unit := np.Unit
	if unit == "" {
		unit = DefaultUnit
	}
	minStock := np.MinStockLevel
	if minStock <= 0 {
		minStock = DefaultMinStockLevel
	}
	packing := np.PackingQuantity
	if packing <= 0 {
		packing = 1
	}
	return tx.InsertProduct(ctx, ledger.Product{
		Barcode:         np.Barcode,
		Name:            np.Name,
		CategoryID:      np.CategoryID,
		ImportPrice:     l.UnitCost,
		RetailPrice:     np.RetailPrice,
		MinStockLevel:   minStock,
		Unit:            unit,
		PackingQuantity: packing,
		Description:     np.Description,
		IsActive:        true,
	})
}

// AdjustStock records damaged goods or sets the counted stock of an audit.
func (s *Service) AdjustStock(ctx context.Context, in AdjustStockInput, staffID int64) (ledger.StockLog, error) {
	log, product, err := s.adjustStock(ctx, in, staffID)
	if err != nil {
		s.failed("adjust_stock", err)
		return ledger.StockLog{}, err
	}
	s.moved(log.ChangeType, log.ChangeQuantity)
	s.logger.InfoContext(ctx, "stock adjusted",
		slog.Int64("product_id", log.ProductID),
		slog.String("change_type", string(log.ChangeType)),
		slog.Int64("change_quantity", log.ChangeQuantity),
		slog.Int64("current_stock", log.CurrentStock))
	s.record(ctx, staffID, "inventory.adjust", "product", log.ProductID, map[string]any{"change_type": string(log.ChangeType), "change_quantity": log.ChangeQuantity})
	s.NotifyLowStock(ctx, map[int64]ledger.Product{product.ID: product})
	return log, nil
}

func (s *Service) adjustStock(ctx context.Context, in AdjustStockInput, staffID int64) (ledger.StockLog, ledger.Product, error) {
	if in.ProductID <= 0 {
		return ledger.StockLog{}, ledger.Product{}, shared.InvalidInput("productId", "required")
	}
	note := in.Note
	switch in.ChangeType {
	case ledger.ChangeDamage:
		if in.Quantity <= 0 {
			return ledger.StockLog{}, ledger.Product{}, shared.InvalidInput("quantity", "damaged quantity must be positive")
		}
		if note == "" {
			note = "Damaged goods"
		}
	case ledger.ChangeAudit:
		if in.Quantity < 0 {
			return ledger.StockLog{}, ledger.Product{}, shared.InvalidInput("quantity", "counted quantity must not be negative")
		}
		if note == "" {
			note = "Stock audit"
		}
	default:
		return ledger.StockLog{}, ledger.Product{}, shared.InvalidInput("changeType", "must be DAMAGE or AUDIT")
	}

	var log ledger.StockLog
	var product ledger.Product
	err := s.store.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		products, err := tx.LockProducts(ctx, []int64{in.ProductID})
		if err != nil {
			return err
		}
		p := products[in.ProductID]
		delta := -in.Quantity
		if in.ChangeType == ledger.ChangeAudit {
			delta = in.Quantity - p.StockQuantity
		}
		log, err = ApplyMovement(ctx, tx, &p, Movement{
			ChangeType: in.ChangeType,
			Delta:      delta,
			StaffID:    staffID,
			Note:       note,
		})
		product = p
		return err
	})
	return log, product, err
}

// StockHistory returns the newest stock logs of a product.
func (s *Service) StockHistory(ctx context.Context, productID int64, limit int) ([]ledger.StockLog, error) {
	if productID <= 0 {
		return nil, shared.InvalidInput("productId", "required")
	}
	return s.store.StockLogs(ctx, productID, limit)
}

// LowStock lists active products at or below their reorder level.
func (s *Service) LowStock(ctx context.Context) ([]ledger.Product, error) {
	return s.store.LowStockProducts(ctx)
}

// NotifyLowStock forwards low-stock events for products touched by a committed operation.
// Notification failures are logged, the operation already succeeded.
func (s *Service) NotifyLowStock(ctx context.Context, products map[int64]ledger.Product) {
	if s == nil || s.notifier == nil {
		return
	}
	for _, evt := range LowStockEvents(products) {
		if err := s.notifier.NotifyLowStock(ctx, evt); err != nil {
			s.logger.WarnContext(ctx, "notify low stock", slog.Int64("product_id", evt.ProductID), slog.Any("error", err))
		}
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

func (s *Service) record(ctx context.Context, actorID int64, action, entity string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: entity, EntityID: strconv.FormatInt(id, 10), Meta: meta, At: s.now()}); err != nil {
		s.logger.WarnContext(ctx, "audit inventory", slog.String("action", action), slog.Any("error", err))
	}
}

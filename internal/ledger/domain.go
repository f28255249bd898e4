// Package ledger holds the persisted entities of the store and the transactional ports
// every sales and inventory operation runs through.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// ChangeType enumerates stock log movements.
type ChangeType string

const (
	ChangeImport ChangeType = "IMPORT"
	ChangeSell   ChangeType = "SELL"
	ChangeReturn ChangeType = "RETURN"
	ChangeDamage ChangeType = "DAMAGE"
	ChangeAudit  ChangeType = "AUDIT"
)

// InvoiceSource tells where an invoice was created.
type InvoiceSource string

const (
	SourcePOS    InvoiceSource = "POS"
	SourceOnline InvoiceSource = "ONLINE"
)

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

const (
	StatusPending   InvoiceStatus = "PENDING"
	StatusConfirmed InvoiceStatus = "CONFIRMED"
	StatusShipping  InvoiceStatus = "SHIPPING"
	StatusCompleted InvoiceStatus = "COMPLETED"
	StatusCancelled InvoiceStatus = "CANCELLED"
)

// Valid reports whether s is a known status.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusShipping, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// PaymentMethod enumerates accepted tenders.
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "CASH"
	PaymentCard         PaymentMethod = "CARD"
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentEWallet      PaymentMethod = "E_WALLET"
	PaymentCOD          PaymentMethod = "COD"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentBankTransfer, PaymentEWallet, PaymentCOD:
		return true
	}
	return false
}

// VoucherType selects how a voucher value is applied.
type VoucherType string

const (
	VoucherPercentage  VoucherType = "PERCENTAGE"
	VoucherFixedAmount VoucherType = "FIXED_AMOUNT"
)

// Product is a sellable item. Stock and import price change only through engine operations.
type Product struct {
	ID              int64           `json:"id"`
	Barcode         string          `json:"barcode"`
	Name            string          `json:"name"`
	CategoryID      int64           `json:"categoryId"`
	StockQuantity   int64           `json:"stockQuantity"`
	ImportPrice     decimal.Decimal `json:"importPrice"`
	RetailPrice     decimal.Decimal `json:"retailPrice"`
	MinStockLevel   int64           `json:"minStockLevel"`
	Unit            string          `json:"unit"`
	PackingQuantity int64           `json:"packingQuantity"`
	Description     string          `json:"description"`
	IsActive        bool            `json:"isActive"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Category groups products.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Supplier delivers goods receipts.
type Supplier struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// ImportReceipt is an append-only goods receipt.
type ImportReceipt struct {
	ID         int64           `json:"id"`
	Code       string          `json:"code"`
	SupplierID int64           `json:"supplierId"`
	StaffID    int64           `json:"staffId"`
	TotalCost  decimal.Decimal `json:"totalCost"`
	Note       string          `json:"note"`
	CreatedAt  time.Time       `json:"createdAt"`
	Items      []ImportItem    `json:"items"`
}

// ImportItem is one received line.
type ImportItem struct {
	ID        int64           `json:"id"`
	ReceiptID int64           `json:"receiptId"`
	ProductID int64           `json:"productId"`
	Quantity  int64           `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unitCost"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// StockLog is the immutable history of a product's stock quantity.
type StockLog struct {
	ID              int64      `json:"id"`
	ProductID       int64      `json:"productId"`
	StaffID         int64      `json:"staffId"`
	ChangeType      ChangeType `json:"changeType"`
	ChangeQuantity  int64      `json:"changeQuantity"`
	CurrentStock    int64      `json:"currentStock"`
	ImportReceiptID int64      `json:"importReceiptId"`
	InvoiceID       int64      `json:"invoiceId"`
	ReturnInvoiceID int64      `json:"returnInvoiceId"`
	Note            string     `json:"note"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// Invoice is a POS sale or an online order. Zero ids mean "not set".
type Invoice struct {
	ID              int64           `json:"id"`
	Code            string          `json:"code"`
	Source          InvoiceSource   `json:"source"`
	Status          InvoiceStatus   `json:"status"`
	StaffID         int64           `json:"staffId"`
	CustomerID      int64           `json:"customerId"`
	WorkShiftID     int64           `json:"workShiftId"`
	VoucherID       int64           `json:"voucherId"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	DiscountAmount  decimal.Decimal `json:"discountAmount"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	DeliveryAddress string          `json:"deliveryAddress"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	Items           []InvoiceItem   `json:"items"`
}

// InvoiceItem snapshots the unit price at sale time.
type InvoiceItem struct {
	ID        int64           `json:"id"`
	InvoiceID int64           `json:"invoiceId"`
	ProductID int64           `json:"productId"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// ReturnInvoice reverses part of an invoice.
type ReturnInvoice struct {
	ID           int64           `json:"id"`
	InvoiceID    int64           `json:"invoiceId"`
	StaffID      int64           `json:"staffId"`
	RefundAmount decimal.Decimal `json:"refundAmount"`
	Reason       string          `json:"reason"`
	CreatedAt    time.Time       `json:"createdAt"`
	Items        []ReturnItem    `json:"items"`
}

// ReturnItem is one returned line.
type ReturnItem struct {
	ID              int64 `json:"id"`
	ReturnInvoiceID int64 `json:"returnInvoiceId"`
	ProductID       int64 `json:"productId"`
	Quantity        int64 `json:"quantity"`
	IsRestocked     bool  `json:"isRestocked"`
}

// WorkShift is a cashier drawer session. EndTime is nil while open.
type WorkShift struct {
	ID            int64           `json:"id"`
	StaffID       int64           `json:"staffId"`
	StartTime     time.Time       `json:"startTime"`
	EndTime       *time.Time      `json:"endTime,omitempty"`
	InitialCash   decimal.Decimal `json:"initialCash"`
	SystemRevenue decimal.Decimal `json:"systemRevenue"`
	ActualCash    decimal.Decimal `json:"actualCash"`
	Difference    decimal.Decimal `json:"difference"`
	Note          string          `json:"note"`
}

// Open reports whether the shift has not been closed yet.
func (s WorkShift) Open() bool { return s.EndTime == nil }

// Voucher is a promotion code. Zero MinOrderValue and MaxDiscount mean unset.
type Voucher struct {
	ID            int64           `json:"id"`
	Code          string          `json:"code"`
	Type          VoucherType     `json:"type"`
	Value         decimal.Decimal `json:"value"`
	MinOrderValue decimal.Decimal `json:"minOrderValue"`
	MaxDiscount   decimal.Decimal `json:"maxDiscount"`
	StartDate     time.Time       `json:"startDate"`
	EndDate       time.Time       `json:"endDate"`
	IsActive      bool            `json:"isActive"`
	UsedCount     int64           `json:"usedCount"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Customer is a loyalty member.
type Customer struct {
	ID           int64  `json:"id"`
	Phone        string `json:"phone"`
	Name         string `json:"name"`
	Points       int64  `json:"points"`
	PasswordHash string `json:"-"`
}

// StockDrift reports a product whose stock disagrees with its stock log history.
type StockDrift struct {
	ProductID      int64 `json:"productId"`
	StockQuantity  int64 `json:"stockQuantity"`
	LoggedQuantity int64 `json:"loggedQuantity"`
}

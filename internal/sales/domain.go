package sales

import (
	"slices"

	"github.com/odyssey-erp/odyssey-mart/internal/ledger"
)

// LineInput is one requested product line of a sale.
type LineInput struct {
	ProductID int64
	Quantity  int64
}

// POSInput describes a counter sale.
type POSInput struct {
	Items         []LineInput
	CustomerID    int64
	VoucherCode   string
	PaymentMethod ledger.PaymentMethod
}

// OnlineOrderInput describes a storefront order.
type OnlineOrderInput struct {
	Items           []LineInput
	VoucherCode     string
	DeliveryAddress string
	PaymentMethod   ledger.PaymentMethod
}

// ReturnLineInput is one returned product line.
type ReturnLineInput struct {
	ProductID   int64
	Quantity    int64
	IsRestocked bool
}

// ReturnInput describes a partial or full return of a completed invoice.
type ReturnInput struct {
	InvoiceID int64
	Reason    string
	Items     []ReturnLineInput
}

// transitions lists the allowed status moves of an invoice.
var transitions = map[ledger.InvoiceStatus][]ledger.InvoiceStatus{
	ledger.StatusPending:   {ledger.StatusConfirmed, ledger.StatusCompleted, ledger.StatusCancelled},
	ledger.StatusConfirmed: {ledger.StatusShipping, ledger.StatusCompleted, ledger.StatusCancelled},
	ledger.StatusShipping:  {ledger.StatusCompleted, ledger.StatusCancelled},
}

// CanTransition reports whether an invoice may move from one status to another.
func CanTransition(from, to ledger.InvoiceStatus) bool {
	return slices.Contains(transitions[from], to)
}

// stockCommitted reports whether the stock of an invoice in status s has been deducted.
func stockCommitted(s ledger.InvoiceStatus) bool {
	return s == ledger.StatusConfirmed || s == ledger.StatusShipping || s == ledger.StatusCompleted
}

// Package memory implements the ledger in process memory. Transactions are serialised by a
// single mutex and a failed transaction restores the snapshot taken when it began.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/odyssey-erp/odyssey-mart/internal/ledger"
	"github.com/odyssey-erp/odyssey-mart/internal/shared"
)

type state struct {
	nextID     int64
	products   map[int64]ledger.Product
	categories map[int64]ledger.Category
	suppliers  map[int64]ledger.Supplier
	customers  map[int64]ledger.Customer
	receipts   map[int64]ledger.ImportReceipt
	stockLogs  []ledger.StockLog
	invoices   map[int64]ledger.Invoice
	returns    map[int64]ledger.ReturnInvoice
	shifts     map[int64]ledger.WorkShift
	vouchers   map[int64]ledger.Voucher
}

func newState() *state {
	return &state{
		products:   make(map[int64]ledger.Product),
		categories: make(map[int64]ledger.Category),
		suppliers:  make(map[int64]ledger.Supplier),
		customers:  make(map[int64]ledger.Customer),
		receipts:   make(map[int64]ledger.ImportReceipt),
		invoices:   make(map[int64]ledger.Invoice),
		returns:    make(map[int64]ledger.ReturnInvoice),
		shifts:     make(map[int64]ledger.WorkShift),
		vouchers:   make(map[int64]ledger.Voucher),
	}
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *state) clone() *state {
	c := &state{
		nextID:     s.nextID,
		products:   cloneMap(s.products, nil),
		categories: cloneMap(s.categories, nil),
		suppliers:  cloneMap(s.suppliers, nil),
		customers:  cloneMap(s.customers, nil),
		receipts: cloneMap(s.receipts, func(r ledger.ImportReceipt) ledger.ImportReceipt {
			r.Items = slices.Clone(r.Items)
			return r
		}),
		stockLogs: slices.Clone(s.stockLogs),
		invoices: cloneMap(s.invoices, func(inv ledger.Invoice) ledger.Invoice {
			inv.Items = slices.Clone(inv.Items)
			return inv
		}),
		returns: cloneMap(s.returns, func(r ledger.ReturnInvoice) ledger.ReturnInvoice {
			r.Items = slices.Clone(r.Items)
			return r
		}),
		shifts:   cloneMap(s.shifts, nil),
		vouchers: cloneMap(s.vouchers, nil),
	}
	return c
}

func cloneMap[V any](in map[int64]V, deep func(V) V) map[int64]V {
	out := make(map[int64]V, len(in))
	for k, v := range in {
		if deep != nil {
			v = deep(v)
		}
		out[k] = v
	}
	return out
}

// Store is an in-memory ledger.Store.
type Store struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time
}

// New constructs an empty Store.
func New() *Store {
	return &Store{state: newState(), now: func() time.Time { return time.Now().UTC() }}
}

// WithTx runs fn with exclusive access to the ledger.
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, ledger.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := s.state.clone()
	if err := fn(ctx, &tx{st: s.state, now: s.now}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

// LowStockProducts lists active products at or below their reorder level.
func (s *Store) LowStockProducts(ctx context.Context) ([]ledger.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ledger.Product
	for _, p := range s.state.products {
		if p.IsActive && p.StockQuantity <= p.MinStockLevel {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b ledger.Product) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// StockLogs returns the newest logs of a product first.
func (s *Store) StockLogs(ctx context.Context, productID int64, limit int) ([]ledger.StockLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	var out []ledger.StockLog
	for i := len(s.state.stockLogs) - 1; i >= 0 && len(out) < limit; i-- {
		if s.state.stockLogs[i].ProductID == productID {
			out = append(out, s.state.stockLogs[i])
		}
	}
	return out, nil
}

// GetInvoice returns a copy of an invoice and its lines.
func (s *Store) GetInvoice(ctx context.Context, id int64) (ledger.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.state.invoices[id]
	if !ok {
		return ledger.Invoice{}, shared.NotFound("invoice", id)
	}
	inv.Items = slices.Clone(inv.Items)
	return inv, nil
}

// ReconcileStock compares each product's stock with the sum of its logged changes.
func (s *Store) ReconcileStock(ctx context.Context) ([]ledger.StockDrift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	logged := make(map[int64]int64)
	for _, l := range s.state.stockLogs {
		logged[l.ProductID] += l.ChangeQuantity
	}
	var drifts []ledger.StockDrift
	for id, p := range s.state.products {
		if logged[id] != p.StockQuantity {
			drifts = append(drifts, ledger.StockDrift{ProductID: id, StockQuantity: p.StockQuantity, LoggedQuantity: logged[id]})
		}
	}
	slices.SortFunc(drifts, func(a, b ledger.StockDrift) int { return cmp.Compare(a.ProductID, b.ProductID) })
	return drifts, nil
}

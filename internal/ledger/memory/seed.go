package memory

import (
	"github.com/odyssey-erp/odyssey-mart/internal/ledger"
)

// AddCategory stores a category and returns it with its id.
func (s *Store) AddCategory(c ledger.Category) ledger.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.state.id()
	s.state.categories[c.ID] = c
	return c
}

// AddSupplier stores a supplier and returns it with its id.
func (s *Store) AddSupplier(sup ledger.Supplier) ledger.Supplier {
	s.mu.Lock()
	defer s.mu.Unlock()
	sup.ID = s.state.id()
	s.state.suppliers[sup.ID] = sup
	return sup
}

// AddCustomer stores a customer and returns it with its id.
func (s *Store) AddCustomer(c ledger.Customer) ledger.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.state.id()
	s.state.customers[c.ID] = c
	return c
}

// AddProduct stores a product. A non-zero opening stock is recorded as an AUDIT log
// so the stock history stays reconstructable.
func (s *Store) AddProduct(p ledger.Product) ledger.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.state.id()
	p.CreatedAt = s.now()
	p.UpdatedAt = p.CreatedAt
	s.state.products[p.ID] = p
	if p.StockQuantity != 0 {
		s.state.stockLogs = append(s.state.stockLogs, ledger.StockLog{
			ID:             s.state.id(),
			ProductID:      p.ID,
			ChangeType:     ledger.ChangeAudit,
			ChangeQuantity: p.StockQuantity,
			CurrentStock:   p.StockQuantity,
			Note:           "Opening balance",
			CreatedAt:      p.CreatedAt,
		})
	}
	return p
}

// AddVoucher stores a voucher and returns it with its id.
func (s *Store) AddVoucher(v ledger.Voucher) ledger.Voucher {
	s.mu.Lock()
	defer s.mu.Unlock()
	v.ID = s.state.id()
	v.CreatedAt = s.now()
	s.state.vouchers[v.ID] = v
	return v
}

// Product returns the committed state of a product.
func (s *Store) Product(id int64) (ledger.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.state.products[id]
	return p, ok
}

// Customer returns the committed state of a customer.
func (s *Store) Customer(id int64) (ledger.Customer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.state.customers[id]
	return c, ok
}

// Voucher returns the committed state of a voucher.
func (s *Store) Voucher(id int64) (ledger.Voucher, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.state.vouchers[id]
	return v, ok
}

// Invoice returns the committed state of an invoice.
func (s *Store) Invoice(id int64) (ledger.Invoice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.state.invoices[id]
	return inv, ok
}

// Shift returns the committed state of a work shift.
func (s *Store) Shift(id int64) (ledger.WorkShift, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.state.shifts[id]
	return sh, ok
}

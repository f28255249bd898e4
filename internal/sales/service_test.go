package sales

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-mart/internal/ledger"
	"github.com/odyssey-erp/odyssey-mart/internal/ledger/memory"
	"github.com/odyssey-erp/odyssey-mart/internal/shared"
)

const cashier int64 = 7

var now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type watcherStub struct {
	calls int
}

func (w *watcherStub) NotifyLowStock(ctx context.Context, products map[int64]ledger.Product) {
	w.calls++
}

type fixture struct {
	store   *memory.Store
	svc     *Service
	watcher *watcherStub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	f := &fixture{store: store, watcher: &watcherStub{}}
	f.svc = NewService(store, nil, f.watcher, nil, nil)
	f.svc.now = func() time.Time { return now }
	return f
}

func (f *fixture) openShift(t *testing.T, staffID int64) ledger.WorkShift {
	t.Helper()
	var shift ledger.WorkShift
	require.NoError(t, f.store.WithTx(context.Background(), func(ctx context.Context, tx ledger.Tx) error {
		var err error
		shift, err = tx.InsertShift(ctx, ledger.WorkShift{StaffID: staffID, InitialCash: d("500000")})
		return err
	}))
	return shift
}

func (f *fixture) product(t *testing.T, barcode string, stock int64, price string) ledger.Product {
	t.Helper()
	return f.store.AddProduct(ledger.Product{Barcode: barcode, Name: "P" + barcode, StockQuantity: stock, RetailPrice: d(price), MinStockLevel: 1, IsActive: true})
}

func (f *fixture) stock(t *testing.T, id int64) int64 {
	t.Helper()
	p, ok := f.store.Product(id)
	require.True(t, ok)
	return p.StockQuantity
}

func (f *fixture) points(t *testing.T, id int64) int64 {
	t.Helper()
	c, ok := f.store.Customer(id)
	require.True(t, ok)
	return c.Points
}

func TestCreatePOSInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	shift := f.openShift(t, cashier)
	p := f.product(t, "1001", 10, "20000")
	customer := f.store.AddCustomer(ledger.Customer{Phone: "0900", Name: "Lan", Points: 150})

	inv, err := f.svc.CreatePOSInvoice(ctx, cashier, POSInput{
		Items:      []LineInput{{ProductID: p.ID, Quantity: 3}},
		CustomerID: customer.ID,
	})
	require.NoError(t, err)
	require.Equal(t, ledger.StatusCompleted, inv.Status)
	require.Equal(t, ledger.SourcePOS, inv.Source)
	require.Equal(t, ledger.PaymentCash, inv.PaymentMethod)
	require.Equal(t, shift.ID, inv.WorkShiftID)
	require.Contains(t, inv.Code, "HD-")
	// SILVER rank: 2 % of 60000.
	require.True(t, d("1200").Equal(inv.DiscountAmount), inv.DiscountAmount.String())
	require.True(t, d("58800").Equal(inv.TotalAmount), inv.TotalAmount.String())
	require.True(t, d("20000").Equal(inv.Items[0].UnitPrice))

	require.Equal(t, int64(7), f.stock(t, p.ID))
	require.Equal(t, int64(155), f.points(t, customer.ID))

	logs, err := f.store.StockLogs(ctx, p.ID, 1)
	require.NoError(t, err)
	require.Equal(t, ledger.ChangeSell, logs[0].ChangeType)
	require.Equal(t, int64(-3), logs[0].ChangeQuantity)
	require.Equal(t, inv.ID, logs[0].InvoiceID)
	require.Equal(t, 1, f.watcher.calls)
}

func TestCreatePOSInvoiceOversellRejected(t *testing.T) {
	f := newFixture(t)
	f.openShift(t, cashier)
	p := f.product(t, "1002", 3, "1000")

	_, err := f.svc.CreatePOSInvoice(context.Background(), cashier, POSInput{Items: []LineInput{{ProductID: p.ID, Quantity: 5}}})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	require.Equal(t, int64(3), f.stock(t, p.ID))

	_, err = f.svc.CreatePOSInvoice(context.Background(), cashier, POSInput{Items: []LineInput{{ProductID: p.ID, Quantity: 2}, {ProductID: p.ID, Quantity: 2}}})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	require.Equal(t, int64(3), f.stock(t, p.ID))
}

func TestCreatePOSInvoicePreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "1003", 5, "1000")
	inactive := f.store.AddProduct(ledger.Product{Barcode: "1004", Name: "Old", StockQuantity: 5, RetailPrice: d("1"), IsActive: false})

	_, err := f.svc.CreatePOSInvoice(ctx, cashier, POSInput{Items: []LineInput{{ProductID: p.ID, Quantity: 1}}})
	require.ErrorIs(t, err, shared.ErrInvalidState, "no open shift")

	f.openShift(t, cashier)
	cases := map[string]struct {
		in   POSInput
		kind error
	}{
		"empty":            {POSInput{}, shared.ErrInvalidInput},
		"zero quantity":    {POSInput{Items: []LineInput{{ProductID: p.ID}}}, shared.ErrInvalidInput},
		"bad payment":      {POSInput{Items: []LineInput{{ProductID: p.ID, Quantity: 1}}, PaymentMethod: "GOLD"}, shared.ErrInvalidInput},
		"missing product":  {POSInput{Items: []LineInput{{ProductID: 999, Quantity: 1}}}, shared.ErrNotFound},
		"inactive product": {POSInput{Items: []LineInput{{ProductID: inactive.ID, Quantity: 1}}}, shared.ErrInvalidState},
		"missing customer": {POSInput{Items: []LineInput{{ProductID: p.ID, Quantity: 1}}, CustomerID: 999}, shared.ErrNotFound},
		"missing voucher":  {POSInput{Items: []LineInput{{ProductID: p.ID, Quantity: 1}}, VoucherCode: "NOPE"}, shared.ErrNotFound},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.CreatePOSInvoice(ctx, cashier, tc.in)
			require.ErrorIs(t, err, tc.kind)
			require.Equal(t, int64(5), f.stock(t, p.ID))
		})
	}
}

func TestCreatePOSInvoiceWithVoucher(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.openShift(t, cashier)
	p := f.product(t, "1005", 10, "100000")
	v := f.store.AddVoucher(ledger.Voucher{
		Code: "SALE10", Type: ledger.VoucherPercentage, Value: d("10"), MaxDiscount: d("15000"),
		StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour), IsActive: true,
	})

	inv, err := f.svc.CreatePOSInvoice(ctx, cashier, POSInput{Items: []LineInput{{ProductID: p.ID, Quantity: 2}}, VoucherCode: "SALE10"})
	require.NoError(t, err)
	require.True(t, d("15000").Equal(inv.DiscountAmount))
	require.True(t, d("185000").Equal(inv.TotalAmount))
	require.Equal(t, v.ID, inv.VoucherID)

	got, _ := f.store.Voucher(v.ID)
	require.Equal(t, int64(1), got.UsedCount)
}

func TestCreatePOSInvoiceExpiredVoucherRollsBack(t *testing.T) {
	f := newFixture(t)
	f.openShift(t, cashier)
	p := f.product(t, "1006", 10, "1000")
	v := f.store.AddVoucher(ledger.Voucher{
		Code: "OLD", Type: ledger.VoucherFixedAmount, Value: d("100"),
		StartDate: now.Add(-48 * time.Hour), EndDate: now.Add(-24 * time.Hour), IsActive: true,
	})

	_, err := f.svc.CreatePOSInvoice(context.Background(), cashier, POSInput{Items: []LineInput{{ProductID: p.ID, Quantity: 1}}, VoucherCode: "OLD"})
	require.ErrorIs(t, err, shared.ErrInvalidState)
	require.Equal(t, int64(10), f.stock(t, p.ID))
	got, _ := f.store.Voucher(v.ID)
	require.Zero(t, got.UsedCount)
}

func TestConcurrentPOSDoesNotOversell(t *testing.T) {
	f := newFixture(t)
	f.openShift(t, cashier)
	p := f.product(t, "1007", 10, "1000")

	var sold, rejected atomic.Int64
	var g errgroup.Group
	for range 20 {
		g.Go(func() error {
			_, err := f.svc.CreatePOSInvoice(context.Background(), cashier, POSInput{Items: []LineInput{{ProductID: p.ID, Quantity: 1}}})
			switch {
			case err == nil:
				sold.Add(1)
			case errors.Is(err, shared.ErrInsufficientStock):
				rejected.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.Equal(t, int64(10), sold.Load())
	require.Equal(t, int64(10), rejected.Load())
	require.Zero(t, f.stock(t, p.ID))

	drifts, err := f.store.ReconcileStock(context.Background())
	require.NoError(t, err)
	require.Empty(t, drifts)
}

func TestOnlineOrderConfirmThenCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "2001", 10, "5000")
	customer := f.store.AddCustomer(ledger.Customer{Phone: "0901", Name: "Minh"})

	order, err := f.svc.CreateOnlineOrder(ctx, customer.ID, OnlineOrderInput{
		Items:           []LineInput{{ProductID: p.ID, Quantity: 4}},
		DeliveryAddress: "12 Le Loi",
	})
	require.NoError(t, err)
	require.Equal(t, ledger.StatusPending, order.Status)
	require.Equal(t, ledger.SourceOnline, order.Source)
	require.Equal(t, ledger.PaymentCOD, order.PaymentMethod)
	require.Contains(t, order.Code, "WEB-")
	require.Equal(t, int64(10), f.stock(t, p.ID))

	order, err = f.svc.UpdateOrderStatus(ctx, order.ID, ledger.StatusConfirmed, cashier)
	require.NoError(t, err)
	require.Equal(t, ledger.StatusConfirmed, order.Status)
	require.Equal(t, cashier, order.StaffID)
	require.Equal(t, int64(6), f.stock(t, p.ID))

	order, err = f.svc.UpdateOrderStatus(ctx, order.ID, ledger.StatusCancelled, cashier)
	require.NoError(t, err)
	require.Equal(t, ledger.StatusCancelled, order.Status)
	require.Equal(t, int64(10), f.stock(t, p.ID))

	logs, err := f.store.StockLogs(ctx, p.ID, 1)
	require.NoError(t, err)
	require.Equal(t, ledger.ChangeReturn, logs[0].ChangeType)
	require.Equal(t, int64(4), logs[0].ChangeQuantity)

	_, err = f.svc.UpdateOrderStatus(ctx, order.ID, ledger.StatusConfirmed, cashier)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestOnlineOrderCompleteAccruesPoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "2002", 10, "50000")
	customer := f.store.AddCustomer(ledger.Customer{Phone: "0902", Name: "Hoa"})

	order, err := f.svc.CreateOnlineOrder(ctx, customer.ID, OnlineOrderInput{Items: []LineInput{{ProductID: p.ID, Quantity: 2}}, DeliveryAddress: "1 Tran Phu"})
	require.NoError(t, err)

	for _, status := range []ledger.InvoiceStatus{ledger.StatusConfirmed, ledger.StatusShipping, ledger.StatusCompleted} {
		order, err = f.svc.UpdateOrderStatus(ctx, order.ID, status, cashier)
		require.NoError(t, err)
	}
	require.Equal(t, int64(10), f.points(t, customer.ID))

	again, err := f.svc.UpdateOrderStatus(ctx, order.ID, ledger.StatusCompleted, cashier)
	require.NoError(t, err)
	require.Equal(t, order.ID, again.ID)
	require.Equal(t, int64(10), f.points(t, customer.ID), "completing twice must not accrue twice")

	_, err = f.svc.UpdateOrderStatus(ctx, order.ID, ledger.StatusCancelled, cashier)
	require.ErrorIs(t, err, shared.ErrInvalidState)
	_, err = f.svc.UpdateOrderStatus(ctx, order.ID, "LOST", cashier)
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestConfirmRevalidatesStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.openShift(t, cashier)
	p := f.product(t, "2003", 5, "1000")
	customer := f.store.AddCustomer(ledger.Customer{Phone: "0903", Name: "Tuan"})

	order, err := f.svc.CreateOnlineOrder(ctx, customer.ID, OnlineOrderInput{Items: []LineInput{{ProductID: p.ID, Quantity: 4}}, DeliveryAddress: "3 Hai Ba Trung"})
	require.NoError(t, err)
	_, err = f.svc.CreatePOSInvoice(ctx, cashier, POSInput{Items: []LineInput{{ProductID: p.ID, Quantity: 3}}})
	require.NoError(t, err)

	_, err = f.svc.UpdateOrderStatus(ctx, order.ID, ledger.StatusConfirmed, cashier)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	got, _ := f.store.Invoice(order.ID)
	require.Equal(t, ledger.StatusPending, got.Status)
	require.Equal(t, int64(2), f.stock(t, p.ID))
}

func TestCancelReleasesVoucherUsage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "2004", 10, "100000")
	customer := f.store.AddCustomer(ledger.Customer{Phone: "0904", Name: "Nam"})
	v := f.store.AddVoucher(ledger.Voucher{
		Code: "FIX20K", Type: ledger.VoucherFixedAmount, Value: d("20000"), MinOrderValue: d("50000"),
		StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour), IsActive: true,
	})

	order, err := f.svc.CreateOnlineOrder(ctx, customer.ID, OnlineOrderInput{Items: []LineInput{{ProductID: p.ID, Quantity: 1}}, VoucherCode: "FIX20K", DeliveryAddress: "9 Nguyen Hue"})
	require.NoError(t, err)
	require.True(t, d("80000").Equal(order.TotalAmount))
	got, _ := f.store.Voucher(v.ID)
	require.Equal(t, int64(1), got.UsedCount)

	_, err = f.svc.UpdateOrderStatus(ctx, order.ID, ledger.StatusCancelled, cashier)
	require.NoError(t, err)
	got, _ = f.store.Voucher(v.ID)
	require.Zero(t, got.UsedCount)
	require.Equal(t, int64(10), f.stock(t, p.ID))
}

func TestOnlineOrderValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "2005", 2, "1000")
	customer := f.store.AddCustomer(ledger.Customer{Phone: "0905", Name: "An"})

	_, err := f.svc.CreateOnlineOrder(ctx, customer.ID, OnlineOrderInput{Items: []LineInput{{ProductID: p.ID, Quantity: 1}}})
	require.ErrorIs(t, err, shared.ErrInvalidInput)
	_, err = f.svc.CreateOnlineOrder(ctx, 999, OnlineOrderInput{Items: []LineInput{{ProductID: p.ID, Quantity: 1}}, DeliveryAddress: "x"})
	require.ErrorIs(t, err, shared.ErrNotFound)
	_, err = f.svc.CreateOnlineOrder(ctx, customer.ID, OnlineOrderInput{Items: []LineInput{{ProductID: p.ID, Quantity: 3}}, DeliveryAddress: "x"})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
}

func TestReturnWithPartialRestock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.openShift(t, cashier)
	p := f.product(t, "3001", 10, "2000")
	customer := f.store.AddCustomer(ledger.Customer{Phone: "0906", Name: "Linh", Points: 50})

	inv, err := f.svc.CreatePOSInvoice(ctx, cashier, POSInput{Items: []LineInput{{ProductID: p.ID, Quantity: 10}}, CustomerID: customer.ID})
	require.NoError(t, err)
	require.Zero(t, f.stock(t, p.ID))
	require.Equal(t, int64(52), f.points(t, customer.ID))

	ret, err := f.svc.ReturnInvoice(ctx, cashier, ReturnInput{
		InvoiceID: inv.ID,
		Reason:    "Expired",
		Items: []ReturnLineInput{
			{ProductID: p.ID, Quantity: 4, IsRestocked: true},
			{ProductID: p.ID, Quantity: 6, IsRestocked: false},
		},
	})
	require.NoError(t, err)
	require.True(t, d("20000").Equal(ret.RefundAmount), ret.RefundAmount.String())
	require.Equal(t, int64(4), f.stock(t, p.ID))
	require.Equal(t, int64(50), f.points(t, customer.ID))

	logs, err := f.store.StockLogs(ctx, p.ID, 2)
	require.NoError(t, err)
	require.Equal(t, ledger.ChangeDamage, logs[0].ChangeType)
	require.Zero(t, logs[0].ChangeQuantity)
	require.Equal(t, ledger.ChangeReturn, logs[1].ChangeType)
	require.Equal(t, int64(4), logs[1].ChangeQuantity)

	_, err = f.svc.ReturnInvoice(ctx, cashier, ReturnInput{InvoiceID: inv.ID, Items: []ReturnLineInput{{ProductID: p.ID, Quantity: 1, IsRestocked: true}}})
	require.ErrorIs(t, err, shared.ErrInvalidInput, "cumulative returns exceed purchase")
}

func TestReturnPreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "3002", 10, "1000")
	other := f.product(t, "3003", 10, "1000")
	customer := f.store.AddCustomer(ledger.Customer{Phone: "0907", Name: "Bao"})

	_, err := f.svc.ReturnInvoice(ctx, cashier, ReturnInput{InvoiceID: 999, Items: []ReturnLineInput{{ProductID: p.ID, Quantity: 1}}})
	require.ErrorIs(t, err, shared.ErrNotFound)

	order, err := f.svc.CreateOnlineOrder(ctx, customer.ID, OnlineOrderInput{Items: []LineInput{{ProductID: p.ID, Quantity: 2}}, DeliveryAddress: "x"})
	require.NoError(t, err)
	_, err = f.svc.ReturnInvoice(ctx, cashier, ReturnInput{InvoiceID: order.ID, Items: []ReturnLineInput{{ProductID: p.ID, Quantity: 1}}})
	require.ErrorIs(t, err, shared.ErrInvalidState)

	f.openShift(t, cashier)
	inv, err := f.svc.CreatePOSInvoice(ctx, cashier, POSInput{Items: []LineInput{{ProductID: p.ID, Quantity: 2}}})
	require.NoError(t, err)
	_, err = f.svc.ReturnInvoice(ctx, cashier, ReturnInput{InvoiceID: inv.ID, Items: []ReturnLineInput{{ProductID: other.ID, Quantity: 1}}})
	require.ErrorIs(t, err, shared.ErrInvalidInput)
	_, err = f.svc.ReturnInvoice(ctx, cashier, ReturnInput{InvoiceID: inv.ID, Items: []ReturnLineInput{{ProductID: p.ID, Quantity: 3}}})
	require.ErrorIs(t, err, shared.ErrInvalidInput)
	_, err = f.svc.ReturnInvoice(ctx, cashier, ReturnInput{InvoiceID: inv.ID, Items: []ReturnLineInput{{ProductID: p.ID}}})
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestReturnMayDriveNegativePoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.openShift(t, cashier)
	p := f.product(t, "3004", 10, "30000")
	customer := f.store.AddCustomer(ledger.Customer{Phone: "0908", Name: "Khoa"})

	inv, err := f.svc.CreatePOSInvoice(ctx, cashier, POSInput{Items: []LineInput{{ProductID: p.ID, Quantity: 1}}, CustomerID: customer.ID})
	require.NoError(t, err)
	require.Equal(t, int64(3), f.points(t, customer.ID))

	require.NoError(t, f.store.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return tx.AddCustomerPoints(ctx, customer.ID, -3)
	}))
	_, err = f.svc.ReturnInvoice(ctx, cashier, ReturnInput{InvoiceID: inv.ID, Items: []ReturnLineInput{{ProductID: p.ID, Quantity: 1, IsRestocked: true}}})
	require.NoError(t, err)
	require.Equal(t, int64(-3), f.points(t, customer.ID))
}

func TestOnlineOrderCompletesFromConfirmed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "2010", 10, "40000")
	customer := f.store.AddCustomer(ledger.Customer{Phone: "0910", Name: "Lan"})

	order, err := f.svc.CreateOnlineOrder(ctx, customer.ID, OnlineOrderInput{Items: []LineInput{{ProductID: p.ID, Quantity: 3}}, DeliveryAddress: "8 Nguyen Hue"})
	require.NoError(t, err)
	_, err = f.svc.UpdateOrderStatus(ctx, order.ID, ledger.StatusConfirmed, cashier)
	require.NoError(t, err)
	require.Equal(t, int64(7), f.stock(t, p.ID))

	order, err = f.svc.UpdateOrderStatus(ctx, order.ID, ledger.StatusCompleted, cashier)
	require.NoError(t, err)
	require.Equal(t, ledger.StatusCompleted, order.Status)
	require.Equal(t, int64(7), f.stock(t, p.ID), "stock was already deducted at confirmation")
	require.Equal(t, int64(12), f.points(t, customer.ID))

	logs, err := f.store.StockLogs(ctx, p.ID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
}

func TestOnlineOrderCompletesFromPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "2011", 5, "25000")
	customer := f.store.AddCustomer(ledger.Customer{Phone: "0911", Name: "Quang"})

	order, err := f.svc.CreateOnlineOrder(ctx, customer.ID, OnlineOrderInput{Items: []LineInput{{ProductID: p.ID, Quantity: 4}}, DeliveryAddress: "2 Ly Thai To"})
	require.NoError(t, err)

	order, err = f.svc.UpdateOrderStatus(ctx, order.ID, ledger.StatusCompleted, cashier)
	require.NoError(t, err)
	require.Equal(t, ledger.StatusCompleted, order.Status)
	require.Equal(t, int64(1), f.stock(t, p.ID))
	require.Equal(t, int64(10), f.points(t, customer.ID))

	logs, err := f.store.StockLogs(ctx, p.ID, 1)
	require.NoError(t, err)
	require.Equal(t, ledger.ChangeSell, logs[0].ChangeType)
	require.Equal(t, int64(-4), logs[0].ChangeQuantity)

	drifts, err := f.store.ReconcileStock(ctx)
	require.NoError(t, err)
	require.Empty(t, drifts)
}

func TestCompleteFromPendingRevalidatesStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.openShift(t, cashier)
	p := f.product(t, "2012", 3, "25000")
	customer := f.store.AddCustomer(ledger.Customer{Phone: "0912", Name: "Duc"})

	order, err := f.svc.CreateOnlineOrder(ctx, customer.ID, OnlineOrderInput{Items: []LineInput{{ProductID: p.ID, Quantity: 3}}, DeliveryAddress: "5 Pasteur"})
	require.NoError(t, err)
	_, err = f.svc.CreatePOSInvoice(ctx, cashier, POSInput{Items: []LineInput{{ProductID: p.ID, Quantity: 1}}})
	require.NoError(t, err)

	_, err = f.svc.UpdateOrderStatus(ctx, order.ID, ledger.StatusCompleted, cashier)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	require.Zero(t, f.points(t, customer.ID), "a failed completion must not accrue points")
	inv, ok := f.store.Invoice(order.ID)
	require.True(t, ok)
	require.Equal(t, ledger.StatusPending, inv.Status)
}

func TestShippingCancelRestoresStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "2013", 9, "12000")
	customer := f.store.AddCustomer(ledger.Customer{Phone: "0913", Name: "Vy"})

	order, err := f.svc.CreateOnlineOrder(ctx, customer.ID, OnlineOrderInput{Items: []LineInput{{ProductID: p.ID, Quantity: 5}}, DeliveryAddress: "7 Dong Khoi"})
	require.NoError(t, err)
	for _, status := range []ledger.InvoiceStatus{ledger.StatusConfirmed, ledger.StatusShipping} {
		_, err = f.svc.UpdateOrderStatus(ctx, order.ID, status, cashier)
		require.NoError(t, err)
	}
	require.Equal(t, int64(4), f.stock(t, p.ID))

	order, err = f.svc.UpdateOrderStatus(ctx, order.ID, ledger.StatusCancelled, cashier)
	require.NoError(t, err)
	require.Equal(t, ledger.StatusCancelled, order.Status)
	require.Equal(t, int64(9), f.stock(t, p.ID))
	require.Zero(t, f.points(t, customer.ID))

	logs, err := f.store.StockLogs(ctx, p.ID, 1)
	require.NoError(t, err)
	require.Equal(t, ledger.ChangeReturn, logs[0].ChangeType)
	require.Equal(t, int64(5), logs[0].ChangeQuantity)
	require.Equal(t, int64(9), logs[0].CurrentStock)

	drifts, err := f.store.ReconcileStock(ctx)
	require.NoError(t, err)
	require.Empty(t, drifts)
}

func TestGetInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.openShift(t, cashier)
	p := f.product(t, "2014", 4, "10000")

	inv, err := f.svc.CreatePOSInvoice(ctx, cashier, POSInput{Items: []LineInput{{ProductID: p.ID, Quantity: 2}}})
	require.NoError(t, err)

	got, err := f.svc.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, inv.Code, got.Code)
	require.Len(t, got.Items, 1)

	_, err = f.svc.GetInvoice(ctx, inv.ID+100)
	require.ErrorIs(t, err, shared.ErrNotFound)
	_, err = f.svc.GetInvoice(ctx, 0)
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestCanTransition(t *testing.T) {
	require.True(t, CanTransition(ledger.StatusPending, ledger.StatusConfirmed))
	require.True(t, CanTransition(ledger.StatusPending, ledger.StatusCompleted))
	require.True(t, CanTransition(ledger.StatusConfirmed, ledger.StatusCompleted))
	require.True(t, CanTransition(ledger.StatusShipping, ledger.StatusCompleted))
	require.False(t, CanTransition(ledger.StatusCancelled, ledger.StatusCompleted))
	require.True(t, CanTransition(ledger.StatusShipping, ledger.StatusCancelled))
	require.False(t, CanTransition(ledger.StatusPending, ledger.StatusShipping))
	require.False(t, CanTransition(ledger.StatusCompleted, ledger.StatusCancelled))
	require.False(t, CanTransition(ledger.StatusCancelled, ledger.StatusPending))
}

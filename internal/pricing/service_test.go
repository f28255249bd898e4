package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-mart/internal/ledger"
	"github.com/odyssey-erp/odyssey-mart/internal/ledger/memory"
	"github.com/odyssey-erp/odyssey-mart/internal/shared"
)

type recordingAudit struct {
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func newVoucherService(t *testing.T) (*Service, *memory.Store, *recordingAudit) {
	t.Helper()
	store := memory.New()
	audit := &recordingAudit{}
	svc := NewService(store, audit, nil)
	svc.now = func() time.Time { return now }
	return svc, store, audit
}

func TestCreateVoucher(t *testing.T) {
	svc, _, audit := newVoucherService(t)
	ctx := context.Background()
	in := VoucherInput{
		Code:      "TET2026",
		Type:      ledger.VoucherPercentage,
		Value:     decimal.NewFromInt(10),
		StartDate: now.Add(-time.Hour),
		EndDate:   now.Add(30 * 24 * time.Hour),
	}
	v, err := svc.CreateVoucher(ctx, in, 1)
	require.NoError(t, err)
	require.NotZero(t, v.ID)
	require.True(t, v.IsActive)
	require.Len(t, audit.logs, 1)

	_, err = svc.CreateVoucher(ctx, in, 1)
	require.ErrorIs(t, err, shared.ErrConflict)

	bad := in
	bad.Code = "BAD"
	bad.EndDate = bad.StartDate
	_, err = svc.CreateVoucher(ctx, bad, 1)
	require.ErrorIs(t, err, shared.ErrInvalidInput)

	bad = in
	bad.Code = "BAD2"
	bad.Value = decimal.NewFromInt(150)
	_, err = svc.CreateVoucher(ctx, bad, 1)
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestVerifyVoucherClampsToOrderValue(t *testing.T) {
	svc, store, _ := newVoucherService(t)
	store.AddVoucher(ledger.Voucher{Code: "BIG", Type: ledger.VoucherFixedAmount, Value: decimal.NewFromInt(50000),
		StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour), IsActive: true})

	check, err := svc.VerifyVoucher(context.Background(), "BIG", decimal.NewFromInt(30000))
	require.NoError(t, err)
	require.True(t, check.Discount.Equal(decimal.NewFromInt(30000)))
	require.Zero(t, check.Voucher.UsedCount)

	_, err = svc.VerifyVoucher(context.Background(), "NOPE", decimal.NewFromInt(30000))
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeleteVoucherGuardsUsage(t *testing.T) {
	svc, store, _ := newVoucherService(t)
	used := store.AddVoucher(ledger.Voucher{Code: "USED", Type: ledger.VoucherFixedAmount, Value: decimal.NewFromInt(1000), UsedCount: 3, IsActive: true})
	fresh := store.AddVoucher(ledger.Voucher{Code: "FRESH", Type: ledger.VoucherFixedAmount, Value: decimal.NewFromInt(1000), IsActive: true})
	ctx := context.Background()

	require.ErrorIs(t, svc.DeleteVoucher(ctx, used.ID, 1), shared.ErrInvalidState)
	_, ok := store.Voucher(used.ID)
	require.True(t, ok)

	require.NoError(t, svc.DeleteVoucher(ctx, fresh.ID, 1))
	_, ok = store.Voucher(fresh.ID)
	require.False(t, ok)

	require.ErrorIs(t, svc.DeleteVoucher(ctx, fresh.ID, 1), shared.ErrNotFound)
}

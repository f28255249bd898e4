package shifts

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-mart/internal/ledger"
	"github.com/odyssey-erp/odyssey-mart/internal/ledger/memory"
	"github.com/odyssey-erp/odyssey-mart/internal/shared"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newService(store *memory.Store) *Service {
	svc := NewService(store, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC) }
	return svc
}

// sell books a completed invoice against the shift directly in the ledger.
func sell(t *testing.T, store *memory.Store, shiftID int64, method ledger.PaymentMethod, status ledger.InvoiceStatus, total string) {
	t.Helper()
	require.NoError(t, store.WithTx(context.Background(), func(ctx context.Context, tx ledger.Tx) error {
		_, err := tx.InsertInvoice(ctx, ledger.Invoice{
			Code:          shared.DocumentCode("HD-", time.Now()),
			Source:        ledger.SourcePOS,
			Status:        status,
			WorkShiftID:   shiftID,
			TotalAmount:   d(total),
			PaymentMethod: method,
		})
		return err
	}))
}

func TestShiftLifecycle(t *testing.T) {
	store := memory.New()
	svc := newService(store)
	ctx := context.Background()

	shift, err := svc.Start(ctx, 5, d("1000000"))
	require.NoError(t, err)
	require.True(t, shift.Open())

	_, err = svc.Start(ctx, 5, d("0"))
	require.ErrorIs(t, err, shared.ErrInvalidState)

	current, err := svc.Current(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, shift.ID, current.ID)

	sell(t, store, shift.ID, ledger.PaymentCash, ledger.StatusCompleted, "250000")
	sell(t, store, shift.ID, ledger.PaymentCash, ledger.StatusCompleted, "120000")
	sell(t, store, shift.ID, ledger.PaymentCard, ledger.StatusCompleted, "990000")

	closed, err := svc.End(ctx, 5, d("1360000"), "short 10k")
	require.NoError(t, err)
	require.False(t, closed.Open())
	require.True(t, d("370000").Equal(closed.SystemRevenue), closed.SystemRevenue.String())
	require.True(t, d("-10000").Equal(closed.Difference), closed.Difference.String())
	require.Equal(t, "short 10k", closed.Note)

	_, err = svc.Current(ctx, 5)
	require.ErrorIs(t, err, shared.ErrNotFound)
	_, err = svc.End(ctx, 5, d("0"), "")
	require.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = svc.Start(ctx, 5, d("500000"))
	require.NoError(t, err, "a new shift may open after the previous one closed")
}

func TestShiftValidation(t *testing.T) {
	svc := newService(memory.New())
	ctx := context.Background()
	_, err := svc.Start(ctx, 5, d("-1"))
	require.ErrorIs(t, err, shared.ErrInvalidInput)
	_, err = svc.Start(ctx, 0, d("1"))
	require.ErrorIs(t, err, shared.ErrInvalidInput)
	_, err = svc.End(ctx, 5, d("-1"), "")
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestShiftHandler(t *testing.T) {
	store := memory.New()
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), newService(store))
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), shared.Actor{StaffID: 9})))
		})
	})
	h.MountRoutes(r)

	send := func(method, path, body string) int {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(method, path, bytes.NewBufferString(body)))
		return rec.Code
	}
	require.Equal(t, http.StatusNotFound, send(http.MethodGet, "/current", ""))
	require.Equal(t, http.StatusCreated, send(http.MethodPost, "/start", `{"initialCash":"200000"}`))
	require.Equal(t, http.StatusConflict, send(http.MethodPost, "/start", `{"initialCash":"200000"}`))
	require.Equal(t, http.StatusOK, send(http.MethodGet, "/current", ""))
	require.Equal(t, http.StatusOK, send(http.MethodPost, "/end", `{"actualCash":"200000","note":"ok"}`))
	require.Equal(t, http.StatusConflict, send(http.MethodPost, "/end", `{"actualCash":"0"}`))
}

package pricing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-mart/internal/ledger"
)

func TestVoucherHandler(t *testing.T) {
	svc, store, _ := newVoucherService(t)
	r := chi.NewRouter()
	r.Route("/api/vouchers", NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).MountRoutes)

	send := func(method, path, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(method, path, bytes.NewBufferString(body)))
		return rec
	}

	rec := send(http.MethodPost, "/api/vouchers/", `{"code":"FREESHIP","type":"FIXED_AMOUNT","value":"30000","minOrderValue":"100000","startDate":"2026-02-01T00:00:00Z","endDate":"2026-04-01T00:00:00Z"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var v ledger.Voucher
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))

	rec = send(http.MethodPost, "/api/vouchers/", `{"code":"X","type":"BOGUS","value":"1"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = send(http.MethodGet, "/api/vouchers/verify?code=FREESHIP&orderValue=150000", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var check verifyResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&check))
	require.True(t, d(30000).Equal(check.Discount))

	rec = send(http.MethodGet, "/api/vouchers/verify?code=FREESHIP&orderValue=50000", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = send(http.MethodGet, "/api/vouchers/verify?code=NOPE&orderValue=50000", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = send(http.MethodGet, fmt.Sprintf("/api/vouchers/%d", v.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = send(http.MethodDelete, fmt.Sprintf("/api/vouchers/%d", v.ID), "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	_, ok := store.Voucher(v.ID)
	require.False(t, ok)
}

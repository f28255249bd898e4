package sales

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-mart/internal/ledger"
	"github.com/odyssey-erp/odyssey-mart/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-mart/internal/shared"
)

// IdempotencyHeader carries the client supplied key of a checkout.
const IdempotencyHeader = "Idempotency-Key"

// IdempotencyPort reserves request keys so a retried checkout is not booked twice.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Complete(ctx context.Context, key, module, ref string) error
	Lookup(ctx context.Context, key, module string) (string, error)
	Delete(ctx context.Context, key, module string) error
}

// Handler wires HTTP endpoints for sales module.
type Handler struct {
	logger  *slog.Logger
	service *Service
	idem    IdempotencyPort
}

// NewHandler constructs sales handler. idem may be nil to disable replay protection.
func NewHandler(logger *slog.Logger, service *Service, idem IdempotencyPort) *Handler {
	return &Handler{logger: logger, service: service, idem: idem}
}

// MountRoutes registers counter sales routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/pos", h.handlePOS)
	r.Post("/returns", h.handleReturn)
	r.Get("/invoices/{id}", h.handleGetInvoice)
}

// MountStoreRoutes registers storefront routes.
func (h *Handler) MountStoreRoutes(r chi.Router) {
	r.Post("/orders", h.handleOnlineOrder)
}

// MountOrderRoutes registers back-office order routes.
func (h *Handler) MountOrderRoutes(r chi.Router) {
	r.Patch("/{id}/status", h.handleUpdateStatus)
}

type lineRequest struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	Quantity  int64 `json:"quantity" validate:"required,gt=0"`
}

type posRequest struct {
	Items         []lineRequest `json:"items" validate:"required,min=1,dive"`
	CustomerID    int64         `json:"customerId" validate:"gte=0"`
	VoucherCode   string        `json:"voucherCode"`
	PaymentMethod string        `json:"paymentMethod" validate:"omitempty,oneof=CASH CARD BANK_TRANSFER E_WALLET COD"`
}

type onlineOrderRequest struct {
	Items           []lineRequest `json:"items" validate:"required,min=1,dive"`
	VoucherCode     string        `json:"voucherCode"`
	DeliveryAddress string        `json:"deliveryAddress" validate:"required"`
	PaymentMethod   string        `json:"paymentMethod" validate:"omitempty,oneof=CASH CARD BANK_TRANSFER E_WALLET COD"`
}

type returnLineRequest struct {
	ProductID   int64 `json:"productId" validate:"required,gt=0"`
	Quantity    int64 `json:"quantity" validate:"required,gt=0"`
	IsRestocked bool  `json:"isRestocked"`
}

type returnRequest struct {
	InvoiceID int64               `json:"invoiceId" validate:"required,gt=0"`
	Reason    string              `json:"reason"`
	Items     []returnLineRequest `json:"items" validate:"required,min=1,dive"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

func toLines(items []lineRequest) []LineInput {
	out := make([]LineInput, 0, len(items))
	for _, item := range items {
		out = append(out, LineInput{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return out
}

func (h *Handler) handlePOS(w http.ResponseWriter, r *http.Request) {
	var req posRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	h.idempotent(w, r, modulePOS, func(ctx context.Context) (ledger.Invoice, error) {
		return h.service.CreatePOSInvoice(ctx, actor.StaffID, POSInput{
			Items:         toLines(req.Items),
			CustomerID:    req.CustomerID,
			VoucherCode:   req.VoucherCode,
			PaymentMethod: ledger.PaymentMethod(req.PaymentMethod),
		})
	})
}

func (h *Handler) handleOnlineOrder(w http.ResponseWriter, r *http.Request) {
	var req onlineOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	if actor.CustomerID == 0 {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "customer identity required")
		return
	}
	h.idempotent(w, r, moduleOnlineOrder, func(ctx context.Context) (ledger.Invoice, error) {
		return h.service.CreateOnlineOrder(ctx, actor.CustomerID, OnlineOrderInput{
			Items:           toLines(req.Items),
			VoucherCode:     req.VoucherCode,
			DeliveryAddress: req.DeliveryAddress,
			PaymentMethod:   ledger.PaymentMethod(req.PaymentMethod),
		})
	})
}

const (
	modulePOS         = "pos"
	moduleOnlineOrder = "online_order"
)

// idempotent runs create once per caller and Idempotency-Key. A replay of a finished request returns
// the original invoice, a replay of one still running is rejected.
func (h *Handler) idempotent(w http.ResponseWriter, r *http.Request, module string, create func(context.Context) (ledger.Invoice, error)) {
	ctx := r.Context()
	actor := shared.ActorFromContext(ctx)
	scope := shared.IdempotencyScope(module, actor)
	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	if key == "" || h.idem == nil {
		inv, err := create(ctx)
		if err != nil {
			h.logger.Warn("create invoice", slog.String("module", module), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusCreated, inv)
		return
	}

	if err := h.idem.CheckAndInsert(ctx, key, scope); err != nil {
		if !errors.Is(err, shared.ErrIdempotencyConflict) {
			h.logger.Error("idempotency reserve", slog.String("module", module), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		h.replay(w, r, key, module, scope, actor)
		return
	}
	inv, err := create(ctx)
	if err != nil {
		if derr := h.idem.Delete(ctx, key, scope); derr != nil {
			h.logger.Warn("idempotency release", slog.String("module", module), slog.Any("error", derr))
		}
		h.logger.Warn("create invoice", slog.String("module", module), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if err := h.idem.Complete(ctx, key, scope, strconv.FormatInt(inv.ID, 10)); err != nil {
		h.logger.Warn("idempotency complete", slog.String("module", module), slog.Any("error", err))
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) replay(w http.ResponseWriter, r *http.Request, key, module, scope string, actor shared.Actor) {
	ref, err := h.idem.Lookup(r.Context(), key, scope)
	if err != nil || ref == "" {
		httpx.RespondError(w, shared.ErrIdempotencyConflict)
		return
	}
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		httpx.RespondError(w, shared.ErrIdempotencyConflict)
		return
	}
	inv, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if !ownedBy(module, inv, actor) {
		h.logger.Warn("idempotency replay of foreign invoice", slog.String("module", module), slog.Int64("invoice_id", inv.ID))
		httpx.RespondError(w, shared.ErrIdempotencyConflict)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// ownedBy reports whether actor created inv through module.
func ownedBy(module string, inv ledger.Invoice, actor shared.Actor) bool {
	switch module {
	case modulePOS:
		return actor.StaffID != 0 && inv.StaffID == actor.StaffID
	case moduleOnlineOrder:
		return actor.CustomerID != 0 && inv.CustomerID == actor.CustomerID
	}
	return false
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	inv, err := h.service.UpdateOrderStatus(r.Context(), id, ledger.InvoiceStatus(strings.ToUpper(req.Status)), actor.StaffID)
	if err != nil {
		h.logger.Warn("update order status", slog.Int64("invoice_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request) {
	var req returnRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	in := ReturnInput{InvoiceID: req.InvoiceID, Reason: req.Reason}
	for _, item := range req.Items {
		in.Items = append(in.Items, ReturnLineInput{ProductID: item.ProductID, Quantity: item.Quantity, IsRestocked: item.IsRestocked})
	}
	actor := shared.ActorFromContext(r.Context())
	ret, err := h.service.ReturnInvoice(r.Context(), actor.StaffID, in)
	if err != nil {
		h.logger.Warn("return invoice", slog.Int64("invoice_id", req.InvoiceID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ret)
}

func (h *Handler) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	inv, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, shared.InvalidInput("id", "must be a positive number"))
		return 0, false
	}
	return id, true
}

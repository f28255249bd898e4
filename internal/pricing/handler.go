package pricing

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-mart/internal/ledger"
	"github.com/odyssey-erp/odyssey-mart/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-mart/internal/shared"
)

// Handler wires HTTP endpoints for vouchers.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs voucher handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers voucher routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.handleCreate)
	r.Get("/verify", h.handleVerify)
	r.Get("/{id}", h.handleGet)
	r.Delete("/{id}", h.handleDelete)
}

type voucherRequest struct {
	Code          string          `json:"code" validate:"required,max=64"`
	Type          string          `json:"type" validate:"required,oneof=PERCENTAGE FIXED_AMOUNT"`
	Value         decimal.Decimal `json:"value"`
	MinOrderValue decimal.Decimal `json:"minOrderValue"`
	MaxDiscount   decimal.Decimal `json:"maxDiscount"`
	StartDate     time.Time       `json:"startDate"`
	EndDate       time.Time       `json:"endDate"`
	IsActive      *bool           `json:"isActive"`
}

type verifyResponse struct {
	Voucher  ledger.Voucher  `json:"voucher"`
	Discount decimal.Decimal `json:"discount"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req voucherRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	v, err := h.service.CreateVoucher(r.Context(), VoucherInput{
		Code:          req.Code,
		Type:          ledger.VoucherType(req.Type),
		Value:         req.Value,
		MinOrderValue: req.MinOrderValue,
		MaxDiscount:   req.MaxDiscount,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		IsActive:      req.IsActive,
	}, actor.StaffID)
	if err != nil {
		h.logger.Warn("create voucher", slog.String("code", req.Code), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, v)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	orderValue, err := decimal.NewFromString(q.Get("orderValue"))
	if err != nil {
		httpx.RespondError(w, shared.InvalidInput("orderValue", "must be a number"))
		return
	}
	check, err := h.service.VerifyVoucher(r.Context(), q.Get("code"), orderValue)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, verifyResponse{Voucher: check.Voucher, Discount: check.Discount})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, shared.InvalidInput("id", "must be numeric"))
		return
	}
	v, err := h.service.GetVoucher(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, shared.InvalidInput("id", "must be numeric"))
		return
	}
	actor := shared.ActorFromContext(r.Context())
	if err := h.service.DeleteVoucher(r.Context(), id, actor.StaffID); err != nil {
		h.logger.Warn("delete voucher", slog.Int64("voucher_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

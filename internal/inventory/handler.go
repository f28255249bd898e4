package inventory

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-mart/internal/ledger"
	"github.com/odyssey-erp/odyssey-mart/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-mart/internal/shared"
)

// Handler wires HTTP endpoints for inventory module.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/receipts", h.handleCreateReceipt)
	r.Post("/adjustments", h.handleAdjustment)
	r.Get("/products/{id}/stock-logs", h.handleStockLogs)
	r.Get("/low-stock", h.handleLowStock)
}

type productDataRequest struct {
	Name            string          `json:"name" validate:"required"`
	Barcode         string          `json:"barcode" validate:"required"`
	CategoryID      int64           `json:"categoryId" validate:"required,gt=0"`
	RetailPrice     decimal.Decimal `json:"retailPrice"`
	Unit            string          `json:"unit"`
	MinStockLevel   int64           `json:"minStockLevel" validate:"gte=0"`
	PackingQuantity int64           `json:"packingQuantity" validate:"gte=0"`
	Description     string          `json:"description"`
}

type receiptItemRequest struct {
	ProductID   int64               `json:"productId" validate:"required_without=ProductData"`
	ProductData *productDataRequest `json:"productData"`
	Quantity    int64               `json:"quantity" validate:"required,gt=0"`
	UnitCost    decimal.Decimal     `json:"unitCost"`
}

type receiptRequest struct {
	SupplierID int64                `json:"supplierId" validate:"required,gt=0"`
	Note       string               `json:"note"`
	Items      []receiptItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (req receiptRequest) input(staffID int64) ImportReceiptInput {
	in := ImportReceiptInput{SupplierID: req.SupplierID, StaffID: staffID, Note: req.Note}
	for _, item := range req.Items {
		if item.ProductData != nil {
			pd := item.ProductData
			in.Lines = append(in.Lines, NewProductLine{
				Product: NewProduct{
					Name:            pd.Name,
					Barcode:         pd.Barcode,
					CategoryID:      pd.CategoryID,
					RetailPrice:     pd.RetailPrice,
					Unit:            pd.Unit,
					MinStockLevel:   pd.MinStockLevel,
					PackingQuantity: pd.PackingQuantity,
					Description:     pd.Description,
				},
				Quantity: item.Quantity,
				UnitCost: item.UnitCost,
			})
			continue
		}
		in.Lines = append(in.Lines, ExistingProductLine{ProductID: item.ProductID, Quantity: item.Quantity, UnitCost: item.UnitCost})
	}
	return in
}

type adjustmentRequest struct {
	ProductID  int64  `json:"productId" validate:"required,gt=0"`
	ChangeType string `json:"changeType" validate:"required,oneof=DAMAGE AUDIT"`
	Quantity   int64  `json:"quantity" validate:"gte=0"`
	Note       string `json:"note"`
}

func (h *Handler) handleCreateReceipt(w http.ResponseWriter, r *http.Request) {
	var req receiptRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	receipt, err := h.service.CreateImportReceipt(r.Context(), req.input(actor.StaffID))
	if err != nil {
		h.logger.Warn("create import receipt", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, receipt)
}

func (h *Handler) handleAdjustment(w http.ResponseWriter, r *http.Request) {
	var req adjustmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	log, err := h.service.AdjustStock(r.Context(), AdjustStockInput{
		ProductID:  req.ProductID,
		ChangeType: ledger.ChangeType(req.ChangeType),
		Quantity:   req.Quantity,
		Note:       req.Note,
	}, actor.StaffID)
	if err != nil {
		h.logger.Warn("adjust stock", slog.Int64("product_id", req.ProductID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, log)
}

func (h *Handler) handleStockLogs(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, shared.InvalidInput("id", "must be numeric"))
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			httpx.RespondError(w, shared.InvalidInput("limit", "must be numeric"))
			return
		}
	}
	logs, err := h.service.StockHistory(r.Context(), id, limit)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, logs)
}

func (h *Handler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.LowStock(r.Context())
	if err != nil {
		h.logger.Error("low stock", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, products)
}

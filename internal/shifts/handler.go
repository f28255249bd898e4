package shifts

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-mart/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-mart/internal/shared"
)

// Handler wires HTTP endpoints for shifts.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs shifts handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers shift routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/start", h.handleStart)
	r.Post("/end", h.handleEnd)
	r.Get("/current", h.handleCurrent)
}

type startRequest struct {
	InitialCash decimal.Decimal `json:"initialCash"`
}

type endRequest struct {
	ActualCash decimal.Decimal `json:"actualCash"`
	Note       string          `json:"note" validate:"max=500"`
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	shift, err := h.service.Start(r.Context(), actor.StaffID, req.InitialCash)
	if err != nil {
		h.logger.Warn("start shift", slog.Int64("staff_id", actor.StaffID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, shift)
}

func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	var req endRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	shift, err := h.service.End(r.Context(), actor.StaffID, req.ActualCash, req.Note)
	if err != nil {
		h.logger.Warn("end shift", slog.Int64("staff_id", actor.StaffID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, shift)
}

func (h *Handler) handleCurrent(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	shift, err := h.service.Current(r.Context(), actor.StaffID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, shift)
}

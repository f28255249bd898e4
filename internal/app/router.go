package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/odyssey-mart/internal/inventory"
	"github.com/odyssey-erp/odyssey-mart/internal/observability"
	"github.com/odyssey-erp/odyssey-mart/internal/pricing"
	"github.com/odyssey-erp/odyssey-mart/internal/sales"
	"github.com/odyssey-erp/odyssey-mart/internal/shifts"
	"github.com/odyssey-erp/odyssey-mart/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	InventoryHandler *inventory.Handler
	SalesHandler     *sales.Handler
	ShiftsHandler    *shifts.Handler
	VoucherHandler   *pricing.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with mart defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	if !params.Config.IsProduction() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		if params.InventoryHandler != nil {
			r.Route("/inventory", params.InventoryHandler.MountRoutes)
		}
		if params.SalesHandler != nil {
			r.Route("/sales", params.SalesHandler.MountRoutes)
			r.Route("/store", params.SalesHandler.MountStoreRoutes)
			r.Route("/orders", params.SalesHandler.MountOrderRoutes)
		}
		if params.ShiftsHandler != nil {
			r.Route("/shifts", params.ShiftsHandler.MountRoutes)
		}
		if params.VoucherHandler != nil {
			r.Route("/vouchers", params.VoucherHandler.MountRoutes)
		}
	})
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}

package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-mart/internal/jobs"
	"github.com/odyssey-erp/odyssey-mart/internal/ledger"
)

const (
	// TaskStockReconcile compares product stock against the stock log history.
	TaskStockReconcile = "inventory:reconcile"
)

// StockReconcilePayload carries scheduling metadata.
type StockReconcilePayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewStockReconcileTask constructs an Asynq task for stock reconciliation.
func NewStockReconcileTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(StockReconcilePayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockReconcile, body, asynq.Queue(QueueDefault)), nil
}

// StockReconciler finds products whose stock drifted from their log.
type StockReconciler interface {
	ReconcileStock(ctx context.Context) ([]ledger.StockDrift, error)
}

// StockReconcileJob reports stock drift. It never corrects stock itself.
type StockReconcileJob struct {
	Store   StockReconciler
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewStockReconcileJob initialises the reconciliation handler.
func NewStockReconcileJob(store StockReconciler, logger *slog.Logger, metrics *jobmetrics.Metrics) *StockReconcileJob {
	return &StockReconcileJob{Store: store, Logger: logger, Metrics: metrics}
}

// Handle processes TaskStockReconcile tasks.
func (j *StockReconcileJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	tracker := j.Metrics.Track(TaskStockReconcile)
	defer func() { err = tracker.End(err) }()

	var payload StockReconcilePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("decode reconcile payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("job", TaskStockReconcile))

	start := time.Now()
	drifts, err := j.Store.ReconcileStock(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "reconcile stock", slog.Any("error", err))
		return err
	}
	for _, d := range drifts {
		logger.ErrorContext(ctx, "stock drift detected",
			slog.Int64("product_id", d.ProductID),
			slog.Int64("stock", d.StockQuantity),
			slog.Int64("logged", d.LoggedQuantity),
		)
	}
	j.Metrics.SetStockDrift(len(drifts))
	logger.InfoContext(ctx, "completed stock reconciliation",
		slog.Int("drifting_products", len(drifts)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-mart/internal/inventory"
	jobmetrics "github.com/odyssey-erp/odyssey-mart/internal/jobs"
	"github.com/odyssey-erp/odyssey-mart/internal/ledger"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLowStockAlert carries a single product that crossed its reorder level.
	TaskLowStockAlert = "inventory:low_stock_alert"
	// TaskLowStockScan lists every product at or below its reorder level.
	TaskLowStockScan = "inventory:low_stock_scan"
)

// NewLowStockAlertTask constructs an Asynq task for one low-stock event.
func NewLowStockAlertTask(evt inventory.LowStockEvent) (*asynq.Task, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockAlert, data, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

// NewLowStockScanTask constructs the periodic low-stock scan task.
func NewLowStockScanTask() *asynq.Task {
	return asynq.NewTask(TaskLowStockScan, nil, asynq.Queue(QueueDefault))
}

// LowStockReader lists products needing replenishment.
type LowStockReader interface {
	LowStockProducts(ctx context.Context) ([]ledger.Product, error)
}

// LowStockJob logs replenishment alerts for the purchasing desk.
type LowStockJob struct {
	Store   LowStockReader
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLowStockJob initialises the low-stock handlers.
func NewLowStockJob(store LowStockReader, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockJob {
	return &LowStockJob{Store: store, Logger: logger, Metrics: metrics}
}

// HandleAlert processes TaskLowStockAlert tasks.
func (j *LowStockJob) HandleAlert(ctx context.Context, t *asynq.Task) (err error) {
	tracker := j.Metrics.Track(TaskLowStockAlert)
	defer func() { err = tracker.End(err) }()

	var evt inventory.LowStockEvent
	if err := json.Unmarshal(t.Payload(), &evt); err != nil {
		return fmt.Errorf("decode low stock alert: %v: %w", err, asynq.SkipRetry)
	}
	j.logger(TaskLowStockAlert).WarnContext(ctx, "product below reorder level",
		slog.Int64("product_id", evt.ProductID),
		slog.String("barcode", evt.Barcode),
		slog.String("name", evt.Name),
		slog.Int64("stock", evt.StockQuantity),
		slog.Int64("min_stock_level", evt.MinStockLevel),
	)
	return nil
}

// HandleScan processes TaskLowStockScan tasks.
func (j *LowStockJob) HandleScan(ctx context.Context, _ *asynq.Task) (err error) {
	tracker := j.Metrics.Track(TaskLowStockScan)
	defer func() { err = tracker.End(err) }()

	logger := j.logger(TaskLowStockScan)
	products, err := j.Store.LowStockProducts(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "list low stock products", slog.Any("error", err))
		return err
	}
	for _, p := range products {
		logger.WarnContext(ctx, "product below reorder level",
			slog.Int64("product_id", p.ID),
			slog.String("barcode", p.Barcode),
			slog.Int64("stock", p.StockQuantity),
			slog.Int64("min_stock_level", p.MinStockLevel),
		)
	}
	j.Metrics.SetLowStock(len(products))
	logger.InfoContext(ctx, "completed low stock scan", slog.Int("products", len(products)))
	return nil
}

func (j *LowStockJob) logger(task string) *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", task))
	}
	return slog.Default().With(slog.String("job", task))
}

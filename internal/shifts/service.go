// Package shifts opens and closes cashier drawer sessions and reconciles counted cash.
package shifts

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-mart/internal/ledger"
	"github.com/odyssey-erp/odyssey-mart/internal/shared"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages work shifts.
type Service struct {
	store  ledger.Store
	audit  AuditPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service.
func NewService(store ledger.Store, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, audit: audit, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Start opens a shift for staffID with the float placed in the drawer.
func (s *Service) Start(ctx context.Context, staffID int64, initialCash decimal.Decimal) (ledger.WorkShift, error) {
	if staffID <= 0 {
		return ledger.WorkShift{}, shared.InvalidInput("staffId", "required")
	}
	if initialCash.IsNegative() {
		return ledger.WorkShift{}, shared.InvalidInput("initialCash", "must not be negative")
	}
	var shift ledger.WorkShift
	err := s.store.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		if open, err := tx.GetOpenShiftForUpdate(ctx, staffID); err == nil {
			return shared.InvalidState("staff %d already has shift %d open", staffID, open.ID)
		} else if shared.KindOf(err) != shared.ErrNotFound {
			return err
		}
		var err error
		shift, err = tx.InsertShift(ctx, ledger.WorkShift{
			StaffID:       staffID,
			StartTime:     s.now(),
			InitialCash:   initialCash,
			SystemRevenue: decimal.Zero,
			ActualCash:    decimal.Zero,
			Difference:    decimal.Zero,
		})
		return err
	})
	if err != nil {
		return ledger.WorkShift{}, err
	}
	s.logger.InfoContext(ctx, "shift started", slog.Int64("shift_id", shift.ID), slog.Int64("staff_id", staffID))
	s.record(ctx, staffID, "shift.start", shift.ID, map[string]any{"initial_cash": initialCash.String()})
	return shift, nil
}

// End closes the open shift of staffID. Difference is the counted cash minus the float and the
// cash takings of the shift's completed invoices.
func (s *Service) End(ctx context.Context, staffID int64, actualCash decimal.Decimal, note string) (ledger.WorkShift, error) {
	if staffID <= 0 {
		return ledger.WorkShift{}, shared.InvalidInput("staffId", "required")
	}
	if actualCash.IsNegative() {
		return ledger.WorkShift{}, shared.InvalidInput("actualCash", "must not be negative")
	}
	var shift ledger.WorkShift
	err := s.store.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		shift, err = tx.GetOpenShiftForUpdate(ctx, staffID)
		if err != nil {
			if shared.KindOf(err) == shared.ErrNotFound {
				return shared.InvalidState("staff %d has no open shift", staffID)
			}
			return err
		}
		revenue, err := tx.CashRevenue(ctx, shift.ID)
		if err != nil {
			return err
		}
		end := s.now()
		shift.EndTime = &end
		shift.SystemRevenue = revenue
		shift.ActualCash = actualCash
		shift.Difference = actualCash.Sub(shift.InitialCash.Add(revenue))
		shift.Note = note
		return tx.CloseShift(ctx, shift)
	})
	if err != nil {
		return ledger.WorkShift{}, err
	}
	level := slog.LevelInfo
	if !shift.Difference.IsZero() {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, "shift ended",
		slog.Int64("shift_id", shift.ID),
		slog.Int64("staff_id", staffID),
		slog.String("system_revenue", shift.SystemRevenue.String()),
		slog.String("difference", shift.Difference.String()))
	s.record(ctx, staffID, "shift.end", shift.ID, map[string]any{"difference": shift.Difference.String()})
	return shift, nil
}

// Current returns the open shift of staffID.
func (s *Service) Current(ctx context.Context, staffID int64) (ledger.WorkShift, error) {
	if staffID <= 0 {
		return ledger.WorkShift{}, shared.InvalidInput("staffId", "required")
	}
	var shift ledger.WorkShift
	err := s.store.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		shift, err = tx.GetOpenShiftForUpdate(ctx, staffID)
		return err
	})
	return shift, err
}

func (s *Service) record(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: "work_shift", EntityID: strconv.FormatInt(id, 10), Meta: meta, At: s.now()}); err != nil {
		s.logger.WarnContext(ctx, "audit shift", slog.String("action", action), slog.Any("error", err))
	}
}

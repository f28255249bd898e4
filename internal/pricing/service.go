package pricing

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-mart/internal/ledger"
	"github.com/odyssey-erp/odyssey-mart/internal/shared"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service administers vouchers.
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

// VoucherInput describes a new voucher.
type VoucherInput struct {
	Code          string
	Type          ledger.VoucherType
	Value         decimal.Decimal
	MinOrderValue decimal.Decimal
	MaxDiscount   decimal.Decimal
	StartDate     time.Time
	EndDate       time.Time
	IsActive      *bool
}

// VoucherCheck is the preview of applying a voucher to an order value.
type VoucherCheck struct {
	Voucher  ledger.Voucher
	Discount decimal.Decimal
}

// CreateVoucher validates and stores a voucher.
func (s *Service) CreateVoucher(ctx context.Context, in VoucherInput, actorID int64) (ledger.Voucher, error) {
	code := strings.TrimSpace(in.Code)
	if code == "" {
		return ledger.Voucher{}, shared.InvalidInput("code", "required")
	}
	switch in.Type {
	case ledger.VoucherPercentage:
		if in.Value.GreaterThan(hundred) {
			return ledger.Voucher{}, shared.InvalidInput("value", "percentage must not exceed 100")
		}
	case ledger.VoucherFixedAmount:
	default:
		return ledger.Voucher{}, shared.InvalidInput("type", "must be PERCENTAGE or FIXED_AMOUNT")
	}
	if !in.Value.IsPositive() {
		return ledger.Voucher{}, shared.InvalidInput("value", "must be positive")
	}
	if in.MinOrderValue.IsNegative() || in.MaxDiscount.IsNegative() {
		return ledger.Voucher{}, shared.InvalidInput("minOrderValue", "limits must not be negative")
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return ledger.Voucher{}, shared.InvalidInput("startDate", "start and end date required")
	}
	if !in.StartDate.Before(in.EndDate) {
		return ledger.Voucher{}, shared.InvalidInput("startDate", "must be before end date")
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	var created ledger.Voucher
	err := s.store.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		v, err := tx.InsertVoucher(ctx, ledger.Voucher{
			Code:          code,
			Type:          in.Type,
			Value:         in.Value,
			MinOrderValue: in.MinOrderValue,
			MaxDiscount:   in.MaxDiscount,
			StartDate:     in.StartDate,
			EndDate:       in.EndDate,
			IsActive:      active,
		})
		created = v
		return err
	})
	if err != nil {
		return ledger.Voucher{}, err
	}
	s.record(ctx, actorID, "voucher.create", created.ID, map[string]any{"code": created.Code})
	return created, nil
}

// VerifyVoucher previews the discount of code on orderValue without consuming it.
func (s *Service) VerifyVoucher(ctx context.Context, code string, orderValue decimal.Decimal) (VoucherCheck, error) {
	if strings.TrimSpace(code) == "" {
		return VoucherCheck{}, shared.InvalidInput("code", "required")
	}
	var check VoucherCheck
	err := s.store.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		v, err := tx.GetVoucherByCodeForUpdate(ctx, code)
		if err != nil {
			return err
		}
		discount, err := VoucherDiscount(v, orderValue, s.now())
		if err != nil {
			return err
		}
		check = VoucherCheck{Voucher: v, Discount: decimal.Min(discount, orderValue)}
		return nil
	})
	return check, err
}

// GetVoucher loads a voucher by id.
func (s *Service) GetVoucher(ctx context.Context, id int64) (ledger.Voucher, error) {
	var v ledger.Voucher
	err := s.store.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		v, err = tx.GetVoucher(ctx, id)
		return err
	})
	return v, err
}

// DeleteVoucher removes a voucher that was never applied.
func (s *Service) DeleteVoucher(ctx context.Context, id, actorID int64) error {
	err := s.store.WithTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		v, err := tx.GetVoucher(ctx, id)
		if err != nil {
			return err
		}
		if v.UsedCount > 0 {
			return shared.InvalidState("voucher %s was used %d times, deactivate it instead", v.Code, v.UsedCount)
		}
		return tx.DeleteVoucher(ctx, id)
	})
	if err != nil {
		return err
	}
	s.record(ctx, actorID, "voucher.delete", id, nil)
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: "voucher", EntityID: strconv.FormatInt(id, 10), Meta: meta}); err != nil {
		s.logger.Warn("audit voucher", slog.String("action", action), slog.Any("error", err))
	}
}

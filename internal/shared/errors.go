package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a duplicate unique key.
	ErrConflict = errors.New("conflict")
	// ErrInvalidInput indicates a malformed payload.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInsufficientStock indicates a quantity exceeding available stock.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidState indicates an operation not allowed in the current state.
	ErrInvalidState = errors.New("invalid state")
)

// Error carries the kind of a rejected operation together with the offending reference.
type Error struct {
	Kind   error
	Entity string
	Ref    string
	Msg    string
}

func (e *Error) Error() string {
	switch {
	case e.Entity != "" && e.Ref != "" && e.Msg != "":
		return fmt.Sprintf("%s: %s %s: %s", e.Kind, e.Entity, e.Ref, e.Msg)
	case e.Entity != "" && e.Ref != "":
		return fmt.Sprintf("%s: %s %s", e.Kind, e.Entity, e.Ref)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	default:
		return e.Kind.Error()
	}
}

func (e *Error) Unwrap() error { return e.Kind }

// NotFound reports a missing entity.
func NotFound(entity string, ref any) error {
	return &Error{Kind: ErrNotFound, Entity: entity, Ref: fmt.Sprint(ref)}
}

// Conflict reports a duplicate unique value.
func Conflict(entity, field string, value any) error {
	return &Error{Kind: ErrConflict, Entity: entity, Ref: fmt.Sprint(value), Msg: field + " already exists"}
}

// InvalidInput reports a malformed field.
func InvalidInput(field, msg string) error {
	return &Error{Kind: ErrInvalidInput, Entity: "field", Ref: field, Msg: msg}
}

// InsufficientStock reports a product whose stock cannot cover the requested quantity.
func InsufficientStock(productID, requested, available int64) error {
	return &Error{
		Kind:   ErrInsufficientStock,
		Entity: "product",
		Ref:    fmt.Sprint(productID),
		Msg:    fmt.Sprintf("requested %d, available %d", requested, available),
	}
}

// InvalidState reports an operation rejected by the current state of an entity.
func InvalidState(format string, args ...any) error {
	return &Error{Kind: ErrInvalidState, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the sentinel kind of err, or nil for unexpected failures.
func KindOf(err error) error {
	for _, kind := range []error{ErrNotFound, ErrConflict, ErrInvalidInput, ErrInsufficientStock, ErrInvalidState} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// KindLabel names the kind of err for logs and metrics.
func KindLabel(err error) string {
	switch KindOf(err) {
	case ErrNotFound:
		return "not_found"
	case ErrConflict:
		return "conflict"
	case ErrInvalidInput:
		return "invalid_input"
	case ErrInsufficientStock:
		return "insufficient_stock"
	case ErrInvalidState:
		return "invalid_state"
	default:
		return "internal"
	}
}

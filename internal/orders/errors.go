package orders

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid order transition")

	// ErrOperationFailed stands in for any infrastructure error inside a
	// transaction scope; the cause is logged, never returned.
	ErrOperationFailed = errors.New("operation failed")
)

// InvalidTransitionError rejects a transition out of a non-PENDING state.
type InvalidTransitionError struct {
	OrderID string
	Status  Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order %s cannot change state; current status: %s", e.OrderID, e.Status)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

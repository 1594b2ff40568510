package records

import (
	"errors"
	"fmt"
	"testing"
)

func TestInsufficientStockError(t *testing.T) {
	err := &InsufficientStockError{Album: "Untrue", Available: 2, Requested: 5}

	want := "insufficient stock for record Untrue: 2 available, 5 requested"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, ErrInsufficientStock) {
		t.Error("expected errors.Is match on ErrInsufficientStock")
	}
	if !errors.Is(fmt.Errorf("placing order: %w", err), ErrInsufficientStock) {
		t.Error("expected match through wrapping")
	}
}

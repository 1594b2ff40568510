package records

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrConflict          = errors.New("record already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// InsufficientStockError reports how far short the available quantity fell.
type InsufficientStockError struct {
	Album     string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for record %s: %d available, %d requested",
		e.Album, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

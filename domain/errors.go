package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCartNotFound         = errors.New("cart not found")
	ErrEmptyCart            = errors.New("cart is empty, nothing to checkout")
	ErrCartLocked           = errors.New("cart is locked by another checkout attempt")
	ErrCartAlreadyConverted = errors.New("cart has already been converted to an order")
	ErrCartAbandoned        = errors.New("cart has been abandoned")

	ErrPaymentMethodInvalid = errors.New("payment method not found or not owned by requester")

	// ErrConcurrentModification is surfaced after the single internal retry
	// of a version-conditioned inventory update has also failed.
	ErrConcurrentModification = errors.New("inventory changed concurrently, please retry")

	ErrOrderNotFound = errors.New("order not found")
)

// StockShortage describes one SKU that could not be reserved.
type StockShortage struct {
	SKU       string `json:"sku"`
	Requested int32  `json:"requested"`
	Available int32  `json:"available"`
}

// InsufficientStockError enumerates every short SKU in a reservation attempt
// so the client can prompt per-line quantity reductions instead of guessing.
type InsufficientStockError struct {
	Shortages []StockShortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("%s: requested %d, available %d", s.SKU, s.Requested, s.Available))
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

// PersistError marks an order-persistence failure whose outcome is ambiguous:
// the caller must re-query the order by cart id before retrying.
type PersistError struct {
	Cause error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("order persistence failed: %v", e.Cause)
}

func (e *PersistError) Unwrap() error {
	return e.Cause
}

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CartStatus string

const (
	CartStatusActive    CartStatus = "ACTIVE"
	CartStatusLocked    CartStatus = "LOCKED"
	CartStatusConverted CartStatus = "CONVERTED"
	CartStatusAbandoned CartStatus = "ABANDONED"
)

// String representation (for logging)
func (s CartStatus) String() string {
	return string(s)
}

// CartLine is a single SKU entry in a cart. ClientUnitPrice is whatever the
// client sent when the line was added; it is kept for anomaly auditing only
// and never enters a price calculation.
type CartLine struct {
	SKU             string          `json:"sku"`
	Quantity        int32           `json:"quantity"`
	ClientUnitPrice decimal.Decimal `json:"client_unit_price"`
}

// Cart is the mutable shopping cart as seen by the checkout engine.
// CustomerID is nil for guest carts. Lines are immutable once the status
// leaves ACTIVE.
type Cart struct {
	ID         uuid.UUID
	CustomerID *string
	StoreID    int64
	Lines      []CartLine
	Status     CartStatus
	ExpiresAt  time.Time
	UpdatedAt  time.Time
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

type ReservationStatus string

const (
	ReservationStatusActive   ReservationStatus = "ACTIVE"
	ReservationStatusConsumed ReservationStatus = "CONSUMED"
	ReservationStatusReleased ReservationStatus = "RELEASED"
	ReservationStatusExpired  ReservationStatus = "EXPIRED"
)

// ReservationItem is one reserved SKU quantity within a reservation.
type ReservationItem struct {
	SKU      string `json:"sku"`
	Quantity int32  `json:"quantity"`
}

// Reservation is a temporary hold converting available inventory into
// reserved inventory for one checkout attempt. ExpiresAt bounds how long a
// crashed attempt can keep stock out of circulation.
type Reservation struct {
	ID        uuid.UUID
	CartID    uuid.UUID
	StoreID   int64
	Items     []ReservationItem
	Status    ReservationStatus
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsExpired checks if the reservation has passed its expiry.
func (r *Reservation) IsExpired() bool {
	return time.Now().After(r.ExpiresAt)
}

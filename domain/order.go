package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Order is the finalized result of a checkout. CartID is unique across
// orders, which is what makes "cart already converted" detectable at insert
// time even if two attempts somehow both reach persistence.
type Order struct {
	ID              uuid.UUID
	OrderNumber     string
	CartID          uuid.UUID
	ReservationID   uuid.UUID
	StoreID         int64
	CustomerID      *string
	PaymentMethodID string
	PaymentType     string
	DeliveryType    DeliveryType
	Snapshot        PricingSnapshot
	Status          OrderStatus
	CreatedAt       time.Time
}

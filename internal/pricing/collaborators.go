package pricing

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrPriceNotFound = errors.New("no catalog price for sku")

	// ErrPaymentMethodNotOwned distinguishes "exists but belongs to someone
	// else" from plain not-found; both reject the checkout the same way.
	ErrPaymentMethodNotOwned = errors.New("payment method not owned by requester")
	ErrPaymentMethodNotFound = errors.New("payment method not found")
)

// Catalog supplies authoritative unit prices and the store's jurisdiction
// tax rate. Client-supplied prices never substitute for these.
type Catalog interface {
	UnitPrice(ctx context.Context, storeID int64, sku string) (decimal.Decimal, error)
	TaxRate(ctx context.Context, storeID int64) (decimal.Decimal, error)
}

// PromoResult is either a granted discount or a rejection reason, never both.
type PromoResult struct {
	Discount decimal.Decimal
	Rejected string
}

// Promotions validates promo codes against their eligibility rules (expiry,
// minimum purchase, usage limits).
type Promotions interface {
	ValidateCode(ctx context.Context, code string, cartTotal decimal.Decimal) (PromoResult, error)
}

// DeliveryZones resolves the delivery fee for a store/zone pair.
type DeliveryZones interface {
	DeliveryFee(ctx context.Context, storeID int64, zone string) (decimal.Decimal, error)
}

// PaymentMethods resolves a payment method reference and verifies ownership.
type PaymentMethods interface {
	Resolve(ctx context.Context, paymentMethodID, ownerID string) (string, error)
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type DeliveryType string

const (
	DeliveryTypeDelivery DeliveryType = "DELIVERY"
	DeliveryTypePickup   DeliveryType = "PICKUP"
)

// PricedLine is one cart line repriced from the catalog at checkout time.
type PricedLine struct {
	SKU       string          `json:"sku"`
	Quantity  int32           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// PricingSnapshot is the full server-computed price of the cart at checkout
// time. It is immutable once calculated and is embedded into the Order, never
// persisted on its own. PromoRejected carries the reason a promo code was
// refused; a rejected code degrades to zero discount instead of failing the
// checkout.
type PricingSnapshot struct {
	Lines          []PricedLine    `json:"lines"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	DeliveryFee    decimal.Decimal `json:"delivery_fee"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
	Currency       string          `json:"currency"`
	PromoCode      string          `json:"promo_code,omitempty"`
	PromoRejected  string          `json:"promo_rejected,omitempty"`
	CapturedAt     time.Time       `json:"captured_at"`
}

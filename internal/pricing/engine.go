package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/checkout-engine/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// minorUnit is the number of decimal places of the currency's smallest
// denomination. All monetary outputs are rounded to it with banker's
// rounding so repeated checkouts carry no systematic bias.
const minorUnit = 2

// Engine recomputes every monetary figure of a checkout from authoritative
// sources. Whatever price the client sent on a cart line is only compared
// against the catalog for anomaly auditing.
type Engine struct {
	catalog    Catalog
	promotions Promotions
	zones      DeliveryZones
	currency   string
	logger     zerolog.Logger
}

func NewEngine(catalog Catalog, promotions Promotions, zones DeliveryZones, currency string, logger zerolog.Logger) *Engine {
	return &Engine{
		catalog:    catalog,
		promotions: promotions,
		zones:      zones,
		currency:   currency,
		logger:     logger.With().Str("component", "pricing").Logger(),
	}
}

// Calculate builds the pricing snapshot for one checkout attempt. A rejected
// promo code degrades to zero discount with the reason on the snapshot;
// anything else that fails aborts the calculation.
func (e *Engine) Calculate(ctx context.Context, cart *domain.Cart, deliveryType domain.DeliveryType, zone, promoCode string) (*domain.PricingSnapshot, error) {
	if len(cart.Lines) == 0 {
		return nil, domain.ErrEmptyCart
	}

	snapshot := &domain.PricingSnapshot{
		Lines:      make([]domain.PricedLine, 0, len(cart.Lines)),
		Currency:   e.currency,
		PromoCode:  promoCode,
		CapturedAt: time.Now().UTC(),
	}

	subtotal := decimal.Zero
	for _, line := range cart.Lines {
		unitPrice, err := e.catalog.UnitPrice(ctx, cart.StoreID, line.SKU)
		if err != nil {
			return nil, fmt.Errorf("fetch price for %s: %w", line.SKU, err)
		}

		if !line.ClientUnitPrice.IsZero() && !line.ClientUnitPrice.Equal(unitPrice) {
			e.logger.Warn().
				Stringer("cart_id", cart.ID).
				Str("sku", line.SKU).
				Str("client_price", line.ClientUnitPrice.String()).
				Str("catalog_price", unitPrice.String()).
				Msg("client-supplied price differs from catalog")
		}

		lineTotal := unitPrice.Mul(decimal.NewFromInt32(line.Quantity)).RoundBank(minorUnit)
		snapshot.Lines = append(snapshot.Lines, domain.PricedLine{
			SKU:       line.SKU,
			Quantity:  line.Quantity,
			UnitPrice: unitPrice,
			LineTotal: lineTotal,
		})
		subtotal = subtotal.Add(lineTotal)
	}
	snapshot.Subtotal = subtotal.RoundBank(minorUnit)

	snapshot.DiscountAmount = decimal.Zero
	if promoCode != "" {
		result, err := e.promotions.ValidateCode(ctx, promoCode, snapshot.Subtotal)
		if err != nil {
			return nil, fmt.Errorf("validate promo code: %w", err)
		}
		if result.Rejected != "" {
			snapshot.PromoRejected = result.Rejected
			e.logger.Info().
				Stringer("cart_id", cart.ID).
				Str("promo_code", promoCode).
				Str("reason", result.Rejected).
				Msg("promo code rejected, no discount applied")
		} else {
			snapshot.DiscountAmount = result.Discount.RoundBank(minorUnit)
		}
	}

	// Tax applies to the subtotal net of discounts, floored at zero.
	taxable := snapshot.Subtotal.Sub(snapshot.DiscountAmount)
	if taxable.IsNegative() {
		taxable = decimal.Zero
	}
	rate, err := e.catalog.TaxRate(ctx, cart.StoreID)
	if err != nil {
		return nil, fmt.Errorf("fetch tax rate: %w", err)
	}
	snapshot.TaxAmount = taxable.Mul(rate).RoundBank(minorUnit)

	snapshot.DeliveryFee = decimal.Zero
	if deliveryType == domain.DeliveryTypeDelivery {
		fee, e2 := e.zones.DeliveryFee(ctx, cart.StoreID, zone)
		if e2 != nil {
			return nil, fmt.Errorf("fetch delivery fee: %w", e2)
		}
		snapshot.DeliveryFee = fee.RoundBank(minorUnit)
	}

	grand := snapshot.Subtotal.
		Sub(snapshot.DiscountAmount).
		Add(snapshot.TaxAmount).
		Add(snapshot.DeliveryFee)
	if grand.IsNegative() {
		grand = decimal.Zero
	}
	snapshot.GrandTotal = grand.RoundBank(minorUnit)

	return snapshot, nil
}

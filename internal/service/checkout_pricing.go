package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/checkout-engine/domain"
)

func (s *Orchestrator) price(ctx context.Context, cart *domain.Cart, request *CheckoutRequest) (*domain.PricingSnapshot, error) {
	started := time.Now()
	defer s.observeStep("price", started)

	snapshot, err := s.pricer.Calculate(ctx, cart, request.DeliveryType, request.DeliveryZone, request.PromoCode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPricingFailed, err)
	}
	return snapshot, nil
}

package service

import (
	"context"
	"time"

	"github.com/fjod/checkout-engine/domain"
)

func (s *Orchestrator) reserveInventory(ctx context.Context, cart *domain.Cart) (*domain.Reservation, error) {
	started := time.Now()
	defer s.observeStep("reserve_inventory", started)

	reservation, err := s.reserver.ValidateAndReserve(ctx, cart)
	if err != nil {
		return nil, err
	}
	return reservation, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/checkout-engine/domain"
	"github.com/google/uuid"
)

// persistOrder writes the order together with the cart and reservation
// finalization and the order-created outbox event. Any failure other than a
// detected duplicate is ambiguous for the caller and is wrapped accordingly.
func (s *Orchestrator) persistOrder(
	ctx context.Context,
	cart *domain.Cart,
	reservation *domain.Reservation,
	snapshot *domain.PricingSnapshot,
	request *CheckoutRequest,
	paymentType string,
) (*domain.Order, error) {
	started := time.Now()
	defer s.observeStep("persist_order", started)

	order := &domain.Order{
		ID:              uuid.New(),
		OrderNumber:     newOrderNumber(),
		CartID:          cart.ID,
		ReservationID:   reservation.ID,
		StoreID:         cart.StoreID,
		CustomerID:      cart.CustomerID,
		PaymentMethodID: request.PaymentMethodID,
		PaymentType:     paymentType,
		DeliveryType:    request.DeliveryType,
		Snapshot:        *snapshot,
		Status:          domain.OrderStatusPending,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.orders.CommitOrder(ctx, order); err != nil {
		if errors.Is(err, domain.ErrCartAlreadyConverted) {
			return nil, err
		}
		return nil, &domain.PersistError{Cause: err}
	}
	return order, nil
}

// newOrderNumber produces the human-facing order reference, distinct from
// the order's UUID.
func newOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", time.Now().UTC().Format("20060102"), suffix)
}

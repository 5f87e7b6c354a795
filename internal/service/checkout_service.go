package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/checkout-engine/domain"
	"github.com/fjod/checkout-engine/internal/metrics"
	"github.com/fjod/checkout-engine/internal/pricing"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type CheckoutRequest struct {
	CartID          uuid.UUID
	PrincipalID     string
	DeliveryType    domain.DeliveryType
	DeliveryZone    string
	PromoCode       string
	PaymentMethodID string
}

// CartStore is the slice of the repository the orchestrator needs for carts.
type CartStore interface {
	GetCart(ctx context.Context, cartID uuid.UUID) (*domain.Cart, error)
	UpdateCartStatus(ctx context.Context, cartID uuid.UUID, from, to domain.CartStatus) error
}

// OrderStore persists and re-queries orders.
type OrderStore interface {
	CommitOrder(ctx context.Context, order *domain.Order) error
	GetOrderByCartID(ctx context.Context, cartID uuid.UUID) (*domain.Order, error)
}

// Reserver is the inventory reservation service.
type Reserver interface {
	ValidateAndReserve(ctx context.Context, cart *domain.Cart) (*domain.Reservation, error)
	Release(ctx context.Context, reservation *domain.Reservation) error
}

// Pricer recomputes the cart's monetary totals from authoritative data.
type Pricer interface {
	Calculate(ctx context.Context, cart *domain.Cart, deliveryType domain.DeliveryType, zone, promoCode string) (*domain.PricingSnapshot, error)
}

type CheckoutService interface {
	Checkout(ctx context.Context, request *CheckoutRequest) (*domain.Order, error)
	OrderByCart(ctx context.Context, cartID uuid.UUID) (*domain.Order, error)
}

// Orchestrator drives one checkout attempt through its state machine:
// Init → LockAcquired → InventoryReserved → Priced → OrderPersisted →
// LockReleased. The cart lock is the outermost scope; every step after the
// cart is marked LOCKED undoes its own side effects before the lock goes.
type Orchestrator struct {
	carts       CartStore
	orders      OrderStore
	locker      Locker
	reserver    Reserver
	pricer      Pricer
	payments    pricing.PaymentMethods
	lockTimeout time.Duration
	metrics     *metrics.CheckoutMetrics
	logger      zerolog.Logger
}

func NewOrchestrator(
	carts CartStore,
	orders OrderStore,
	locker Locker,
	reserver Reserver,
	pricer Pricer,
	payments pricing.PaymentMethods,
	lockTimeout time.Duration,
	m *metrics.CheckoutMetrics,
	logger zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		carts:       carts,
		orders:      orders,
		locker:      locker,
		reserver:    reserver,
		pricer:      pricer,
		payments:    payments,
		lockTimeout: lockTimeout,
		metrics:     m,
		logger:      logger.With().Str("component", "checkout").Logger(),
	}
}

// Checkout turns an active cart into an order exactly once. A caller
// disconnect does not abort the attempt: once started it runs to a terminal
// state so no partial inventory movement is silently abandoned.
func (s *Orchestrator) Checkout(ctx context.Context, request *CheckoutRequest) (order *domain.Order, err error) {
	ctx = context.WithoutCancel(ctx)
	state := domain.CheckoutStateInit
	logger := s.logger.With().Stringer("cart_id", request.CartID).Logger()

	defer func() {
		s.observeOutcome(err)
	}()

	// Fraud control before any mutation: the payment method must belong to
	// the requesting principal.
	paymentType, err := s.resolvePaymentMethod(ctx, request)
	if err != nil {
		return nil, err
	}

	// The lock key includes the store, so the cart is read once up front.
	// Its status is only trusted after the lock is held.
	cart, err := s.carts.GetCart(ctx, request.CartID)
	if err != nil {
		return nil, err
	}

	handle, err := s.locker.Acquire(ctx, cart.StoreID, cart.ID, s.lockTimeout)
	if err != nil {
		return nil, err
	}
	state = advance(state, domain.CheckoutStateLockAcquired)
	defer func() {
		if e2 := handle.Release(ctx); e2 != nil {
			logger.Error().Err(e2).Msg("failed to release cart lock")
		}
	}()

	// Re-check under the lock: a prior attempt may be mid-flight on another
	// connection or may have already converted the cart.
	cart, err = s.carts.GetCart(ctx, request.CartID)
	if err != nil {
		return nil, err
	}
	if err = checkCartCheckoutable(cart); err != nil {
		return nil, err
	}

	if err = s.carts.UpdateCartStatus(ctx, cart.ID, domain.CartStatusActive, domain.CartStatusLocked); err != nil {
		return nil, domain.ErrCartLocked
	}

	reservation, err := s.reserveInventory(ctx, cart)
	if err != nil {
		s.unlockCart(ctx, cart.ID)
		return nil, err
	}
	state = advance(state, domain.CheckoutStateInventoryReserved)

	snapshot, err := s.price(ctx, cart, request)
	if err != nil {
		s.releaseReservation(ctx, reservation)
		s.unlockCart(ctx, cart.ID)
		return nil, err
	}
	state = advance(state, domain.CheckoutStatePriced)

	order, err = s.persistOrder(ctx, cart, reservation, snapshot, request, paymentType)
	if err != nil {
		if !errors.Is(err, domain.ErrCartAlreadyConverted) {
			// Conditional compensation: if the commit actually went through,
			// both undo updates miss their expected status and no-op.
			s.releaseReservation(ctx, reservation)
			s.unlockCart(ctx, cart.ID)
		}
		return nil, err
	}
	state = advance(state, domain.CheckoutStateOrderPersisted)

	logger.Info().
		Stringer("order_id", order.ID).
		Str("order_number", order.OrderNumber).
		Str("grand_total", order.Snapshot.GrandTotal.String()).
		Msg("checkout completed")
	return order, nil
}

// OrderByCart is the idempotent re-query path for ambiguous persistence
// failures: before retrying a checkout the caller asks whether an order
// already exists for the cart.
func (s *Orchestrator) OrderByCart(ctx context.Context, cartID uuid.UUID) (*domain.Order, error) {
	return s.orders.GetOrderByCartID(ctx, cartID)
}

func checkCartCheckoutable(cart *domain.Cart) error {
	switch cart.Status {
	case domain.CartStatusActive:
	case domain.CartStatusLocked:
		return domain.ErrCartLocked
	case domain.CartStatusConverted:
		return domain.ErrCartAlreadyConverted
	case domain.CartStatusAbandoned:
		return domain.ErrCartAbandoned
	default:
		return fmt.Errorf("cart in unexpected status %s", cart.Status)
	}
	if len(cart.Lines) == 0 {
		return domain.ErrEmptyCart
	}
	return nil
}

// unlockCart moves a cart back to ACTIVE after a failed attempt.
func (s *Orchestrator) unlockCart(ctx context.Context, cartID uuid.UUID) {
	if err := s.carts.UpdateCartStatus(ctx, cartID, domain.CartStatusLocked, domain.CartStatusActive); err != nil {
		s.logger.Error().Err(err).Stringer("cart_id", cartID).Msg("failed to unlock cart")
	}
}

func (s *Orchestrator) releaseReservation(ctx context.Context, reservation *domain.Reservation) {
	if err := s.reserver.Release(ctx, reservation); err != nil {
		s.logger.Error().Err(err).
			Stringer("reservation_id", reservation.ID).
			Msg("failed to release reservation")
	}
}

func advance(from, to domain.CheckoutState) domain.CheckoutState {
	if !domain.CanTransitionTo(from, to) {
		// Transitions are hard-wired in Checkout; a mismatch is a programming
		// error worth failing loudly in development.
		panic(fmt.Sprintf("illegal checkout transition %s -> %s", from, to))
	}
	return to
}

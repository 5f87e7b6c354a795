package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/checkout-engine/domain"
	"github.com/fjod/checkout-engine/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// casAttempts bounds the re-read/retry loop used when returning stock. The
// add-back itself is always safe to retry; the version condition only guards
// against lost updates from concurrent writers.
const casAttempts = 5

// Store is the slice of the repository the reservation service needs.
type Store interface {
	GetInventoryRecord(ctx context.Context, storeID int64, sku string) (*domain.InventoryRecord, error)
	ReserveStock(ctx context.Context, storeID int64, sku string, quantity int32, version int64) error
	ReturnStock(ctx context.Context, storeID int64, sku string, quantity int32, version int64) error
	CreateReservation(ctx context.Context, res *domain.Reservation) error
	GetReservation(ctx context.Context, id uuid.UUID) (*domain.Reservation, error)
	UpdateReservationStatus(ctx context.Context, id uuid.UUID, from, to domain.ReservationStatus) error
	GetExpiredActiveReservations(ctx context.Context, limit int) ([]*domain.Reservation, error)
}

// ReservationService converts available stock into reserved stock for one
// cart, all-or-nothing, using per-row optimistic versioning. Different carts
// contending on the same SKU are serialized by the version column, not by
// the cart lock.
type ReservationService struct {
	store  Store
	ttl    time.Duration
	logger zerolog.Logger
}

func NewReservationService(store Store, ttl time.Duration, logger zerolog.Logger) *ReservationService {
	return &ReservationService{
		store:  store,
		ttl:    ttl,
		logger: logger.With().Str("component", "inventory").Logger(),
	}
}

// ValidateAndReserve checks every cart line against current availability and
// reserves all of them atomically per SKU. A version conflict anywhere rolls
// the whole attempt back and retries once with fresh reads before giving up.
func (s *ReservationService) ValidateAndReserve(ctx context.Context, cart *domain.Cart) (*domain.Reservation, error) {
	if len(cart.Lines) == 0 {
		return nil, domain.ErrEmptyCart
	}

	err := s.reserveAll(ctx, cart)
	if errors.Is(err, repository.ErrVersionConflict) {
		s.logger.Info().Stringer("cart_id", cart.ID).Msg("reservation hit version conflict, retrying with fresh reads")
		err = s.reserveAll(ctx, cart)
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, domain.ErrConcurrentModification
		}
	}
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	reservation := &domain.Reservation{
		ID:        uuid.New(),
		CartID:    cart.ID,
		StoreID:   cart.StoreID,
		Items:     reservationItems(cart),
		Status:    domain.ReservationStatusActive,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if e2 := s.store.CreateReservation(ctx, reservation); e2 != nil {
		// The stock is already moved; put it back before surfacing the error.
		s.returnItems(ctx, cart.StoreID, reservation.Items)
		return nil, fmt.Errorf("persist reservation: %w", e2)
	}

	s.logger.Info().
		Stringer("reservation_id", reservation.ID).
		Stringer("cart_id", cart.ID).
		Int("lines", len(reservation.Items)).
		Time("expires_at", reservation.ExpiresAt).
		Msg("stock reserved")
	return reservation, nil
}

// reserveAll is one full validate-then-reserve pass over the cart.
func (s *ReservationService) reserveAll(ctx context.Context, cart *domain.Cart) error {
	records := make([]*domain.InventoryRecord, len(cart.Lines))
	var shortages []domain.StockShortage

	for i, line := range cart.Lines {
		rec, err := s.store.GetInventoryRecord(ctx, cart.StoreID, line.SKU)
		if errors.Is(err, repository.ErrSKUNotFound) {
			shortages = append(shortages, domain.StockShortage{SKU: line.SKU, Requested: line.Quantity, Available: 0})
			continue
		}
		if err != nil {
			return fmt.Errorf("read inventory for %s: %w", line.SKU, err)
		}
		if rec.Available < line.Quantity {
			shortages = append(shortages, domain.StockShortage{SKU: line.SKU, Requested: line.Quantity, Available: rec.Available})
			continue
		}
		records[i] = rec
	}
	if len(shortages) > 0 {
		return &domain.InsufficientStockError{Shortages: shortages}
	}

	for i, line := range cart.Lines {
		err := s.store.ReserveStock(ctx, cart.StoreID, line.SKU, line.Quantity, records[i].Version)
		if err != nil {
			// Undo the lines reserved so far, then report upward.
			s.returnItems(ctx, cart.StoreID, reservationItems(cart)[:i])
			if errors.Is(err, repository.ErrVersionConflict) {
				return repository.ErrVersionConflict
			}
			return fmt.Errorf("reserve stock for %s: %w", line.SKU, err)
		}
	}
	return nil
}

// Release reverses a reservation's stock movement and marks it RELEASED.
// Releasing an already released or consumed reservation is a logged no-op.
func (s *ReservationService) Release(ctx context.Context, reservation *domain.Reservation) error {
	err := s.store.UpdateReservationStatus(ctx, reservation.ID, domain.ReservationStatusActive, domain.ReservationStatusReleased)
	if errors.Is(err, repository.ErrReservationStatusConflict) {
		s.logger.Info().
			Stringer("reservation_id", reservation.ID).
			Msg("release skipped, reservation no longer active")
		return nil
	}
	if err != nil {
		return fmt.Errorf("mark reservation released: %w", err)
	}

	s.returnItems(ctx, reservation.StoreID, reservation.Items)
	s.logger.Info().Stringer("reservation_id", reservation.ID).Msg("reservation released")
	return nil
}

// returnItems moves reserved quantities back to available, re-reading the
// version on each attempt. Failures are logged rather than propagated; the
// reservation row has already been claimed by the caller's transition.
func (s *ReservationService) returnItems(ctx context.Context, storeID int64, items []domain.ReservationItem) {
	for _, item := range items {
		if err := s.returnStock(ctx, storeID, item.SKU, item.Quantity); err != nil {
			s.logger.Error().Err(err).
				Str("sku", item.SKU).
				Int32("quantity", item.Quantity).
				Msg("failed to return reserved stock")
		}
	}
}

func (s *ReservationService) returnStock(ctx context.Context, storeID int64, sku string, quantity int32) error {
	var lastErr error
	for i := 0; i < casAttempts; i++ {
		rec, err := s.store.GetInventoryRecord(ctx, storeID, sku)
		if err != nil {
			return err
		}
		err = s.store.ReturnStock(ctx, storeID, sku, quantity, rec.Version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

func reservationItems(cart *domain.Cart) []domain.ReservationItem {
	items := make([]domain.ReservationItem, len(cart.Lines))
	for i, line := range cart.Lines {
		items[i] = domain.ReservationItem{SKU: line.SKU, Quantity: line.Quantity}
	}
	return items
}

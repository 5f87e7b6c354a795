package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/checkout-engine/domain"
	"github.com/fjod/checkout-engine/internal/metrics"
	"github.com/fjod/checkout-engine/internal/repository"
	"github.com/rs/zerolog"
)

const sweepBatchSize = 100

// Sweeper reclaims stock from reservations whose checkout attempt died
// without releasing them. It is the crash-recovery path: the advisory lock
// evaporates with the dead session, and the sweep returns the quantities.
type Sweeper struct {
	svc      *ReservationService
	interval time.Duration
	metrics  *metrics.CheckoutMetrics
	logger   zerolog.Logger
}

func NewSweeper(svc *ReservationService, interval time.Duration, m *metrics.CheckoutMetrics, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		svc:      svc,
		interval: interval,
		metrics:  m,
		logger:   logger.With().Str("component", "sweeper").Logger(),
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.SweepExpired(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// SweepExpired expires every ACTIVE reservation past its deadline and
// returns its quantities to the available pool. Also invocable directly as
// the hook for an external scheduler.
func (s *Sweeper) SweepExpired(ctx context.Context) {
	expired, err := s.svc.store.GetExpiredActiveReservations(ctx, sweepBatchSize)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list expired reservations")
		return
	}

	for _, reservation := range expired {
		// Claiming the row first means a concurrent sweep cannot return the
		// same quantities twice.
		err := s.svc.store.UpdateReservationStatus(ctx, reservation.ID,
			domain.ReservationStatusActive, domain.ReservationStatusExpired)
		if errors.Is(err, repository.ErrReservationStatusConflict) {
			continue
		}
		if err != nil {
			s.logger.Error().Err(err).
				Stringer("reservation_id", reservation.ID).
				Msg("failed to expire reservation")
			continue
		}

		s.svc.returnItems(ctx, reservation.StoreID, reservation.Items)

		if s.metrics != nil {
			s.metrics.SweptReservations.Inc()
		}
		s.logger.Info().
			Stringer("reservation_id", reservation.ID).
			Stringer("cart_id", reservation.CartID).
			Msg("expired reservation swept")
	}
}

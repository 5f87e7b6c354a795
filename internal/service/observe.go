package service

import (
	"errors"
	"time"

	"github.com/fjod/checkout-engine/domain"
	"github.com/fjod/checkout-engine/internal/lock"
)

func (s *Orchestrator) observeStep(step string, started time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.StepLatencyMS.WithLabelValues(step).Observe(float64(time.Since(started).Milliseconds()))
}

func (s *Orchestrator) observeOutcome(err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.Attempts.WithLabelValues(outcomeLabel(err)).Inc()
}

func outcomeLabel(err error) string {
	var stockErr *domain.InsufficientStockError
	var persistErr *domain.PersistError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, lock.ErrTimeout):
		return "lock_timeout"
	case errors.Is(err, domain.ErrCartLocked):
		return "cart_locked"
	case errors.Is(err, domain.ErrCartAlreadyConverted):
		return "cart_converted"
	case errors.As(err, &stockErr):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrConcurrentModification):
		return "concurrent_modification"
	case errors.Is(err, domain.ErrPaymentMethodInvalid):
		return "payment_method_invalid"
	case errors.Is(err, ErrPricingFailed):
		return "pricing_failed"
	case errors.As(err, &persistErr):
		return "persist_failed"
	default:
		return "error"
	}
}

package service

import (
	"context"
	"time"

	"github.com/fjod/checkout-engine/domain"
)

// resolvePaymentMethod verifies that the payment method reference belongs to
// the requesting principal. Runs before any mutation; a mismatch is terminal
// for the attempt.
func (s *Orchestrator) resolvePaymentMethod(ctx context.Context, request *CheckoutRequest) (string, error) {
	started := time.Now()
	defer s.observeStep("resolve_payment_method", started)

	paymentType, err := s.payments.Resolve(ctx, request.PaymentMethodID, request.PrincipalID)
	if err != nil {
		s.logger.Warn().Err(err).
			Stringer("cart_id", request.CartID).
			Str("payment_method_id", request.PaymentMethodID).
			Msg("payment method rejected")
		return "", domain.ErrPaymentMethodInvalid
	}
	return paymentType, nil
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fjod/checkout-engine/domain"
	"github.com/fjod/checkout-engine/internal/lock"
	"github.com/fjod/checkout-engine/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type CheckoutHandler struct {
	svc     service.CheckoutService
	timeout time.Duration
}

func NewCheckoutHandler(svc service.CheckoutService, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		svc:     svc,
		timeout: timeout,
	}
}

type CheckoutRequestDTO struct {
	CartID          string `json:"cart_id"`
	DeliveryType    string `json:"delivery_type"`
	DeliveryZone    string `json:"delivery_zone,omitempty"`
	PromoCode       string `json:"promo_code,omitempty"`
	PaymentMethodID string `json:"payment_method_id"`
}

type PricedLineDTO struct {
	SKU       string `json:"sku"`
	Quantity  int32  `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
}

type OrderResponseDTO struct {
	ID             string          `json:"id"`
	OrderNumber    string          `json:"order_number"`
	CartID         string          `json:"cart_id"`
	Status         string          `json:"status"`
	DeliveryType   string          `json:"delivery_type"`
	Lines          []PricedLineDTO `json:"lines"`
	Subtotal       string          `json:"subtotal"`
	DiscountAmount string          `json:"discount_amount"`
	TaxAmount      string          `json:"tax_amount"`
	DeliveryFee    string          `json:"delivery_fee"`
	GrandTotal     string          `json:"grand_total"`
	Currency       string          `json:"currency"`
	PromoRejected  string          `json:"promo_rejected,omitempty"`
	CreatedAt      string          `json:"created_at"`
}

// POST /api/v1/checkout
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	principalID := getPrincipalID(r.Context())
	if principalID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing principal", retryNo)
		return
	}

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body", retryNo)
		return
	}

	cartID, err := uuid.Parse(req.CartID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_cart_id", "cart_id must be a UUID", retryNo)
		return
	}
	deliveryType, err := parseDeliveryType(req.DeliveryType)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_delivery_type", err.Error(), retryNo)
		return
	}
	if req.PaymentMethodID == "" {
		respondError(w, http.StatusBadRequest, "missing_payment_method", "payment_method_id is required", retryNo)
		return
	}

	order, err := h.svc.Checkout(ctx, &service.CheckoutRequest{
		CartID:          cartID,
		PrincipalID:     principalID,
		DeliveryType:    deliveryType,
		DeliveryZone:    req.DeliveryZone,
		PromoCode:       req.PromoCode,
		PaymentMethodID: req.PaymentMethodID,
	})
	if err != nil {
		handleCheckoutError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, convertOrder(order))
}

// GET /api/v1/carts/{cartID}/order
//
// The idempotent re-query path: after an ambiguous persistence failure the
// client asks here whether its order made it before re-submitting.
func (h *CheckoutHandler) OrderByCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cartID, err := uuid.Parse(chi.URLParam(r, "cartID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_cart_id", "cart_id must be a UUID", retryNo)
		return
	}

	order, err := h.svc.OrderByCart(ctx, cartID)
	if errors.Is(err, domain.ErrOrderNotFound) {
		respondError(w, http.StatusNotFound, "order_not_found", "no order exists for this cart", retryNo)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error", retryBackoff)
		return
	}

	respondJSON(w, http.StatusOK, convertOrder(order))
}

// handleCheckoutError maps the engine's error taxonomy onto HTTP statuses
// and retry guidance.
func handleCheckoutError(w http.ResponseWriter, err error) {
	var stockErr *domain.InsufficientStockError
	var persistErr *domain.PersistError

	switch {
	case errors.Is(err, lock.ErrTimeout):
		respondError(w, http.StatusServiceUnavailable, "lock_timeout",
			"another checkout for this cart is in progress, try again", retryBackoff)
	case errors.Is(err, domain.ErrCartNotFound):
		respondError(w, http.StatusNotFound, "cart_not_found", "cart not found", retryNo)
	case errors.Is(err, domain.ErrCartLocked):
		respondError(w, http.StatusConflict, "cart_locked",
			"another checkout attempt owns this cart", retryBackoff)
	case errors.Is(err, domain.ErrCartAlreadyConverted):
		respondError(w, http.StatusConflict, "cart_converted",
			"this cart has already been checked out", retryNo)
	case errors.Is(err, domain.ErrCartAbandoned):
		respondError(w, http.StatusConflict, "cart_abandoned", "this cart has been abandoned", retryNo)
	case errors.Is(err, domain.ErrEmptyCart):
		respondError(w, http.StatusUnprocessableEntity, "empty_cart", "cart has no lines", retryNo)
	case errors.As(err, &stockErr):
		respondJSON(w, http.StatusConflict, ErrorResponse{
			Error:     "insufficient stock for one or more lines",
			Code:      "insufficient_stock",
			Retry:     retryAfterEdit,
			Shortages: stockErr.Shortages,
		})
	case errors.Is(err, domain.ErrConcurrentModification):
		respondError(w, http.StatusConflict, "concurrent_modification",
			"inventory changed while reserving, try again", retryBackoff)
	case errors.Is(err, domain.ErrPaymentMethodInvalid):
		respondError(w, http.StatusUnprocessableEntity, "payment_method_invalid",
			"payment method not found or not owned by requester", retryNo)
	case errors.Is(err, service.ErrPricingFailed):
		respondError(w, http.StatusBadGateway, "pricing_failed",
			"could not price the cart from catalog data", retryBackoff)
	case errors.As(err, &persistErr):
		respondError(w, http.StatusInternalServerError, "persist_failed",
			"order persistence failed; query the order by cart id before retrying", retryCheckOrder)
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error", retryBackoff)
	}
}

func parseDeliveryType(s string) (domain.DeliveryType, error) {
	switch s {
	case "delivery":
		return domain.DeliveryTypeDelivery, nil
	case "pickup":
		return domain.DeliveryTypePickup, nil
	default:
		return "", errors.New(`delivery_type must be "delivery" or "pickup"`)
	}
}

func convertOrder(order *domain.Order) OrderResponseDTO {
	lines := make([]PricedLineDTO, 0, len(order.Snapshot.Lines))
	for _, line := range order.Snapshot.Lines {
		lines = append(lines, PricedLineDTO{
			SKU:       line.SKU,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice.StringFixed(2),
			LineTotal: line.LineTotal.StringFixed(2),
		})
	}
	return OrderResponseDTO{
		ID:             order.ID.String(),
		OrderNumber:    order.OrderNumber,
		CartID:         order.CartID.String(),
		Status:         string(order.Status),
		DeliveryType:   string(order.DeliveryType),
		Lines:          lines,
		Subtotal:       order.Snapshot.Subtotal.StringFixed(2),
		DiscountAmount: order.Snapshot.DiscountAmount.StringFixed(2),
		TaxAmount:      order.Snapshot.TaxAmount.StringFixed(2),
		DeliveryFee:    order.Snapshot.DeliveryFee.StringFixed(2),
		GrandTotal:     order.Snapshot.GrandTotal.StringFixed(2),
		Currency:       order.Snapshot.Currency,
		PromoRejected:  order.Snapshot.PromoRejected,
		CreatedAt:      order.CreatedAt.UTC().Format(time.RFC3339),
	}
}

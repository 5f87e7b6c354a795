package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/fjod/checkout-engine/domain"
)

// Retry guidance values surfaced with every error body so clients know
// whether re-submitting is safe.
const (
	retryNo         = "no"
	retryBackoff    = "after_backoff"
	retryAfterEdit  = "after_cart_edit"
	retryCheckOrder = "check_order_first"
)

type ErrorResponse struct {
	Error     string                 `json:"error"`
	Code      string                 `json:"code"`
	Retry     string                 `json:"retry"`
	Shortages []domain.StockShortage `json:"shortages,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message, retry string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
		Retry: retry,
	})
}

package http

import (
	"database/sql"
	"net/http"

	"github.com/fjod/checkout-engine/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the checkout endpoints. The health check pings the
// database because an engine that cannot reach Postgres cannot lock carts.
func NewRouter(handler *CheckoutHandler, db *sql.DB) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := db.PingContext(req.Context()); err != nil {
			respondError(w, http.StatusServiceUnavailable, "db_unreachable", "database unreachable", retryBackoff)
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(PrincipalMiddleware)
		r.Post("/checkout", handler.Checkout)
		r.Get("/carts/{cartID}/order", handler.OrderByCart)
	})

	return r
}

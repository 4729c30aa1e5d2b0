package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"storefront/internal/customer"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Catalog  *CatalogHandler
	Customer *CustomerHandler
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Gateway  *GatewayHandler
}

// NewRouter assembles the HTTP surface. Gateway callbacks are mounted
// outside the session middleware: SSLCommerz posts them server-to-server
// and carries no shopper cookies.
func NewRouter(h Handlers, customers customer.Service, secret string) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	h.Gateway.RegisterRoutes(router)

	router.Group(func(r chi.Router) {
		r.Use(SessionMiddleware(customers, secret))

		h.Catalog.RegisterRoutes(r)
		h.Customer.RegisterRoutes(r)
		h.Cart.RegisterRoutes(r)
		h.Checkout.RegisterRoutes(r)
	})

	return router
}

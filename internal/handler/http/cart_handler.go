package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"storefront/internal/cart"
	"storefront/internal/catalog"
)

type CartHandler struct {
	service cart.Service
}

func NewCartHandler(service cart.Service) *CartHandler {
	return &CartHandler{service: service}
}

func (h *CartHandler) RegisterRoutes(router chi.Router) {
	router.Post("/cart/add/{productID}", h.handleAddToCart)
	router.Get("/cart", h.handleGetCart)
	router.Post("/cart/remove/{itemID}", h.handleRemoveItem)
}

func (h *CartHandler) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.FromString(chi.URLParam(r, "productID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid product id")
		return
	}

	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid form body")
		return
	}

	variantID := uuid.NullUUID{}
	if raw := r.PostForm.Get("variant_id"); raw != "" {
		parsed, parseErr := uuid.FromString(raw)
		if parseErr != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid variant id")
			return
		}
		variantID = uuid.NullUUID{UUID: parsed, Valid: true}
	}

	size := r.PostForm.Get("size")
	color := r.PostForm.Get("color")
	quantity := cart.ParseQuantity(r.PostForm.Get("quantity"))

	identity := IdentityFromContext(r.Context())

	err = h.service.AddItem(r.Context(), identity, productID, variantID, size, color, quantity)
	if err != nil {
		statusCode := mapErrorToStatusCode(err)

		var clientMessage string
		switch {
		case errors.Is(err, catalog.ErrNoVariant):
			if size != "" || color != "" {
				clientMessage = "Selected variant is not available for this product."
			} else {
				clientMessage = "No variant available for this product."
			}
		case errors.Is(err, catalog.ErrProductNotFound):
			clientMessage = "Product not found."
		case errors.Is(err, cart.ErrStaffHasNoCart):
			clientMessage = "Staff accounts cannot use the cart."
		default:
			log.Error().Err(err).Msg("Failed to add item to cart")
			clientMessage = "Failed to add item to cart."
		}

		respondWithError(w, statusCode, clientMessage)
		return
	}

	view, err := h.service.GetView(r.Context(), identity)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load cart after add")
		respondWithError(w, http.StatusInternalServerError, "Failed to load cart")
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

func (h *CartHandler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())

	view, err := h.service.GetView(r.Context(), identity)
	if err != nil {
		if errors.Is(err, cart.ErrStaffHasNoCart) {
			respondWithError(w, http.StatusForbidden, "Staff accounts cannot use the cart.")
			return
		}
		log.Error().Err(err).Msg("Failed to load cart")
		respondWithError(w, http.StatusInternalServerError, "Failed to load cart")
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

func (h *CartHandler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.FromString(chi.URLParam(r, "itemID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid item id")
		return
	}

	identity := IdentityFromContext(r.Context())

	if err := h.service.RemoveItem(r.Context(), identity, itemID); err != nil {
		statusCode := mapErrorToStatusCode(err)
		if errors.Is(err, cart.ErrItemNotFound) {
			respondWithError(w, statusCode, "Cart item not found.")
			return
		}
		log.Error().Err(err).Msg("Failed to remove cart item")
		respondWithError(w, statusCode, "Failed to remove cart item.")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/checkout"
	"storefront/internal/customer"
	"storefront/internal/order"
)

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func mapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, order.ErrPaymentNotFound),
		errors.Is(err, cart.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrNoVariant),
		errors.Is(err, checkout.ErrCartEmpty),
		errors.Is(err, checkout.ErrAddressRequired),
		errors.Is(err, checkout.ErrInvalidPaymentType),
		errors.Is(err, order.ErrMissingCallbackParams),
		errors.Is(err, order.ErrVerificationFailed),
		errors.Is(err, order.ErrBadSignature),
		errors.Is(err, order.ErrInvalidStatusTransition):
		return http.StatusBadRequest
	case errors.Is(err, customer.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, cart.ErrStaffHasNoCart):
		return http.StatusForbidden
	case errors.Is(err, customer.ErrEmailExists):
		return http.StatusConflict
	case errors.Is(err, checkout.ErrGatewayUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

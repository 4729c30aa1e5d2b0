package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"storefront/internal/order"
)

// GatewayHandler serves the four SSLCommerz callbacks. The browser-facing
// callbacks answer JSON where the original rendered pages; the IPN answers
// the plain-text bodies the gateway expects.
type GatewayHandler struct {
	service order.Service
}

func NewGatewayHandler(service order.Service) *GatewayHandler {
	return &GatewayHandler{service: service}
}

func (h *GatewayHandler) RegisterRoutes(router chi.Router) {
	router.Post("/payments/sslcommerz/success", h.handleSuccess)
	router.Post("/payments/sslcommerz/fail", h.handleFail)
	router.Post("/payments/sslcommerz/cancel", h.handleCancel)
	router.Post("/payments/sslcommerz/ipn", h.handleIPN)
}

func callbackParams(r *http.Request) order.CallbackParams {
	return order.CallbackParams{
		TranID:     r.PostForm.Get("tran_id"),
		ValID:      r.PostForm.Get("val_id"),
		CardType:   r.PostForm.Get("card_type"),
		CardBrand:  r.PostForm.Get("card_brand"),
		BankTranID: r.PostForm.Get("bank_tran_id"),
		Raw:        r.PostForm,
	}
}

func (h *GatewayHandler) handleSuccess(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid payment response.")
		return
	}

	result, err := h.service.HandleSuccess(r.Context(), callbackParams(r))
	if err != nil {
		switch {
		case errors.Is(err, order.ErrMissingCallbackParams):
			respondWithError(w, http.StatusBadRequest, "Invalid payment response.")
		case errors.Is(err, order.ErrPaymentNotFound):
			respondWithError(w, http.StatusNotFound, "Payment not found.")
		case errors.Is(err, order.ErrVerificationFailed):
			respondWithError(w, http.StatusBadRequest, "Payment validation failed.")
		default:
			log.Error().Err(err).Msg("Success callback failed")
			respondWithError(w, http.StatusInternalServerError, "Failed to process payment callback.")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *GatewayHandler) handleFail(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid payment response.")
		return
	}

	if err := h.service.HandleFail(r.Context(), r.PostForm.Get("tran_id")); err != nil {
		log.Error().Err(err).Msg("Fail callback processing error")
	}

	// The gateway always gets its fail page back, even for an unknown
	// transaction id.
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "failed"})
}

func (h *GatewayHandler) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid payment response.")
		return
	}

	if err := h.service.HandleCancel(r.Context(), r.PostForm.Get("tran_id")); err != nil {
		log.Error().Err(err).Msg("Cancel callback processing error")
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "canceled"})
}

func writeText(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}

func (h *GatewayHandler) handleIPN(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeText(w, http.StatusBadRequest, "Invalid IPN")
		return
	}

	result, err := h.service.HandleIPN(r.Context(), callbackParams(r))
	if err != nil {
		switch {
		case errors.Is(err, order.ErrMissingCallbackParams):
			writeText(w, http.StatusBadRequest, "Invalid IPN")
		case errors.Is(err, order.ErrPaymentNotFound):
			writeText(w, http.StatusNotFound, "Payment not found")
		case errors.Is(err, order.ErrBadSignature):
			writeText(w, http.StatusBadRequest, "Hash validation failed")
		case errors.Is(err, order.ErrVerificationFailed):
			writeText(w, http.StatusBadRequest, "Validation failed")
		default:
			log.Error().Err(err).Msg("IPN processing error")
			writeText(w, http.StatusInternalServerError, "IPN processing error")
		}
		return
	}

	if result.AlreadyProcessed {
		writeText(w, http.StatusOK, "Already processed")
		return
	}

	writeText(w, http.StatusOK, "IPN processed successfully")
}

package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/customer"
	"storefront/internal/order"
)

type CheckoutRequest struct {
	PaymentType  string `json:"payment_type" validate:"required,oneof=sslcommerz cod"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"address_line1" validate:"required"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
}

// CheckoutPageResponse prefills the checkout form: the customer's latest
// saved address and the previously staged payment type.
type CheckoutPageResponse struct {
	Address     *customer.Address `json:"address,omitempty"`
	PaymentType string            `json:"payment_type,omitempty"`
}

type CheckoutHandler struct {
	service   checkout.Service
	customers customer.Service
	validate  *validator.Validate
}

func NewCheckoutHandler(service checkout.Service, customers customer.Service) *CheckoutHandler {
	return &CheckoutHandler{
		service:   service,
		customers: customers,
		validate:  validator.New(),
	}
}

func (h *CheckoutHandler) RegisterRoutes(router chi.Router) {
	router.Get("/checkout", h.handleGetCheckout)
	router.Post("/checkout", h.handlePostCheckout)
}

func (h *CheckoutHandler) handleGetCheckout(w http.ResponseWriter, r *http.Request) {
	resp := CheckoutPageResponse{}

	if cookie, err := r.Cookie(paymentCookie); err == nil {
		resp.PaymentType = cookie.Value
	}

	identity := IdentityFromContext(r.Context())
	if identity.Kind == cart.IdentityCustomer {
		if addr, err := h.customers.LatestAddress(r.Context(), identity.CustomerID); err == nil {
			resp.Address = addr
		} else if !errors.Is(err, customer.ErrNoSavedAddress) {
			log.Error().Err(err).Msg("Failed to load latest address")
		}
	}

	respondWithJSON(w, http.StatusOK, resp)
}

func (h *CheckoutHandler) handlePostCheckout(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid form body")
		return
	}

	requestPayload := CheckoutRequest{
		PaymentType:  r.PostForm.Get("payment_type"),
		FirstName:    r.PostForm.Get("first_name"),
		LastName:     r.PostForm.Get("last_name"),
		Phone:        r.PostForm.Get("phone"),
		AddressLine1: r.PostForm.Get("address_line1"),
		AddressLine2: r.PostForm.Get("address_line2"),
		City:         r.PostForm.Get("city"),
		State:        r.PostForm.Get("state"),
		PostalCode:   r.PostForm.Get("postal_code"),
		Country:      r.PostForm.Get("country"),
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			for _, fieldErr := range validationErrors {
				if fieldErr.Field() == "PaymentType" {
					respondWithError(w, http.StatusBadRequest, "Please select a payment method.")
					return
				}
			}
			respondWithError(w, http.StatusBadRequest, "Shipping address is required.")
			return
		}
		log.Error().Err(err).Msg("Unexpected error type during validation")
		respondWithError(w, http.StatusInternalServerError, "Internal validation error")
		return
	}

	identity := IdentityFromContext(r.Context())

	email := ""
	if identity.Kind == cart.IdentityCustomer {
		if c, err := h.customers.GetByID(r.Context(), identity.CustomerID); err == nil {
			email = c.Email
		}
	}

	req := checkout.Request{
		Identity:    identity,
		PaymentType: order.PaymentType(requestPayload.PaymentType),
		Email:       email,
		ShipTo: order.ShippingAddress{
			FullName:     strings.TrimSpace(requestPayload.FirstName + " " + requestPayload.LastName),
			Phone:        requestPayload.Phone,
			AddressLine1: requestPayload.AddressLine1,
			AddressLine2: requestPayload.AddressLine2,
			City:         requestPayload.City,
			State:        requestPayload.State,
			PostalCode:   requestPayload.PostalCode,
			Country:      requestPayload.Country,
		},
	}

	result, err := h.service.Checkout(r.Context(), req)
	if err != nil {
		statusCode := mapErrorToStatusCode(err)

		var clientMessage string
		switch {
		case errors.Is(err, checkout.ErrCartEmpty):
			clientMessage = "Your cart is empty."
		case errors.Is(err, checkout.ErrAddressRequired):
			clientMessage = "Shipping address is required."
		case errors.Is(err, checkout.ErrInvalidPaymentType):
			clientMessage = "Please select a payment method."
		case errors.Is(err, checkout.ErrGatewayUnavailable):
			clientMessage = "Payment gateway is unavailable, please try again."
		case errors.Is(err, cart.ErrStaffHasNoCart):
			clientMessage = "Staff accounts cannot check out."
		default:
			log.Error().Err(err).Msg("Checkout failed")
			clientMessage = "Checkout failed."
		}

		respondWithError(w, statusCode, clientMessage)
		return
	}

	if result.CartCleared {
		// Cash on delivery completed: drop the staged payment type.
		http.SetCookie(w, &http.Cookie{Name: paymentCookie, Value: "", Path: "/", MaxAge: -1})
	} else {
		http.SetCookie(w, &http.Cookie{Name: paymentCookie, Value: requestPayload.PaymentType, Path: "/"})
	}

	respondWithJSON(w, http.StatusCreated, result)
}

package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"storefront/internal/cart"
	"storefront/internal/customer"
	"storefront/internal/order"
)

type RegisterRequest struct {
	FirstName string `json:"first_name" validate:"required,min=2"`
	LastName  string `json:"last_name" validate:"required,min=2"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type CustomerResponse struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type CustomerHandler struct {
	service  customer.Service
	orders   order.Service
	secret   string
	validate *validator.Validate
}

func NewCustomerHandler(service customer.Service, orders order.Service, secret string) *CustomerHandler {
	return &CustomerHandler{
		service:  service,
		orders:   orders,
		secret:   secret,
		validate: validator.New(),
	}
}

func (h *CustomerHandler) RegisterRoutes(router chi.Router) {
	router.Post("/register", h.handleRegister)
	router.Post("/login", h.handleLogin)
	router.Post("/logout", h.handleLogout)
	router.Get("/orders", h.handleListOrders)
	router.Get("/orders/{id}", h.handleGetOrder)
}

func (h *CustomerHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var requestPayload RegisterRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		respondWithError(w, http.StatusBadRequest, "All fields are required.")
		return
	}

	domainCustomer := customer.Customer{
		Email:     requestPayload.Email,
		FirstName: requestPayload.FirstName,
		LastName:  requestPayload.LastName,
	}

	created, err := h.service.Register(r.Context(), &domainCustomer, requestPayload.Password)
	if err != nil {
		statusCode := mapErrorToStatusCode(err)

		var clientMessage string
		if errors.Is(err, customer.ErrEmailExists) {
			clientMessage = "Email already exists."
		} else {
			log.Error().Err(err).Msg("Failed to register customer")
			clientMessage = "Failed to register."
		}

		respondWithError(w, statusCode, clientMessage)
		return
	}

	setCustomerCookie(w, h.secret, created.ID)

	respondWithJSON(w, http.StatusCreated, CustomerResponse{
		ID:        created.ID,
		FirstName: created.FirstName,
		LastName:  created.LastName,
		Email:     created.Email,
		CreatedAt: created.CreatedAt,
	})
}

func (h *CustomerHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var requestPayload LoginRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		respondWithError(w, http.StatusBadRequest, "Email and password are required.")
		return
	}

	authenticated, err := h.service.Authenticate(r.Context(), requestPayload.Email, requestPayload.Password)
	if err != nil {
		if errors.Is(err, customer.ErrInvalidCredentials) {
			respondWithError(w, http.StatusUnauthorized, "Invalid email or password.")
			return
		}
		log.Error().Err(err).Msg("Failed to authenticate customer")
		respondWithError(w, http.StatusInternalServerError, "Failed to log in.")
		return
	}

	setCustomerCookie(w, h.secret, authenticated.ID)

	respondWithJSON(w, http.StatusOK, CustomerResponse{
		ID:        authenticated.ID,
		FirstName: authenticated.FirstName,
		LastName:  authenticated.LastName,
		Email:     authenticated.Email,
		CreatedAt: authenticated.CreatedAt,
	})
}

func (h *CustomerHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	clearCustomerCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *CustomerHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())
	if identity.Kind != cart.IdentityCustomer {
		respondWithError(w, http.StatusUnauthorized, "Login required.")
		return
	}

	orders, err := h.orders.ListOrdersByCustomer(r.Context(), identity.CustomerID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list orders")
		respondWithError(w, http.StatusInternalServerError, "Failed to list orders")
		return
	}

	respondWithJSON(w, http.StatusOK, orders)
}

func (h *CustomerHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())
	if identity.Kind != cart.IdentityCustomer {
		respondWithError(w, http.StatusUnauthorized, "Login required.")
		return
	}

	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid order id")
		return
	}

	o, err := h.orders.GetOrderByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			respondWithError(w, http.StatusNotFound, "Order not found")
			return
		}
		log.Error().Err(err).Msg("Failed to get order")
		respondWithError(w, http.StatusInternalServerError, "Failed to get order")
		return
	}

	// Customers only see their own orders.
	if !o.CustomerID.Valid || o.CustomerID.UUID != identity.CustomerID {
		respondWithError(w, http.StatusNotFound, "Order not found")
		return
	}

	respondWithJSON(w, http.StatusOK, o)
}

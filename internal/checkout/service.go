// Package checkout converts a resolved cart into an order snapshot with a
// pending payment, then hands off to cash-on-delivery or the hosted
// gateway.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"storefront/internal/cart"
	"storefront/internal/customer"
	"storefront/internal/gateway/sslcommerz"
	"storefront/internal/order"
)

var (
	ErrCartEmpty          = errors.New("cart is empty")
	ErrAddressRequired    = errors.New("shipping address line 1 is required")
	ErrInvalidPaymentType = errors.New("unrecognized payment type")
	ErrGatewayUnavailable = errors.New("payment gateway is unavailable")
)

// SessionCreator is the slice of the gateway checkout needs.
type SessionCreator interface {
	CreateSession(ctx context.Context, req sslcommerz.SessionRequest) (*sslcommerz.SessionResponse, error)
}

// Request is a validated checkout submission.
type Request struct {
	Identity    cart.Identity
	PaymentType order.PaymentType
	Email       string
	ShipTo      order.ShippingAddress
}

// Result reports the created order and, for gateway payments, where to
// send the customer.
type Result struct {
	Order       *order.Order   `json:"order"`
	Payment     *order.Payment `json:"payment"`
	RedirectURL string         `json:"redirect_url,omitempty"`
	CartCleared bool           `json:"cart_cleared"`
}

type Service interface {
	Checkout(ctx context.Context, req Request) (*Result, error)
}

type service struct {
	carts     cart.Service
	orders    order.Repository
	customers customer.Service
	gateway   SessionCreator
}

func NewService(carts cart.Service, orders order.Repository, customers customer.Service, gateway SessionCreator) Service {
	return &service{carts: carts, orders: orders, customers: customers, gateway: gateway}
}

// newTransactionID is the internal payment reference, distinct from the
// gateway's tran_id.
func newTransactionID() string {
	id := uuid.Must(uuid.NewV4())
	return strings.ReplaceAll(id.String(), "-", "")[:20]
}

func (s *service) Checkout(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.ShipTo.AddressLine1) == "" {
		return nil, ErrAddressRequired
	}
	if !req.PaymentType.Valid() {
		return nil, ErrInvalidPaymentType
	}

	view, err := s.carts.GetView(ctx, req.Identity)
	if err != nil {
		return nil, err
	}
	if len(view.Items) == 0 {
		return nil, ErrCartEmpty
	}

	o := &order.Order{
		Status:   order.StatusPending,
		Subtotal: view.TotalPrice,
		// No shipping or discount computation: total passes through.
		Total:  view.TotalPrice,
		ShipTo: req.ShipTo,
	}
	switch req.Identity.Kind {
	case cart.IdentityCustomer:
		o.CustomerID = uuid.NullUUID{UUID: req.Identity.CustomerID, Valid: true}
	case cart.IdentitySession:
		o.SessionID = req.Identity.SessionKey
	}

	// Items whose variant has been deleted are skipped, never a partial
	// failure: the order freezes what is still purchasable.
	for i := range view.Items {
		item := &view.Items[i]
		if !item.VariantID.Valid {
			continue
		}
		o.Items = append(o.Items, order.OrderItem{
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	p := &order.Payment{
		PaymentType:   req.PaymentType,
		Status:        order.PaymentPending,
		Amount:        o.Total,
		TransactionID: newTransactionID(),
	}

	if err := s.orders.CreateOrder(ctx, o, p); err != nil {
		log.Error().Err(err).Msg("service: failed to create order snapshot")
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}

	// The submitted address also refreshes the customer's address book,
	// purely as a prefill for the next checkout. The order itself carries
	// its own frozen copy.
	if req.Identity.Kind == cart.IdentityCustomer {
		s.saveCustomerAddress(ctx, req)
	}

	if req.PaymentType == order.PaymentTypeCOD {
		if err := s.carts.Clear(ctx, view.Cart.ID); err != nil {
			log.Error().Err(err).Stringer("order_id", o.ID).Msg("service: failed to clear cart after COD checkout")
		}
		log.Info().Stringer("order_id", o.ID).Msg("service: cash-on-delivery order placed")
		return &Result{Order: o, Payment: p, CartCleared: true}, nil
	}

	return s.startGatewaySession(ctx, req, o, p)
}

func (s *service) startGatewaySession(ctx context.Context, req Request, o *order.Order, p *order.Payment) (*Result, error) {
	tranID := sslcommerz.GenerateTranID()

	session, err := s.gateway.CreateSession(ctx, sslcommerz.SessionRequest{
		TotalAmount:   o.Total,
		TranID:        tranID,
		CustomerName:  o.ShipTo.FullName,
		CustomerEmail: req.Email,
		CustomerPhone: o.ShipTo.Phone,
		AddressLine1:  o.ShipTo.AddressLine1,
		AddressLine2:  o.ShipTo.AddressLine2,
		City:          o.ShipTo.City,
		State:         o.ShipTo.State,
		PostalCode:    o.ShipTo.PostalCode,
		Country:       o.ShipTo.Country,
		NumItems:      len(o.Items),
	})
	if err != nil {
		// Order and payment stay pending and the cart is kept, so the
		// customer can retry checkout.
		log.Error().Err(err).Stringer("order_id", o.ID).Msg("service: gateway session creation failed")
		return nil, ErrGatewayUnavailable
	}

	if err := s.orders.SetPaymentSession(ctx, p.ID, tranID); err != nil {
		log.Error().Err(err).Stringer("payment_id", p.ID).Msg("service: failed to persist gateway tran_id")
		return nil, ErrGatewayUnavailable
	}
	p.TranID = tranID

	log.Info().Stringer("order_id", o.ID).Str("tran_id", tranID).Msg("service: gateway session created")

	return &Result{Order: o, Payment: p, RedirectURL: session.GatewayPageURL}, nil
}

func (s *service) saveCustomerAddress(ctx context.Context, req Request) {
	addr := &customer.Address{
		CustomerID:   uuid.NullUUID{UUID: req.Identity.CustomerID, Valid: true},
		FullName:     req.ShipTo.FullName,
		Phone:        req.ShipTo.Phone,
		AddressLine1: req.ShipTo.AddressLine1,
		AddressLine2: req.ShipTo.AddressLine2,
		City:         req.ShipTo.City,
		State:        req.ShipTo.State,
		PostalCode:   req.ShipTo.PostalCode,
		Country:      req.ShipTo.Country,
	}

	if existing, err := s.customers.LatestAddress(ctx, req.Identity.CustomerID); err == nil {
		addr.ID = existing.ID
	}

	if err := s.customers.SaveAddress(ctx, addr); err != nil {
		// Best-effort: the order already carries its own copy.
		log.Warn().Err(err).Msg("service: failed to refresh customer address book")
	}
}

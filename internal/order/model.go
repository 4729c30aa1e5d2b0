package order

import (
	"errors"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusShipped   OrderStatus = "shipped"
	StatusDelivered OrderStatus = "delivered"
	StatusCanceled  OrderStatus = "canceled"
)

func (s OrderStatus) String() string {
	return string(s)
}

type PaymentType string

const (
	PaymentTypeSSLCommerz PaymentType = "sslcommerz"
	PaymentTypeCOD        PaymentType = "cod"
)

func (t PaymentType) Valid() bool {
	return t == PaymentTypeSSLCommerz || t == PaymentTypeCOD
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentCanceled PaymentStatus = "canceled"
)

func (s PaymentStatus) String() string {
	return string(s)
}

var (
	ErrStatusAlreadySet        = errors.New("status is already set to the desired value")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

var orderTransitions = map[OrderStatus]map[OrderStatus]bool{
	StatusPending: {
		StatusConfirmed: true,
		StatusCanceled:  true,
	},
	StatusConfirmed: {
		StatusShipped:  true,
		StatusCanceled: true,
	},
	StatusShipped: {
		StatusDelivered: true,
	},
	StatusDelivered: {},
	StatusCanceled:  {},
}

var paymentTransitions = map[PaymentStatus]map[PaymentStatus]bool{
	PaymentPending: {
		PaymentPaid:     true,
		PaymentFailed:   true,
		PaymentCanceled: true,
	},
	PaymentPaid:     {},
	PaymentFailed:   {},
	PaymentCanceled: {},
}

// ValidateOrderTransition rejects writes that leave the legal order state
// machine; same-status writes are reported separately so callers can treat
// them as replays.
func ValidateOrderTransition(from, to OrderStatus) error {
	if from == to {
		return ErrStatusAlreadySet
	}
	allowed, ok := orderTransitions[from]
	if !ok || !allowed[to] {
		return ErrInvalidStatusTransition
	}
	return nil
}

func ValidatePaymentTransition(from, to PaymentStatus) error {
	if from == to {
		return ErrStatusAlreadySet
	}
	allowed, ok := paymentTransitions[from]
	if !ok || !allowed[to] {
		return ErrInvalidStatusTransition
	}
	return nil
}

// ShippingAddress is the frozen ship-to snapshot carried on the order row.
type ShippingAddress struct {
	FullName     string `json:"full_name"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
	Country      string `json:"country"`
}

type Order struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	CustomerID     uuid.NullUUID   `json:"customer_id,omitempty" db:"customer_id"`
	SessionID      string          `json:"session_id,omitempty" db:"session_id"`
	Status         OrderStatus     `json:"status" db:"status"`
	Subtotal       decimal.Decimal `json:"subtotal" db:"subtotal"`
	ShippingCost   decimal.Decimal `json:"shipping_cost" db:"shipping_cost"`
	DiscountAmount decimal.Decimal `json:"discount_amount" db:"discount_amount"`
	Total          decimal.Decimal `json:"total" db:"total"`
	ShipTo         ShippingAddress `json:"ship_to"`
	Items          []OrderItem     `json:"items" db:"-"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// OrderItem freezes variant, quantity and unit price at order creation,
// decoupled from later catalog price changes.
type OrderItem struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	OrderID   uuid.UUID       `json:"order_id" db:"order_id"`
	VariantID uuid.NullUUID   `json:"variant_id,omitempty" db:"variant_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price" db:"unit_price"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

func (i *OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Payment struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	OrderID       uuid.UUID       `json:"order_id" db:"order_id"`
	PaymentType   PaymentType     `json:"payment_type" db:"payment_type"`
	Status        PaymentStatus   `json:"status" db:"status"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	TransactionID string          `json:"transaction_id,omitempty" db:"transaction_id"`
	TranID        string          `json:"tran_id,omitempty" db:"tran_id"`
	ValID         string          `json:"val_id,omitempty" db:"val_id"`
	BankTranID    string          `json:"bank_tran_id,omitempty" db:"bank_tran_id"`
	CardType      string          `json:"card_type,omitempty" db:"card_type"`
	CardBrand     string          `json:"card_brand,omitempty" db:"card_brand"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

package customer

import (
	"strings"
	"time"

	"github.com/gofrs/uuid"
)

type Customer struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	IsStaff      bool      `json:"is_staff" db:"is_staff"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

func (c *Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Address is a customer's shipping contact record. Orders copy its fields
// into their own ship-to columns at checkout, so editing an address later
// never rewrites a placed order.
type Address struct {
	ID           uuid.UUID     `json:"id" db:"id"`
	CustomerID   uuid.NullUUID `json:"customer_id,omitempty" db:"customer_id"`
	FullName     string        `json:"full_name" db:"full_name"`
	Phone        string        `json:"phone" db:"phone"`
	AddressLine1 string        `json:"address_line1" db:"address_line1"`
	AddressLine2 string        `json:"address_line2,omitempty" db:"address_line2"`
	City         string        `json:"city" db:"city"`
	State        string        `json:"state,omitempty" db:"state"`
	PostalCode   string        `json:"postal_code,omitempty" db:"postal_code"`
	Country      string        `json:"country" db:"country"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" db:"updated_at"`
}

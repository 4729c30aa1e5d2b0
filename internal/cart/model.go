package cart

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// IdentityKind tags the acting party of a storefront request.
type IdentityKind int

const (
	// IdentityCustomer is an authenticated non-staff customer.
	IdentityCustomer IdentityKind = iota
	// IdentitySession is an anonymous visitor keyed by session.
	IdentitySession
	// IdentityStaff is an admin/staff user. Staff never get a cart.
	IdentityStaff
)

// Identity resolves to at most one cart. Exactly one of CustomerID or
// SessionKey is meaningful, selected by Kind.
type Identity struct {
	Kind       IdentityKind
	CustomerID uuid.UUID
	SessionKey string
}

func CustomerIdentity(id uuid.UUID) Identity {
	return Identity{Kind: IdentityCustomer, CustomerID: id}
}

func SessionIdentity(key string) Identity {
	return Identity{Kind: IdentitySession, SessionKey: key}
}

func StaffIdentity() Identity {
	return Identity{Kind: IdentityStaff}
}

type Cart struct {
	ID         uuid.UUID     `json:"id" db:"id"`
	CustomerID uuid.NullUUID `json:"customer_id,omitempty" db:"customer_id"`
	SessionID  string        `json:"session_id,omitempty" db:"session_id"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at" db:"updated_at"`
}

// Item is a cart line joined with its variant's resolved pricing. A line
// whose variant has been deleted keeps its row but prices at zero.
type Item struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	CartID      uuid.UUID       `json:"cart_id" db:"cart_id"`
	VariantID   uuid.NullUUID   `json:"variant_id,omitempty" db:"variant_id"`
	Quantity    int             `json:"quantity" db:"quantity"`
	ProductName string          `json:"product_name,omitempty"`
	SKU         string          `json:"sku,omitempty"`
	Size        string          `json:"size,omitempty"`
	Color       string          `json:"color,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// Subtotal is unit price times quantity; zero when the variant is gone.
func (i *Item) Subtotal() decimal.Decimal {
	if !i.VariantID.Valid {
		return decimal.Zero
	}
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// TotalPrice sums the item subtotals.
func TotalPrice(items []Item) decimal.Decimal {
	total := decimal.Zero
	for i := range items {
		total = total.Add(items[i].Subtotal())
	}
	return total
}

// TotalItems sums the quantities.
func TotalItems(items []Item) int {
	count := 0
	for i := range items {
		count += items[i].Quantity
	}
	return count
}

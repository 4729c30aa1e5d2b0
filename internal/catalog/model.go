package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Category struct {
	ID          uuid.UUID     `json:"id" db:"id"`
	Name        string        `json:"name" db:"name"`
	Slug        string        `json:"slug" db:"slug"`
	Description string        `json:"description,omitempty" db:"description"`
	ParentID    uuid.NullUUID `json:"parent_id,omitempty" db:"parent_id"`
	ImageURL    string        `json:"image_url,omitempty" db:"image_url"`
	IsActive    bool          `json:"is_active" db:"is_active"`
	IsMenu      bool          `json:"is_menu" db:"is_menu"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
}

// Slugify derives a category slug from its name when none is set.
func Slugify(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "-"))
}

type Product struct {
	ID            uuid.UUID           `json:"id" db:"id"`
	Name          string              `json:"name" db:"name"`
	Description   string              `json:"description,omitempty" db:"description"`
	CategoryID    uuid.NullUUID       `json:"category_id,omitempty" db:"category_id"`
	BuyingPrice   decimal.Decimal     `json:"buying_price" db:"buying_price"`
	BasePrice     decimal.Decimal     `json:"base_price" db:"base_price"`
	DiscountPrice decimal.NullDecimal `json:"discount_price,omitempty" db:"discount_price"`
	IsActive      bool                `json:"is_active" db:"is_active"`
	IsFeatured    bool                `json:"is_featured" db:"is_featured"`
	CreatedAt     time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at" db:"updated_at"`
}

// CurrentPrice is the discount price when one is set, else the base price.
func (p *Product) CurrentPrice() decimal.Decimal {
	if p.DiscountPrice.Valid {
		return p.DiscountPrice.Decimal
	}
	return p.BasePrice
}

type ProductVariant struct {
	ID        uuid.UUID           `json:"id" db:"id"`
	ProductID uuid.UUID           `json:"product_id" db:"product_id"`
	SKU       string              `json:"sku" db:"sku"`
	Price     decimal.NullDecimal `json:"price,omitempty" db:"price"`
	Stock     int                 `json:"stock" db:"stock"`
	Color     string              `json:"color,omitempty" db:"color"`
	Size      string              `json:"size,omitempty" db:"size"`
	Weight    decimal.NullDecimal `json:"weight,omitempty" db:"weight"`
	ImageURL  string              `json:"image_url,omitempty" db:"image_url"`
	IsActive  bool                `json:"is_active" db:"is_active"`
	CreatedAt time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt time.Time           `json:"updated_at" db:"updated_at"`
}

// UnitPrice resolves the price a buyer pays for this variant: the variant's
// own price when set, else the owning product's current price.
func (v *ProductVariant) UnitPrice(product *Product) decimal.Decimal {
	if v.Price.Valid {
		return v.Price.Decimal
	}
	return product.CurrentPrice()
}

type ProductImage struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	ImageURL  string    `json:"image_url" db:"image_url"`
	AltText   string    `json:"alt_text,omitempty" db:"alt_text"`
	IsPrimary bool      `json:"is_primary" db:"is_primary"`
	SortOrder int       `json:"sort_order" db:"sort_order"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// GenerateSKU produces a fresh variant SKU in the pd-<20 hex> format.
func GenerateSKU() string {
	id := uuid.Must(uuid.NewV4())
	hex := strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))
	return fmt.Sprintf("pd-%s", hex[:20])
}

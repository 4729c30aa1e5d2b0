package cart

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"storefront/internal/catalog"
)

var (
	ErrStaffHasNoCart = errors.New("staff users do not have a cart")
	ErrNoSessionKey   = errors.New("anonymous identity has no session key")
)

// View is a resolved cart with its derived totals.
type View struct {
	Cart       *Cart           `json:"cart"`
	Items      []Item          `json:"items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	TotalItems int             `json:"total_items"`
}

type Service interface {
	// ResolveCart maps a request identity to exactly one cart, creating it
	// on first use. Staff identities never resolve.
	ResolveCart(ctx context.Context, identity Identity) (*Cart, error)
	AddItem(ctx context.Context, identity Identity, productID uuid.UUID, variantID uuid.NullUUID, size, color string, quantity int) error
	GetView(ctx context.Context, identity Identity) (*View, error)
	RemoveItem(ctx context.Context, identity Identity, itemID uuid.UUID) error
	Clear(ctx context.Context, cartID uuid.UUID) error
}

type service struct {
	repo    Repository
	catalog catalog.Service
}

func NewService(repo Repository, catalogSvc catalog.Service) Service {
	return &service{repo: repo, catalog: catalogSvc}
}

// ParseQuantity interprets a raw form quantity: missing or unparsable
// input defaults to 1, anything below 1 is clamped to 1.
func ParseQuantity(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1
	}
	quantity, err := strconv.Atoi(raw)
	if err != nil || quantity < 1 {
		return 1
	}
	return quantity
}

func (s *service) ResolveCart(ctx context.Context, identity Identity) (*Cart, error) {
	switch identity.Kind {
	case IdentityStaff:
		return nil, ErrStaffHasNoCart
	case IdentityCustomer:
		c, err := s.repo.GetOrCreateByCustomer(ctx, identity.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("service: failed to resolve customer cart: %w", err)
		}
		return c, nil
	case IdentitySession:
		if identity.SessionKey == "" {
			return nil, ErrNoSessionKey
		}
		c, err := s.repo.GetOrCreateBySession(ctx, identity.SessionKey)
		if err != nil {
			return nil, fmt.Errorf("service: failed to resolve session cart: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("service: unknown identity kind %d", identity.Kind)
	}
}

func (s *service) AddItem(ctx context.Context, identity Identity, productID uuid.UUID, variantID uuid.NullUUID, size, color string, quantity int) error {
	if quantity < 1 {
		quantity = 1
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return err
	}

	variant, err := s.catalog.ResolveVariant(ctx, product.ID, variantID, size, color)
	if err != nil {
		return err
	}

	c, err := s.ResolveCart(ctx, identity)
	if err != nil {
		return err
	}

	if err := s.repo.AddItem(ctx, c.ID, variant.ID, quantity); err != nil {
		log.Error().Err(err).Stringer("cart_id", c.ID).Stringer("variant_id", variant.ID).Msg("service: failed to add cart item")
		return fmt.Errorf("service: failed to add cart item: %w", err)
	}

	log.Info().Stringer("cart_id", c.ID).Stringer("variant_id", variant.ID).Int("quantity", quantity).Msg("service: item added to cart")

	return nil
}

func (s *service) GetView(ctx context.Context, identity Identity) (*View, error) {
	c, err := s.ResolveCart(ctx, identity)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.Items(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load cart items: %w", err)
	}

	return &View{
		Cart:       c,
		Items:      items,
		TotalPrice: TotalPrice(items),
		TotalItems: TotalItems(items),
	}, nil
}

func (s *service) RemoveItem(ctx context.Context, identity Identity, itemID uuid.UUID) error {
	c, err := s.ResolveCart(ctx, identity)
	if err != nil {
		return err
	}

	if err := s.repo.RemoveItem(ctx, c.ID, itemID); err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return ErrItemNotFound
		}
		return fmt.Errorf("service: failed to remove cart item: %w", err)
	}

	return nil
}

func (s *service) Clear(ctx context.Context, cartID uuid.UUID) error {
	if err := s.repo.Clear(ctx, cartID); err != nil {
		return fmt.Errorf("service: failed to clear cart: %w", err)
	}
	return nil
}

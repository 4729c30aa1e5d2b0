package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrItemNotFound = errors.New("cart item not found")

type Repository interface {
	GetOrCreateByCustomer(ctx context.Context, customerID uuid.UUID) (*Cart, error)
	GetOrCreateBySession(ctx context.Context, sessionKey string) (*Cart, error)
	// AddItem accumulates quantity atomically: concurrent adds of the same
	// variant never drop an update or produce a duplicate row.
	AddItem(ctx context.Context, cartID, variantID uuid.UUID, quantity int) error
	Items(ctx context.Context, cartID uuid.UUID) ([]Item, error)
	RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) error
	Clear(ctx context.Context, cartID uuid.UUID) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const cartColumns = `id, customer_id, COALESCE(session_id, ''), created_at, updated_at`

func scanCart(row pgx.Row) (*Cart, error) {
	var c Cart
	err := row.Scan(&c.ID, &c.CustomerID, &c.SessionID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *postgresRepository) GetOrCreateByCustomer(ctx context.Context, customerID uuid.UUID) (*Cart, error) {
	selectQuery := `SELECT ` + cartColumns + ` FROM carts WHERE customer_id = $1`

	c, err := scanCart(r.db.QueryRow(ctx, selectQuery, customerID))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("repository: failed to select cart for customer %s: %w", customerID, err)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("repository: failed to generate cart ID: %w", err)
	}
	now := time.Now().UTC()

	// ON CONFLICT DO NOTHING keeps concurrent first-adds from racing;
	// the re-select below picks up whichever insert won.
	insertQuery := `
		INSERT INTO carts (id, customer_id, session_id, created_at, updated_at)
		VALUES ($1, $2, NULL, $3, $3)
		ON CONFLICT (customer_id) WHERE customer_id IS NOT NULL DO NOTHING
	`
	if _, err := r.db.Exec(ctx, insertQuery, id, customerID, now); err != nil {
		return nil, fmt.Errorf("repository: failed to insert cart for customer %s: %w", customerID, err)
	}

	c, err = scanCart(r.db.QueryRow(ctx, selectQuery, customerID))
	if err != nil {
		return nil, fmt.Errorf("repository: failed to re-select cart for customer %s: %w", customerID, err)
	}

	return c, nil
}

func (r *postgresRepository) GetOrCreateBySession(ctx context.Context, sessionKey string) (*Cart, error) {
	selectQuery := `SELECT ` + cartColumns + ` FROM carts WHERE session_id = $1`

	c, err := scanCart(r.db.QueryRow(ctx, selectQuery, sessionKey))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("repository: failed to select cart for session: %w", err)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("repository: failed to generate cart ID: %w", err)
	}
	now := time.Now().UTC()

	insertQuery := `
		INSERT INTO carts (id, customer_id, session_id, created_at, updated_at)
		VALUES ($1, NULL, $2, $3, $3)
		ON CONFLICT (session_id) WHERE session_id IS NOT NULL DO NOTHING
	`
	if _, err := r.db.Exec(ctx, insertQuery, id, sessionKey, now); err != nil {
		return nil, fmt.Errorf("repository: failed to insert cart for session: %w", err)
	}

	c, err = scanCart(r.db.QueryRow(ctx, selectQuery, sessionKey))
	if err != nil {
		return nil, fmt.Errorf("repository: failed to re-select cart for session: %w", err)
	}

	return c, nil
}

func (r *postgresRepository) AddItem(ctx context.Context, cartID, variantID uuid.UUID, quantity int) error {
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("repository: failed to generate cart item ID: %w", err)
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO cart_items (id, cart_id, variant_id, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (cart_id, variant_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.Exec(ctx, query, id, cartID, variantID, quantity, now); err != nil {
		return fmt.Errorf("repository: failed to upsert cart item for cart %s: %w", cartID, err)
	}

	return nil
}

func (r *postgresRepository) Items(ctx context.Context, cartID uuid.UUID) ([]Item, error) {
	// Unit price resolves to the variant price when set, else the
	// product's discount/base price. Deleted variants price at zero.
	query := `
		SELECT ci.id, ci.cart_id, ci.variant_id, ci.quantity,
			COALESCE(p.name, ''), COALESCE(v.sku, ''), COALESCE(v.size, ''), COALESCE(v.color, ''),
			COALESCE(v.price, p.discount_price, p.base_price, 0),
			ci.created_at, ci.updated_at
		FROM cart_items ci
		LEFT JOIN product_variants v ON v.id = ci.variant_id
		LEFT JOIN products p ON p.id = v.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at ASC
	`

	rows, err := r.db.Query(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query cart items for cart %s: %w", cartID, err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var it Item
		err := rows.Scan(
			&it.ID,
			&it.CartID,
			&it.VariantID,
			&it.Quantity,
			&it.ProductName,
			&it.SKU,
			&it.Size,
			&it.Color,
			&it.UnitPrice,
			&it.CreatedAt,
			&it.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan cart item for cart %s: %w", cartID, err)
		}
		items = append(items, it)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating cart items for cart %s: %w", cartID, err)
	}

	return items, nil
}

func (r *postgresRepository) RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	query := `DELETE FROM cart_items WHERE id = $1 AND cart_id = $2`

	cmdTag, err := r.db.Exec(ctx, query, itemID, cartID)
	if err != nil {
		return fmt.Errorf("repository: failed to delete cart item %s: %w", itemID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrItemNotFound
	}

	return nil
}

func (r *postgresRepository) Clear(ctx context.Context, cartID uuid.UUID) error {
	query := `DELETE FROM cart_items WHERE cart_id = $1`

	if _, err := r.db.Exec(ctx, query, cartID); err != nil {
		return fmt.Errorf("repository: failed to clear cart %s: %w", cartID, err)
	}

	return nil
}

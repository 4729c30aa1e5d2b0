package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrVariantNotFound = errors.New("variant not found")
)

type Repository interface {
	ListProducts(ctx context.Context, categorySlug string, limit, offset int) ([]Product, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error)
	GetVariantByID(ctx context.Context, productID, variantID uuid.UUID) (*ProductVariant, error)
	ListActiveVariants(ctx context.Context, productID uuid.UUID, size, color string) ([]ProductVariant, error)
	ListMenuCategories(ctx context.Context) ([]Category, error)
	ListProductImages(ctx context.Context, productID uuid.UUID) ([]ProductImage, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const productColumns = `id, name, description, category_id, buying_price, base_price, discount_price,
		is_active, is_featured, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.CategoryID,
		&p.BuyingPrice,
		&p.BasePrice,
		&p.DiscountPrice,
		&p.IsActive,
		&p.IsFeatured,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepository) ListProducts(ctx context.Context, categorySlug string, limit, offset int) ([]Product, error) {
	query := `
		SELECT p.id, p.name, p.description, p.category_id, p.buying_price, p.base_price, p.discount_price,
			p.is_active, p.is_featured, p.created_at, p.updated_at
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.is_active = TRUE AND ($1 = '' OR c.slug = $1)
		ORDER BY p.created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, categorySlug, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		var p Product
		err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Description,
			&p.CategoryID,
			&p.BuyingPrice,
			&p.BasePrice,
			&p.DiscountPrice,
			&p.IsActive,
			&p.IsFeatured,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating products: %w", err)
	}

	return products, nil
}

func (r *postgresRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE id = $1 AND is_active = TRUE
	`

	p, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product by id %s: %w", id, err)
	}

	return p, nil
}

func (r *postgresRepository) GetVariantByID(ctx context.Context, productID, variantID uuid.UUID) (*ProductVariant, error) {
	query := `
		SELECT id, product_id, sku, price, stock, color, size, weight, image_url, is_active, created_at, updated_at
		FROM product_variants
		WHERE id = $1 AND product_id = $2 AND is_active = TRUE
	`

	var v ProductVariant
	err := r.db.QueryRow(ctx, query, variantID, productID).Scan(
		&v.ID,
		&v.ProductID,
		&v.SKU,
		&v.Price,
		&v.Stock,
		&v.Color,
		&v.Size,
		&v.Weight,
		&v.ImageURL,
		&v.IsActive,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVariantNotFound
		}
		return nil, fmt.Errorf("repository: failed to select variant by id %s: %w", variantID, err)
	}

	return &v, nil
}

func (r *postgresRepository) ListActiveVariants(ctx context.Context, productID uuid.UUID, size, color string) ([]ProductVariant, error) {
	query := `
		SELECT id, product_id, sku, price, stock, color, size, weight, image_url, is_active, created_at, updated_at
		FROM product_variants
		WHERE product_id = $1 AND is_active = TRUE
			AND ($2 = '' OR size = $2)
			AND ($3 = '' OR color = $3)
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, productID, size, color)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query variants for product %s: %w", productID, err)
	}
	defer rows.Close()

	variants := make([]ProductVariant, 0)
	for rows.Next() {
		var v ProductVariant
		err := rows.Scan(
			&v.ID,
			&v.ProductID,
			&v.SKU,
			&v.Price,
			&v.Stock,
			&v.Color,
			&v.Size,
			&v.Weight,
			&v.ImageURL,
			&v.IsActive,
			&v.CreatedAt,
			&v.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan variant for product %s: %w", productID, err)
		}
		variants = append(variants, v)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating variants for product %s: %w", productID, err)
	}

	return variants, nil
}

func (r *postgresRepository) ListMenuCategories(ctx context.Context) ([]Category, error) {
	query := `
		SELECT id, name, slug, description, parent_id, image_url, is_active, is_menu, created_at, updated_at
		FROM categories
		WHERE is_active = TRUE AND parent_id IS NULL
		ORDER BY name ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]Category, 0)
	for rows.Next() {
		var c Category
		err := rows.Scan(
			&c.ID,
			&c.Name,
			&c.Slug,
			&c.Description,
			&c.ParentID,
			&c.ImageURL,
			&c.IsActive,
			&c.IsMenu,
			&c.CreatedAt,
			&c.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating categories: %w", err)
	}

	return categories, nil
}

func (r *postgresRepository) ListProductImages(ctx context.Context, productID uuid.UUID) ([]ProductImage, error) {
	query := `
		SELECT id, product_id, image_url, alt_text, is_primary, sort_order, created_at
		FROM product_images
		WHERE product_id = $1
		ORDER BY is_primary DESC, sort_order ASC
	`

	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query images for product %s: %w", productID, err)
	}
	defer rows.Close()

	images := make([]ProductImage, 0)
	for rows.Next() {
		var img ProductImage
		err := rows.Scan(
			&img.ID,
			&img.ProductID,
			&img.ImageURL,
			&img.AltText,
			&img.IsPrimary,
			&img.SortOrder,
			&img.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan image for product %s: %w", productID, err)
		}
		images = append(images, img)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating images for product %s: %w", productID, err)
	}

	return images, nil
}

package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

var ErrNoVariant = errors.New("no matching variant for this product")

type Service interface {
	ListProducts(ctx context.Context, categorySlug string, limit, offset int) ([]Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
	GetProductImages(ctx context.Context, productID uuid.UUID) ([]ProductImage, error)
	MenuCategories(ctx context.Context) ([]Category, error)
	// ResolveVariant picks the purchasable variant for an add-to-cart
	// request: the explicit variant when an id is given, otherwise the
	// first active variant matching the optional size/color filters.
	ResolveVariant(ctx context.Context, productID uuid.UUID, variantID uuid.NullUUID, size, color string) (*ProductVariant, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

const defaultPageSize = 24

func (s *service) ListProducts(ctx context.Context, categorySlug string, limit, offset int) ([]Product, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	products, err := s.repo.ListProducts(ctx, categorySlug, limit, offset)
	if err != nil {
		log.Error().Err(err).Str("category", categorySlug).Msg("service: failed to list products")
		return nil, fmt.Errorf("service: failed to list products: %w", err)
	}

	return products, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to fetch product")
		return nil, fmt.Errorf("service: failed to fetch product: %w", err)
	}

	return product, nil
}

func (s *service) GetProductImages(ctx context.Context, productID uuid.UUID) ([]ProductImage, error) {
	images, err := s.repo.ListProductImages(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to fetch product images: %w", err)
	}
	return images, nil
}

func (s *service) MenuCategories(ctx context.Context) ([]Category, error) {
	categories, err := s.repo.ListMenuCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to fetch menu categories: %w", err)
	}
	return categories, nil
}

func (s *service) ResolveVariant(ctx context.Context, productID uuid.UUID, variantID uuid.NullUUID, size, color string) (*ProductVariant, error) {
	if variantID.Valid {
		variant, err := s.repo.GetVariantByID(ctx, productID, variantID.UUID)
		if err != nil {
			if errors.Is(err, ErrVariantNotFound) {
				return nil, ErrNoVariant
			}
			return nil, fmt.Errorf("service: failed to fetch variant: %w", err)
		}
		return variant, nil
	}

	variants, err := s.repo.ListActiveVariants(ctx, productID, size, color)
	if err != nil {
		return nil, fmt.Errorf("service: failed to match variants: %w", err)
	}
	if len(variants) == 0 {
		log.Warn().Stringer("product_id", productID).Str("size", size).Str("color", color).Msg("service: no variant matched")
		return nil, ErrNoVariant
	}

	// Repository orders matches oldest-first, so the pick is deterministic.
	return &variants[0], nil
}

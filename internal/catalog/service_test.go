package catalog_test

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront/internal/catalog"
)

type MockCatalogRepository struct {
	mock.Mock
}

func (m *MockCatalogRepository) ListProducts(ctx context.Context, categorySlug string, limit, offset int) ([]catalog.Product, error) {
	args := m.Called(ctx, categorySlug, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockCatalogRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockCatalogRepository) GetVariantByID(ctx context.Context, productID, variantID uuid.UUID) (*catalog.ProductVariant, error) {
	args := m.Called(ctx, productID, variantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.ProductVariant), args.Error(1)
}

func (m *MockCatalogRepository) ListActiveVariants(ctx context.Context, productID uuid.UUID, size, color string) ([]catalog.ProductVariant, error) {
	args := m.Called(ctx, productID, size, color)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.ProductVariant), args.Error(1)
}

func (m *MockCatalogRepository) ListMenuCategories(ctx context.Context) ([]catalog.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Category), args.Error(1)
}

func (m *MockCatalogRepository) ListProductImages(ctx context.Context, productID uuid.UUID) ([]catalog.ProductImage, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.ProductImage), args.Error(1)
}

func TestCatalogService_ResolveVariant_ExplicitID(t *testing.T) {
	mockRepo := new(MockCatalogRepository)
	svc := catalog.NewService(mockRepo)

	productID := uuid.Must(uuid.NewV4())
	variantID := uuid.Must(uuid.NewV4())
	expected := &catalog.ProductVariant{ID: variantID, ProductID: productID, SKU: "pd-AAAA"}

	mockRepo.On("GetVariantByID", mock.Anything, productID, variantID).
		Return(expected, nil).Once()

	variant, err := svc.ResolveVariant(context.Background(), productID, uuid.NullUUID{UUID: variantID, Valid: true}, "", "")
	require.NoError(t, err)
	require.Equal(t, expected, variant)
	mockRepo.AssertNotCalled(t, "ListActiveVariants", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCatalogService_ResolveVariant_ExplicitIDNotFound(t *testing.T) {
	mockRepo := new(MockCatalogRepository)
	svc := catalog.NewService(mockRepo)

	productID := uuid.Must(uuid.NewV4())
	variantID := uuid.Must(uuid.NewV4())

	mockRepo.On("GetVariantByID", mock.Anything, productID, variantID).
		Return(nil, catalog.ErrVariantNotFound).Once()

	_, err := svc.ResolveVariant(context.Background(), productID, uuid.NullUUID{UUID: variantID, Valid: true}, "", "")
	require.ErrorIs(t, err, catalog.ErrNoVariant)
}

func TestCatalogService_ResolveVariant_FilterPicksFirstMatch(t *testing.T) {
	mockRepo := new(MockCatalogRepository)
	svc := catalog.NewService(mockRepo)

	productID := uuid.Must(uuid.NewV4())
	first := catalog.ProductVariant{ID: uuid.Must(uuid.NewV4()), Size: "M", Color: "red"}
	second := catalog.ProductVariant{ID: uuid.Must(uuid.NewV4()), Size: "M", Color: "red"}

	mockRepo.On("ListActiveVariants", mock.Anything, productID, "M", "red").
		Return([]catalog.ProductVariant{first, second}, nil).Once()

	variant, err := svc.ResolveVariant(context.Background(), productID, uuid.NullUUID{}, "M", "red")
	require.NoError(t, err)
	require.Equal(t, first.ID, variant.ID)
}

func TestCatalogService_ResolveVariant_NoMatch(t *testing.T) {
	mockRepo := new(MockCatalogRepository)
	svc := catalog.NewService(mockRepo)

	productID := uuid.Must(uuid.NewV4())

	mockRepo.On("ListActiveVariants", mock.Anything, productID, "XL", "").
		Return([]catalog.ProductVariant{}, nil).Once()

	_, err := svc.ResolveVariant(context.Background(), productID, uuid.NullUUID{}, "XL", "")
	require.ErrorIs(t, err, catalog.ErrNoVariant)
}

func TestCatalogService_ListProducts_DefaultsPaging(t *testing.T) {
	mockRepo := new(MockCatalogRepository)
	svc := catalog.NewService(mockRepo)

	mockRepo.On("ListProducts", mock.Anything, "", 24, 0).
		Return([]catalog.Product{}, nil).Once()

	_, err := svc.ListProducts(context.Background(), "", 0, -5)
	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestCatalogService_GetProduct_NotFound(t *testing.T) {
	mockRepo := new(MockCatalogRepository)
	svc := catalog.NewService(mockRepo)

	id := uuid.Must(uuid.NewV4())
	mockRepo.On("GetProductByID", mock.Anything, id).
		Return(nil, catalog.ErrProductNotFound).Once()

	_, err := svc.GetProduct(context.Background(), id)
	require.ErrorIs(t, err, catalog.ErrProductNotFound)
}

package customer_test

import (
	"context"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/customer"
)

type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) Create(ctx context.Context, c *customer.Customer) (uuid.UUID, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockCustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (*customer.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

func (m *MockCustomerRepository) GetByEmail(ctx context.Context, email string) (*customer.Customer, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

func (m *MockCustomerRepository) LatestAddress(ctx context.Context, customerID uuid.UUID) (*customer.Address, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Address), args.Error(1)
}

func (m *MockCustomerRepository) SaveAddress(ctx context.Context, a *customer.Address) (uuid.UUID, error) {
	args := m.Called(ctx, a)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func TestCustomerService_Register_HashesPassword(t *testing.T) {
	mockRepo := new(MockCustomerRepository)
	svc := customer.NewService(mockRepo)

	expectedID := uuid.Must(uuid.NewV4())
	rawPassword := "correct horse battery staple"

	mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(c *customer.Customer) bool {
		// The raw password must never reach the repository.
		return c.PasswordHash != rawPassword && c.PasswordHash != ""
	})).Return(expectedID, nil).Once()

	created, err := svc.Register(context.Background(), &customer.Customer{
		Email:     "shopper@example.com",
		FirstName: "Test",
		LastName:  "Shopper",
	}, rawPassword)

	require.NoError(t, err)
	require.Equal(t, expectedID, created.ID)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte(rawPassword)))
	mockRepo.AssertExpectations(t)
}

func TestCustomerService_Register_EmptyPassword(t *testing.T) {
	svc := customer.NewService(new(MockCustomerRepository))

	_, err := svc.Register(context.Background(), &customer.Customer{Email: "shopper@example.com"}, "")
	require.Error(t, err)
}

func TestCustomerService_Register_EmailExists(t *testing.T) {
	mockRepo := new(MockCustomerRepository)
	svc := customer.NewService(mockRepo)

	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*customer.Customer")).
		Return(uuid.Nil, customer.ErrEmailExists).Once()

	_, err := svc.Register(context.Background(), &customer.Customer{Email: "taken@example.com"}, "password123")
	require.ErrorIs(t, err, customer.ErrEmailExists)
}

func TestCustomerService_Authenticate(t *testing.T) {
	mockRepo := new(MockCustomerRepository)
	svc := customer.NewService(mockRepo)

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	stored := &customer.Customer{
		ID:           uuid.Must(uuid.NewV4()),
		Email:        "shopper@example.com",
		PasswordHash: string(hash),
	}

	mockRepo.On("GetByEmail", mock.Anything, "shopper@example.com").
		Return(stored, nil).Twice()
	mockRepo.On("GetByEmail", mock.Anything, "nobody@example.com").
		Return(nil, customer.ErrNotFound).Once()

	authenticated, err := svc.Authenticate(context.Background(), "shopper@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, stored.ID, authenticated.ID)

	_, err = svc.Authenticate(context.Background(), "shopper@example.com", "wrongpassword")
	require.ErrorIs(t, err, customer.ErrInvalidCredentials)

	// Unknown email reports the same error as a wrong password.
	_, err = svc.Authenticate(context.Background(), "nobody@example.com", "password123")
	require.ErrorIs(t, err, customer.ErrInvalidCredentials)
}

func TestCustomerService_SaveAddress_RequiresLine1(t *testing.T) {
	svc := customer.NewService(new(MockCustomerRepository))

	err := svc.SaveAddress(context.Background(), &customer.Address{City: "Dhaka"})
	require.Error(t, err)
}

func TestCustomerFullName(t *testing.T) {
	c := customer.Customer{FirstName: "Test", LastName: "Shopper"}
	assert.Equal(t, "Test Shopper", c.FullName())

	onlyFirst := customer.Customer{FirstName: "Test"}
	assert.Equal(t, "Test", onlyFirst.FullName())
}

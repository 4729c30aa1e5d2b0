package order_test

import (
	"context"
	"net/url"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront/internal/gateway/sslcommerz"
	"storefront/internal/order"
)

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) CreateOrder(ctx context.Context, o *order.Order, p *order.Payment) error {
	args := m.Called(ctx, o, p)
	return args.Error(0)
}

func (m *MockOrderRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) GetPaymentByTranID(ctx context.Context, tranID string) (*order.Payment, error) {
	args := m.Called(ctx, tranID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Payment), args.Error(1)
}

func (m *MockOrderRepository) GetPaymentByOrderID(ctx context.Context, orderID uuid.UUID) (*order.Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Payment), args.Error(1)
}

func (m *MockOrderRepository) SetPaymentSession(ctx context.Context, paymentID uuid.UUID, tranID string) error {
	args := m.Called(ctx, paymentID, tranID)
	return args.Error(0)
}

func (m *MockOrderRepository) MarkPaymentPaid(ctx context.Context, paymentID uuid.UUID, v order.Verification) error {
	args := m.Called(ctx, paymentID, v)
	return args.Error(0)
}

func (m *MockOrderRepository) UpdatePaymentStatus(ctx context.Context, paymentID uuid.UUID, from, to order.PaymentStatus) error {
	args := m.Called(ctx, paymentID, from, to)
	return args.Error(0)
}

func (m *MockOrderRepository) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus order.OrderStatus) error {
	args := m.Called(ctx, orderID, newStatus)
	return args.Error(0)
}

func (m *MockOrderRepository) ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID) ([]order.Order, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

type MockValidator struct {
	mock.Mock
}

func (m *MockValidator) ValidateTransaction(ctx context.Context, valID string) (*sslcommerz.ValidationResponse, error) {
	args := m.Called(ctx, valID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sslcommerz.ValidationResponse), args.Error(1)
}

func (m *MockValidator) VerifyIPN(form url.Values) bool {
	args := m.Called(form)
	return args.Bool(0)
}

func pendingPayment(tranID string, amount string) *order.Payment {
	return &order.Payment{
		ID:          uuid.Must(uuid.NewV4()),
		OrderID:     uuid.Must(uuid.NewV4()),
		PaymentType: order.PaymentTypeSSLCommerz,
		Status:      order.PaymentPending,
		Amount:      decimal.RequireFromString(amount),
		TranID:      tranID,
	}
}

func TestOrderService_HandleSuccess_VerifiesAndMarksPaid(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockValidator := new(MockValidator)
	svc := order.NewService(mockRepo, mockValidator)

	payment := pendingPayment("TXN-AA11BB22CC33DD44", "1000.00")
	paidPayment := *payment
	paidPayment.Status = order.PaymentPaid
	confirmedOrder := &order.Order{ID: payment.OrderID, Status: order.StatusConfirmed}

	mockRepo.On("GetPaymentByTranID", mock.Anything, payment.TranID).
		Return(payment, nil).Once()
	mockValidator.On("ValidateTransaction", mock.Anything, "val-1").
		Return(&sslcommerz.ValidationResponse{
			Status: "VALID",
			TranID: payment.TranID,
			Amount: "1000.00",
		}, nil).Once()
	mockRepo.On("MarkPaymentPaid", mock.Anything, payment.ID, order.Verification{
		ValID:      "val-1",
		BankTranID: "bank-1",
		CardType:   "VISA-Dutch Bangla",
		CardBrand:  "VISA",
	}).Return(nil).Once()
	mockRepo.On("GetPaymentByTranID", mock.Anything, payment.TranID).
		Return(&paidPayment, nil).Once()
	mockRepo.On("GetOrderByID", mock.Anything, payment.OrderID).
		Return(confirmedOrder, nil).Once()

	result, err := svc.HandleSuccess(context.Background(), order.CallbackParams{
		TranID:     payment.TranID,
		ValID:      "val-1",
		BankTranID: "bank-1",
		CardType:   "VISA-Dutch Bangla",
		CardBrand:  "VISA",
	})

	require.NoError(t, err)
	require.NotNil(t, result)
	require.False(t, result.AlreadyProcessed)
	require.Equal(t, order.PaymentPaid, result.Payment.Status)
	require.Equal(t, order.StatusConfirmed, result.Order.Status)
	mockRepo.AssertExpectations(t)
	mockValidator.AssertExpectations(t)
}

func TestOrderService_HandleSuccess_AmountMismatchFailsPayment(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockValidator := new(MockValidator)
	svc := order.NewService(mockRepo, mockValidator)

	payment := pendingPayment("TXN-AA11BB22CC33DD44", "1000.00")

	mockRepo.On("GetPaymentByTranID", mock.Anything, payment.TranID).
		Return(payment, nil).Once()
	mockValidator.On("ValidateTransaction", mock.Anything, "val-1").
		Return(&sslcommerz.ValidationResponse{
			Status: "VALID",
			TranID: payment.TranID,
			Amount: "999.00",
		}, nil).Once()
	mockRepo.On("UpdatePaymentStatus", mock.Anything, payment.ID, order.PaymentPending, order.PaymentFailed).
		Return(nil).Once()

	result, err := svc.HandleSuccess(context.Background(), order.CallbackParams{
		TranID: payment.TranID,
		ValID:  "val-1",
	})

	require.ErrorIs(t, err, order.ErrVerificationFailed)
	require.Nil(t, result)
	// The order row is never touched on a verification mismatch.
	mockRepo.AssertNotCalled(t, "MarkPaymentPaid", mock.Anything, mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "UpdateOrderStatus", mock.Anything, mock.Anything, mock.Anything)
	mockRepo.AssertExpectations(t)
}

func TestOrderService_HandleSuccess_InvalidStatusFailsPayment(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockValidator := new(MockValidator)
	svc := order.NewService(mockRepo, mockValidator)

	payment := pendingPayment("TXN-AA11BB22CC33DD44", "1000.00")

	mockRepo.On("GetPaymentByTranID", mock.Anything, payment.TranID).
		Return(payment, nil).Once()
	mockValidator.On("ValidateTransaction", mock.Anything, "val-1").
		Return(&sslcommerz.ValidationResponse{
			Status: "FAILED",
			TranID: payment.TranID,
			Amount: "1000.00",
		}, nil).Once()
	mockRepo.On("UpdatePaymentStatus", mock.Anything, payment.ID, order.PaymentPending, order.PaymentFailed).
		Return(nil).Once()

	_, err := svc.HandleSuccess(context.Background(), order.CallbackParams{
		TranID: payment.TranID,
		ValID:  "val-1",
	})

	require.ErrorIs(t, err, order.ErrVerificationFailed)
	mockRepo.AssertExpectations(t)
}

func TestOrderService_HandleSuccess_ReplaySkipsVerification(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockValidator := new(MockValidator)
	svc := order.NewService(mockRepo, mockValidator)

	payment := pendingPayment("TXN-AA11BB22CC33DD44", "1000.00")
	payment.Status = order.PaymentPaid
	confirmedOrder := &order.Order{ID: payment.OrderID, Status: order.StatusConfirmed}

	mockRepo.On("GetPaymentByTranID", mock.Anything, payment.TranID).
		Return(payment, nil).Twice()
	mockRepo.On("GetOrderByID", mock.Anything, payment.OrderID).
		Return(confirmedOrder, nil).Once()

	result, err := svc.HandleSuccess(context.Background(), order.CallbackParams{
		TranID: payment.TranID,
		ValID:  "val-1",
	})

	require.NoError(t, err)
	require.True(t, result.AlreadyProcessed)
	// A settled payment never triggers another validation call.
	mockValidator.AssertNotCalled(t, "ValidateTransaction", mock.Anything, mock.Anything)
	mockRepo.AssertExpectations(t)
}

func TestOrderService_HandleSuccess_MissingParams(t *testing.T) {
	svc := order.NewService(new(MockOrderRepository), new(MockValidator))

	_, err := svc.HandleSuccess(context.Background(), order.CallbackParams{TranID: "TXN-X"})
	require.ErrorIs(t, err, order.ErrMissingCallbackParams)

	_, err = svc.HandleSuccess(context.Background(), order.CallbackParams{ValID: "val-1"})
	require.ErrorIs(t, err, order.ErrMissingCallbackParams)
}

func TestOrderService_HandleSuccess_UnknownTranID(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	svc := order.NewService(mockRepo, new(MockValidator))

	mockRepo.On("GetPaymentByTranID", mock.Anything, "TXN-UNKNOWN").
		Return(nil, order.ErrPaymentNotFound).Once()

	_, err := svc.HandleSuccess(context.Background(), order.CallbackParams{
		TranID: "TXN-UNKNOWN",
		ValID:  "val-1",
	})
	require.ErrorIs(t, err, order.ErrPaymentNotFound)
}

func TestOrderService_HandleFail_FailsPaymentAndCancelsOrder(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	svc := order.NewService(mockRepo, new(MockValidator))

	payment := pendingPayment("TXN-AA11BB22CC33DD44", "500.00")

	mockRepo.On("GetPaymentByTranID", mock.Anything, payment.TranID).
		Return(payment, nil).Once()
	mockRepo.On("UpdatePaymentStatus", mock.Anything, payment.ID, order.PaymentPending, order.PaymentFailed).
		Return(nil).Once()
	mockRepo.On("GetOrderByID", mock.Anything, payment.OrderID).
		Return(&order.Order{ID: payment.OrderID, Status: order.StatusPending}, nil).Once()
	mockRepo.On("UpdateOrderStatus", mock.Anything, payment.OrderID, order.StatusCanceled).
		Return(nil).Once()

	err := svc.HandleFail(context.Background(), payment.TranID)
	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestOrderService_HandleFail_NoOps(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	svc := order.NewService(mockRepo, new(MockValidator))

	// Empty tran_id: nothing to look up.
	require.NoError(t, svc.HandleFail(context.Background(), ""))

	// Unknown tran_id: the gateway still gets a page, no error.
	mockRepo.On("GetPaymentByTranID", mock.Anything, "TXN-UNKNOWN").
		Return(nil, order.ErrPaymentNotFound).Once()
	require.NoError(t, svc.HandleFail(context.Background(), "TXN-UNKNOWN"))

	// Settled payment: the fail callback is ignored.
	paid := pendingPayment("TXN-PAID", "100.00")
	paid.Status = order.PaymentPaid
	mockRepo.On("GetPaymentByTranID", mock.Anything, paid.TranID).
		Return(paid, nil).Once()
	require.NoError(t, svc.HandleFail(context.Background(), paid.TranID))
	mockRepo.AssertNotCalled(t, "UpdatePaymentStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_HandleCancel_LeavesOrderUntouched(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	svc := order.NewService(mockRepo, new(MockValidator))

	payment := pendingPayment("TXN-AA11BB22CC33DD44", "500.00")

	mockRepo.On("GetPaymentByTranID", mock.Anything, payment.TranID).
		Return(payment, nil).Once()
	mockRepo.On("UpdatePaymentStatus", mock.Anything, payment.ID, order.PaymentPending, order.PaymentCanceled).
		Return(nil).Once()

	err := svc.HandleCancel(context.Background(), payment.TranID)
	require.NoError(t, err)
	mockRepo.AssertNotCalled(t, "UpdateOrderStatus", mock.Anything, mock.Anything, mock.Anything)
	mockRepo.AssertExpectations(t)
}

func TestOrderService_HandleIPN_BadSignature(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockValidator := new(MockValidator)
	svc := order.NewService(mockRepo, mockValidator)

	payment := pendingPayment("TXN-AA11BB22CC33DD44", "1000.00")
	form := url.Values{"tran_id": {payment.TranID}, "verify_sign": {"bogus"}}

	mockRepo.On("GetPaymentByTranID", mock.Anything, payment.TranID).
		Return(payment, nil).Once()
	mockValidator.On("VerifyIPN", form).Return(false).Once()

	_, err := svc.HandleIPN(context.Background(), order.CallbackParams{
		TranID: payment.TranID,
		ValID:  "val-1",
		Raw:    form,
	})

	require.ErrorIs(t, err, order.ErrBadSignature)
	// A rejected signature never spends a validation call.
	mockValidator.AssertNotCalled(t, "ValidateTransaction", mock.Anything, mock.Anything)
	mockRepo.AssertExpectations(t)
}

func TestOrderService_HandleIPN_AlreadyPaidSkipsSignatureCheck(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockValidator := new(MockValidator)
	svc := order.NewService(mockRepo, mockValidator)

	payment := pendingPayment("TXN-AA11BB22CC33DD44", "1000.00")
	payment.Status = order.PaymentPaid

	mockRepo.On("GetPaymentByTranID", mock.Anything, payment.TranID).
		Return(payment, nil).Once()
	mockRepo.On("GetOrderByID", mock.Anything, payment.OrderID).
		Return(&order.Order{ID: payment.OrderID, Status: order.StatusConfirmed}, nil).Once()

	result, err := svc.HandleIPN(context.Background(), order.CallbackParams{
		TranID: payment.TranID,
		ValID:  "val-1",
	})

	require.NoError(t, err)
	require.True(t, result.AlreadyProcessed)
	mockValidator.AssertNotCalled(t, "VerifyIPN", mock.Anything)
	mockValidator.AssertNotCalled(t, "ValidateTransaction", mock.Anything, mock.Anything)
}

func TestOrderService_HandleIPN_ValidSignatureMarksPaid(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockValidator := new(MockValidator)
	svc := order.NewService(mockRepo, mockValidator)

	payment := pendingPayment("TXN-AA11BB22CC33DD44", "1000.00")
	paidPayment := *payment
	paidPayment.Status = order.PaymentPaid
	form := url.Values{"tran_id": {payment.TranID}, "verify_sign": {"deadbeef"}}

	mockRepo.On("GetPaymentByTranID", mock.Anything, payment.TranID).
		Return(payment, nil).Once()
	mockValidator.On("VerifyIPN", form).Return(true).Once()
	mockValidator.On("ValidateTransaction", mock.Anything, "val-1").
		Return(&sslcommerz.ValidationResponse{
			Status: "VALID",
			TranID: payment.TranID,
			Amount: "1000.00",
		}, nil).Once()
	mockRepo.On("MarkPaymentPaid", mock.Anything, payment.ID, mock.AnythingOfType("order.Verification")).
		Return(nil).Once()
	mockRepo.On("GetPaymentByTranID", mock.Anything, payment.TranID).
		Return(&paidPayment, nil).Once()
	mockRepo.On("GetOrderByID", mock.Anything, payment.OrderID).
		Return(&order.Order{ID: payment.OrderID, Status: order.StatusConfirmed}, nil).Once()

	result, err := svc.HandleIPN(context.Background(), order.CallbackParams{
		TranID: payment.TranID,
		ValID:  "val-1",
		Raw:    form,
	})

	require.NoError(t, err)
	require.Equal(t, order.PaymentPaid, result.Payment.Status)
	mockRepo.AssertExpectations(t)
	mockValidator.AssertExpectations(t)
}

func TestOrderService_HandleSuccess_ConcurrentSettleReportsReplay(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	mockValidator := new(MockValidator)
	svc := order.NewService(mockRepo, mockValidator)

	payment := pendingPayment("TXN-AA11BB22CC33DD44", "1000.00")
	paidPayment := *payment
	paidPayment.Status = order.PaymentPaid

	mockRepo.On("GetPaymentByTranID", mock.Anything, payment.TranID).
		Return(payment, nil).Once()
	mockValidator.On("ValidateTransaction", mock.Anything, "val-1").
		Return(&sslcommerz.ValidationResponse{
			Status: "VALID",
			TranID: payment.TranID,
			Amount: "1000.00",
		}, nil).Once()
	// A concurrent delivery already flipped the payment.
	mockRepo.On("MarkPaymentPaid", mock.Anything, payment.ID, mock.AnythingOfType("order.Verification")).
		Return(order.ErrStatusConflict).Once()
	mockRepo.On("GetPaymentByTranID", mock.Anything, payment.TranID).
		Return(&paidPayment, nil).Once()
	mockRepo.On("GetOrderByID", mock.Anything, payment.OrderID).
		Return(&order.Order{ID: payment.OrderID, Status: order.StatusConfirmed}, nil).Once()

	result, err := svc.HandleSuccess(context.Background(), order.CallbackParams{
		TranID: payment.TranID,
		ValID:  "val-1",
	})

	require.NoError(t, err)
	require.Equal(t, order.PaymentPaid, result.Payment.Status)
	mockRepo.AssertExpectations(t)
}

func TestOrderService_UpdateOrderStatus(t *testing.T) {
	mockRepo := new(MockOrderRepository)
	svc := order.NewService(mockRepo, new(MockValidator))

	orderID := uuid.Must(uuid.NewV4())

	mockRepo.On("GetOrderByID", mock.Anything, orderID).
		Return(&order.Order{ID: orderID, Status: order.StatusConfirmed}, nil).Twice()
	mockRepo.On("UpdateOrderStatus", mock.Anything, orderID, order.StatusShipped).
		Return(nil).Once()

	require.NoError(t, svc.UpdateOrderStatus(context.Background(), orderID, order.StatusShipped))

	err := svc.UpdateOrderStatus(context.Background(), orderID, order.StatusDelivered)
	require.ErrorIs(t, err, order.ErrInvalidStatusTransition)
	mockRepo.AssertExpectations(t)
}

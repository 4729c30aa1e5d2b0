package order

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"storefront/internal/gateway/sslcommerz"
)

var (
	ErrMissingCallbackParams = errors.New("callback is missing tran_id or val_id")
	ErrVerificationFailed    = errors.New("payment verification failed")
	ErrBadSignature          = errors.New("ipn signature validation failed")
)

// Validator is the slice of the gateway the reconciliation flow needs.
type Validator interface {
	ValidateTransaction(ctx context.Context, valID string) (*sslcommerz.ValidationResponse, error)
	VerifyIPN(form url.Values) bool
}

// CallbackParams are the fields a gateway callback posts back.
type CallbackParams struct {
	TranID     string
	ValID      string
	CardType   string
	CardBrand  string
	BankTranID string
	// Raw is the full form body, needed for IPN signature validation.
	Raw url.Values
}

// CallbackResult reports what a success/IPN callback did.
type CallbackResult struct {
	Order            *Order
	Payment          *Payment
	AlreadyProcessed bool
}

type Service interface {
	GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID) ([]Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus OrderStatus) error

	// HandleSuccess reconciles the browser-redirect success callback.
	HandleSuccess(ctx context.Context, params CallbackParams) (*CallbackResult, error)
	// HandleFail marks the payment failed and cancels its order.
	HandleFail(ctx context.Context, tranID string) error
	// HandleCancel marks the payment canceled; the order is untouched.
	HandleCancel(ctx context.Context, tranID string) error
	// HandleIPN reconciles the server-to-server notification, the
	// authoritative channel: it additionally checks the verify_sign.
	HandleIPN(ctx context.Context, params CallbackParams) (*CallbackResult, error)
}

type service struct {
	repo      Repository
	validator Validator
}

func NewService(repo Repository, validator Validator) Service {
	return &service{repo: repo, validator: validator}
}

func (s *service) GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("service: failed to fetch order by id: %w", err)
	}
	return o, nil
}

func (s *service) ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID) ([]Order, error) {
	orders, err := s.repo.ListOrdersByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to fetch customer orders: %w", err)
	}
	return orders, nil
}

func (s *service) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus OrderStatus) error {
	current, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("service: failed to get order for status update: %w", err)
	}

	if err := ValidateOrderTransition(current.Status, newStatus); err != nil {
		log.Warn().
			Stringer("order_id", orderID).
			Stringer("current_status", current.Status).
			Stringer("new_status", newStatus).
			Msg("service: rejected order status transition")
		return err
	}

	if err := s.repo.UpdateOrderStatus(ctx, orderID, newStatus); err != nil {
		return fmt.Errorf("service: failed to update order status: %w", err)
	}

	log.Info().Stringer("order_id", orderID).Stringer("old_status", current.Status).Stringer("new_status", newStatus).Msg("service: order status updated")
	return nil
}

// verify runs the three-condition check shared by success and IPN: the
// validator must report VALID, the exact payment amount, and the same
// transaction id.
func (s *service) verify(ctx context.Context, payment *Payment, params CallbackParams) (*CallbackResult, error) {
	validation, err := s.validator.ValidateTransaction(ctx, params.ValID)
	if err != nil {
		log.Error().Err(err).Str("tran_id", params.TranID).Msg("service: validation API call failed")
		return nil, fmt.Errorf("service: validation call failed: %w", err)
	}

	valid := validation.Status == "VALID" &&
		validation.AmountDecimal().Equal(payment.Amount) &&
		validation.TranID == params.TranID

	if !valid {
		log.Warn().
			Str("tran_id", params.TranID).
			Str("reported_status", validation.Status).
			Str("reported_amount", validation.Amount).
			Str("expected_amount", payment.Amount.StringFixed(2)).
			Msg("service: payment verification mismatch")

		if err := s.repo.UpdatePaymentStatus(ctx, payment.ID, PaymentPending, PaymentFailed); err != nil && !errors.Is(err, ErrStatusConflict) {
			return nil, fmt.Errorf("service: failed to mark payment failed: %w", err)
		}
		return nil, ErrVerificationFailed
	}

	verification := Verification{
		ValID:      params.ValID,
		BankTranID: params.BankTranID,
		CardType:   params.CardType,
		CardBrand:  params.CardBrand,
	}
	if err := s.repo.MarkPaymentPaid(ctx, payment.ID, verification); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			// A concurrent delivery won the race; report it as a replay.
			return s.replay(ctx, payment.TranID)
		}
		return nil, fmt.Errorf("service: failed to mark payment paid: %w", err)
	}

	log.Info().Str("tran_id", params.TranID).Stringer("order_id", payment.OrderID).Msg("service: payment verified and marked paid")

	return s.replay(ctx, payment.TranID)
}

// replay loads the current payment+order pair for a confirmation view.
func (s *service) replay(ctx context.Context, tranID string) (*CallbackResult, error) {
	payment, err := s.repo.GetPaymentByTranID(ctx, tranID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to reload payment: %w", err)
	}
	o, err := s.repo.GetOrderByID(ctx, payment.OrderID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to reload order: %w", err)
	}
	return &CallbackResult{Order: o, Payment: payment}, nil
}

func (s *service) HandleSuccess(ctx context.Context, params CallbackParams) (*CallbackResult, error) {
	if params.TranID == "" || params.ValID == "" {
		return nil, ErrMissingCallbackParams
	}

	payment, err := s.repo.GetPaymentByTranID(ctx, params.TranID)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("service: failed to look up payment: %w", err)
	}

	// Duplicate delivery of a finished payment replays the confirmation
	// without another verification call.
	if payment.Status == PaymentPaid {
		result, err := s.replay(ctx, params.TranID)
		if err != nil {
			return nil, err
		}
		result.AlreadyProcessed = true
		return result, nil
	}

	return s.verify(ctx, payment, params)
}

func (s *service) HandleFail(ctx context.Context, tranID string) error {
	if tranID == "" {
		return nil
	}

	payment, err := s.repo.GetPaymentByTranID(ctx, tranID)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			// Nothing to reconcile; the gateway must still get its page.
			return nil
		}
		return fmt.Errorf("service: failed to look up payment: %w", err)
	}

	if err := ValidatePaymentTransition(payment.Status, PaymentFailed); err != nil {
		log.Warn().Str("tran_id", tranID).Stringer("status", payment.Status).Msg("service: fail callback on settled payment ignored")
		return nil
	}

	if err := s.repo.UpdatePaymentStatus(ctx, payment.ID, payment.Status, PaymentFailed); err != nil && !errors.Is(err, ErrStatusConflict) {
		return fmt.Errorf("service: failed to mark payment failed: %w", err)
	}

	current, err := s.repo.GetOrderByID(ctx, payment.OrderID)
	if err != nil {
		return fmt.Errorf("service: failed to load order for fail callback: %w", err)
	}
	if err := ValidateOrderTransition(current.Status, StatusCanceled); err == nil {
		if err := s.repo.UpdateOrderStatus(ctx, payment.OrderID, StatusCanceled); err != nil {
			return fmt.Errorf("service: failed to cancel order: %w", err)
		}
	}

	log.Info().Str("tran_id", tranID).Stringer("order_id", payment.OrderID).Msg("service: payment failed, order canceled")
	return nil
}

func (s *service) HandleCancel(ctx context.Context, tranID string) error {
	if tranID == "" {
		return nil
	}

	payment, err := s.repo.GetPaymentByTranID(ctx, tranID)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			return nil
		}
		return fmt.Errorf("service: failed to look up payment: %w", err)
	}

	if err := ValidatePaymentTransition(payment.Status, PaymentCanceled); err != nil {
		return nil
	}

	if err := s.repo.UpdatePaymentStatus(ctx, payment.ID, payment.Status, PaymentCanceled); err != nil && !errors.Is(err, ErrStatusConflict) {
		return fmt.Errorf("service: failed to mark payment canceled: %w", err)
	}

	log.Info().Str("tran_id", tranID).Msg("service: payment canceled")
	return nil
}

func (s *service) HandleIPN(ctx context.Context, params CallbackParams) (*CallbackResult, error) {
	if params.TranID == "" || params.ValID == "" {
		return nil, ErrMissingCallbackParams
	}

	payment, err := s.repo.GetPaymentByTranID(ctx, params.TranID)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("service: failed to look up payment: %w", err)
	}

	if payment.Status == PaymentPaid {
		o, err := s.repo.GetOrderByID(ctx, payment.OrderID)
		if err != nil {
			return nil, fmt.Errorf("service: failed to reload order: %w", err)
		}
		return &CallbackResult{Order: o, Payment: payment, AlreadyProcessed: true}, nil
	}

	// The signature check runs before any verification call is spent.
	if !s.validator.VerifyIPN(params.Raw) {
		log.Warn().Str("tran_id", params.TranID).Msg("service: ipn signature rejected")
		return nil, ErrBadSignature
	}

	return s.verify(ctx, payment, params)
}

package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrDuplicateTranID  = errors.New("gateway transaction id already exists")
	ErrStatusConflict   = errors.New("status changed concurrently")
)

// Verification carries the gateway fields persisted on a paid payment.
type Verification struct {
	ValID      string
	BankTranID string
	CardType   string
	CardBrand  string
}

type Repository interface {
	// CreateOrder persists the order, its items and its payment in one
	// transaction: either the full snapshot commits or none of it.
	CreateOrder(ctx context.Context, o *Order, p *Payment) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetPaymentByTranID(ctx context.Context, tranID string) (*Payment, error)
	GetPaymentByOrderID(ctx context.Context, orderID uuid.UUID) (*Payment, error)
	SetPaymentSession(ctx context.Context, paymentID uuid.UUID, tranID string) error
	// MarkPaymentPaid flips payment to paid and order to confirmed in one
	// transaction. Both updates are conditional on the current pending
	// status, so a concurrent duplicate delivery loses cleanly.
	MarkPaymentPaid(ctx context.Context, paymentID uuid.UUID, v Verification) error
	UpdatePaymentStatus(ctx context.Context, paymentID uuid.UUID, from, to PaymentStatus) error
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus OrderStatus) error
	ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID) ([]Order, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateOrder(ctx context.Context, o *Order, p *Payment) (err error) {
	if o.ID == uuid.Nil {
		genID, genErr := uuid.NewV4()
		if genErr != nil {
			return fmt.Errorf("repository: failed to generate order ID: %w", genErr)
		}
		o.ID = genID
	}

	tx, beginErr := r.db.Begin(ctx)
	if beginErr != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", beginErr)
	}
	defer func() {
		if pnc := recover(); pnc != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("order_id", o.ID).Msg("Failed to rollback transaction after panic")
			}
			panic(pnc)
		} else if err != nil {
			log.Warn().Err(err).Stringer("order_id", o.ID).Msg("Transaction for CreateOrder failed, rolling back")
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("order_id", o.ID).Msg("Failed to rollback transaction")
			}
		} else {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
			}
		}
	}()

	now := time.Now().UTC()

	orderQuery := `
		INSERT INTO orders (id, customer_id, session_id, status, subtotal, shipping_cost, discount_amount, total,
			ship_full_name, ship_phone, ship_address_line1, ship_address_line2, ship_city, ship_state, ship_postal_code, ship_country,
			created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $17)
	`
	_, err = tx.Exec(ctx, orderQuery,
		o.ID,
		o.CustomerID,
		o.SessionID,
		string(o.Status),
		o.Subtotal,
		o.ShippingCost,
		o.DiscountAmount,
		o.Total,
		o.ShipTo.FullName,
		o.ShipTo.Phone,
		o.ShipTo.AddressLine1,
		o.ShipTo.AddressLine2,
		o.ShipTo.City,
		o.ShipTo.State,
		o.ShipTo.PostalCode,
		o.ShipTo.Country,
		now,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert order: %w", err)
	}
	o.CreatedAt = now
	o.UpdatedAt = now

	itemQuery := `
		INSERT INTO order_items (id, order_id, variant_id, quantity, unit_price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`
	for i := range o.Items {
		item := &o.Items[i]

		itemID, genErr := uuid.NewV4()
		if genErr != nil {
			err = fmt.Errorf("repository: failed to generate order item ID: %w", genErr)
			return err
		}
		item.ID = itemID
		item.OrderID = o.ID

		_, err = tx.Exec(ctx, itemQuery, item.ID, o.ID, item.VariantID, item.Quantity, item.UnitPrice, now)
		if err != nil {
			return fmt.Errorf("repository: failed to insert order item for order %s: %w", o.ID, err)
		}
		item.CreatedAt = now
		item.UpdatedAt = now
	}

	if p.ID == uuid.Nil {
		genID, genErr := uuid.NewV4()
		if genErr != nil {
			err = fmt.Errorf("repository: failed to generate payment ID: %w", genErr)
			return err
		}
		p.ID = genID
	}
	p.OrderID = o.ID

	paymentQuery := `
		INSERT INTO payments (id, order_id, payment_type, status, amount, transaction_id, tran_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $8)
	`
	_, err = tx.Exec(ctx, paymentQuery,
		p.ID,
		p.OrderID,
		string(p.PaymentType),
		string(p.Status),
		p.Amount,
		p.TransactionID,
		p.TranID,
		now,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			err = ErrDuplicateTranID
			return err
		}
		return fmt.Errorf("repository: failed to insert payment for order %s: %w", o.ID, err)
	}
	p.CreatedAt = now
	p.UpdatedAt = now

	return nil
}

const orderColumns = `id, customer_id, COALESCE(session_id, ''), status, subtotal, shipping_cost, discount_amount, total,
		ship_full_name, ship_phone, ship_address_line1, ship_address_line2, ship_city, ship_state, ship_postal_code, ship_country,
		created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID,
		&o.CustomerID,
		&o.SessionID,
		&o.Status,
		&o.Subtotal,
		&o.ShippingCost,
		&o.DiscountAmount,
		&o.Total,
		&o.ShipTo.FullName,
		&o.ShipTo.Phone,
		&o.ShipTo.AddressLine1,
		&o.ShipTo.AddressLine2,
		&o.ShipTo.City,
		&o.ShipTo.State,
		&o.ShipTo.PostalCode,
		&o.ShipTo.Country,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *postgresRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	o, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order by id %s: %w", id, err)
	}

	items, err := r.orderItems(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Items = items

	return o, nil
}

func (r *postgresRepository) orderItems(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	query := `
		SELECT id, order_id, variant_id, quantity, unit_price, created_at, updated_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items for order %s: %w", orderID, err)
	}
	defer rows.Close()

	items := make([]OrderItem, 0)
	for rows.Next() {
		var item OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.VariantID,
			&item.Quantity,
			&item.UnitPrice,
			&item.CreatedAt,
			&item.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item for order %s: %w", orderID, err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order items for order %s: %w", orderID, err)
	}

	return items, nil
}

const paymentColumns = `id, order_id, payment_type, status, amount, transaction_id, COALESCE(tran_id, ''),
		val_id, bank_tran_id, card_type, card_brand, created_at, updated_at`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(
		&p.ID,
		&p.OrderID,
		&p.PaymentType,
		&p.Status,
		&p.Amount,
		&p.TransactionID,
		&p.TranID,
		&p.ValID,
		&p.BankTranID,
		&p.CardType,
		&p.CardBrand,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepository) GetPaymentByTranID(ctx context.Context, tranID string) (*Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE tran_id = $1`

	p, err := scanPayment(r.db.QueryRow(ctx, query, tranID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("repository: failed to select payment by tran_id: %w", err)
	}

	return p, nil
}

func (r *postgresRepository) GetPaymentByOrderID(ctx context.Context, orderID uuid.UUID) (*Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1`

	p, err := scanPayment(r.db.QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("repository: failed to select payment for order %s: %w", orderID, err)
	}

	return p, nil
}

func (r *postgresRepository) SetPaymentSession(ctx context.Context, paymentID uuid.UUID, tranID string) error {
	query := `
		UPDATE payments
		SET tran_id = $1, updated_at = $2
		WHERE id = $3
	`

	cmdTag, err := r.db.Exec(ctx, query, tranID, time.Now().UTC(), paymentID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicateTranID
		}
		return fmt.Errorf("repository: failed to set payment session for payment %s: %w", paymentID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}

	return nil
}

func (r *postgresRepository) MarkPaymentPaid(ctx context.Context, paymentID uuid.UUID, v Verification) (err error) {
	tx, beginErr := r.db.Begin(ctx)
	if beginErr != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", beginErr)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("payment_id", paymentID).Msg("Failed to rollback transaction")
			}
		} else {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
			}
		}
	}()

	now := time.Now().UTC()

	paymentQuery := `
		UPDATE payments
		SET status = $1, val_id = $2, bank_tran_id = $3, card_type = $4, card_brand = $5,
			transaction_id = $6, updated_at = $7
		WHERE id = $8 AND status = $9
	`
	cmdTag, execErr := tx.Exec(ctx, paymentQuery,
		string(PaymentPaid), v.ValID, v.BankTranID, v.CardType, v.CardBrand, v.BankTranID, now,
		paymentID, string(PaymentPending),
	)
	if execErr != nil {
		err = fmt.Errorf("repository: failed to mark payment %s paid: %w", paymentID, execErr)
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		err = ErrStatusConflict
		return err
	}

	orderQuery := `
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = (SELECT order_id FROM payments WHERE id = $3) AND status = $4
	`
	cmdTag, execErr = tx.Exec(ctx, orderQuery, string(StatusConfirmed), now, paymentID, string(StatusPending))
	if execErr != nil {
		err = fmt.Errorf("repository: failed to confirm order for payment %s: %w", paymentID, execErr)
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		err = ErrStatusConflict
		return err
	}

	return nil
}

func (r *postgresRepository) UpdatePaymentStatus(ctx context.Context, paymentID uuid.UUID, from, to PaymentStatus) error {
	query := `
		UPDATE payments
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`

	cmdTag, err := r.db.Exec(ctx, query, string(to), time.Now().UTC(), paymentID, string(from))
	if err != nil {
		return fmt.Errorf("repository: failed to update payment status %s: %w", paymentID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrStatusConflict
	}

	return nil
}

func (r *postgresRepository) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus OrderStatus) error {
	query := `
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	cmdTag, err := r.db.Exec(ctx, query, string(newStatus), time.Now().UTC(), orderID)
	if err != nil {
		log.Error().Err(err).Stringer("order_id", orderID).Str("new_status", string(newStatus)).Msg("repository: failed to update order status")
		return fmt.Errorf("repository: failed to update order status %s: %w", orderID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

func (r *postgresRepository) ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID) ([]Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders for customer %s: %w", customerID, err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		o, scanErr := scanOrder(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("repository: failed to scan order for customer %s: %w", customerID, scanErr)
		}
		orders = append(orders, *o)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating orders for customer %s: %w", customerID, err)
	}

	for i := range orders {
		items, itemsErr := r.orderItems(ctx, orders[i].ID)
		if itemsErr != nil {
			return nil, itemsErr
		}
		orders[i].Items = items
	}

	return orders, nil
}

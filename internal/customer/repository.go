package customer

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
)

var (
	ErrNotFound         = errors.New("customer not found")
	ErrEmailExists      = errors.New("email already exists")
	ErrNoSavedAddress   = errors.New("customer has no saved address")
)

type Repository interface {
	Create(ctx context.Context, c *Customer) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	GetByEmail(ctx context.Context, email string) (*Customer, error)
	LatestAddress(ctx context.Context, customerID uuid.UUID) (*Address, error)
	SaveAddress(ctx context.Context, a *Address) (uuid.UUID, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, c *Customer) (uuid.UUID, error) {
	id := c.ID
	if id == uuid.Nil {
		genID, err := uuid.NewV4()
		if err != nil {
			return uuid.Nil, fmt.Errorf("repository: failed to generate customer ID: %w", err)
		}
		id = genID
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO customers (id, email, first_name, last_name, password_hash, is_staff, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query, id, c.Email, c.FirstName, c.LastName, c.PasswordHash, c.IsStaff, now, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return uuid.Nil, ErrEmailExists
		}
		return uuid.Nil, fmt.Errorf("repository: failed to insert customer: %w", err)
	}

	c.ID = id
	c.CreatedAt = now
	c.UpdatedAt = now

	return id, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Customer, error) {
	query := `
		SELECT id, email, first_name, last_name, password_hash, is_staff, created_at, updated_at
		FROM customers
		WHERE id = $1
	`

	var c Customer
	err := r.db.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.Email,
		&c.FirstName,
		&c.LastName,
		&c.PasswordHash,
		&c.IsStaff,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select customer by id %s: %w", id, err)
	}

	return &c, nil
}

func (r *postgresRepository) GetByEmail(ctx context.Context, email string) (*Customer, error) {
	query := `
		SELECT id, email, first_name, last_name, password_hash, is_staff, created_at, updated_at
		FROM customers
		WHERE email = $1
	`

	var c Customer
	err := r.db.QueryRow(ctx, query, email).Scan(
		&c.ID,
		&c.Email,
		&c.FirstName,
		&c.LastName,
		&c.PasswordHash,
		&c.IsStaff,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select customer by email %s: %w", email, err)
	}

	return &c, nil
}

func (r *postgresRepository) LatestAddress(ctx context.Context, customerID uuid.UUID) (*Address, error) {
	query := `
		SELECT id, customer_id, full_name, phone, address_line1, address_line2, city, state, postal_code, country, created_at, updated_at
		FROM addresses
		WHERE customer_id = $1
		ORDER BY updated_at DESC
		LIMIT 1
	`

	var a Address
	err := r.db.QueryRow(ctx, query, customerID).Scan(
		&a.ID,
		&a.CustomerID,
		&a.FullName,
		&a.Phone,
		&a.AddressLine1,
		&a.AddressLine2,
		&a.City,
		&a.State,
		&a.PostalCode,
		&a.Country,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoSavedAddress
		}
		return nil, fmt.Errorf("repository: failed to select address for customer %s: %w", customerID, err)
	}

	return &a, nil
}

func (r *postgresRepository) SaveAddress(ctx context.Context, a *Address) (uuid.UUID, error) {
	now := time.Now().UTC()

	if a.ID != uuid.Nil {
		query := `
			UPDATE addresses
			SET full_name = $1, phone = $2, address_line1 = $3, address_line2 = $4,
				city = $5, state = $6, postal_code = $7, country = $8, updated_at = $9
			WHERE id = $10
		`
		cmdTag, err := r.db.Exec(ctx, query,
			a.FullName, a.Phone, a.AddressLine1, a.AddressLine2,
			a.City, a.State, a.PostalCode, a.Country, now, a.ID,
		)
		if err != nil {
			return uuid.Nil, fmt.Errorf("repository: failed to update address %s: %w", a.ID, err)
		}
		if cmdTag.RowsAffected() > 0 {
			a.UpdatedAt = now
			return a.ID, nil
		}
		// Fall through to insert when the row is gone.
	}

	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, fmt.Errorf("repository: failed to generate address ID: %w", err)
	}

	query := `
		INSERT INTO addresses (id, customer_id, full_name, phone, address_line1, address_line2, city, state, postal_code, country, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = r.db.Exec(ctx, query,
		id, a.CustomerID, a.FullName, a.Phone, a.AddressLine1, a.AddressLine2,
		a.City, a.State, a.PostalCode, a.Country, now, now,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("repository: failed to insert address: %w", err)
	}

	a.ID = id
	a.CreatedAt = now
	a.UpdatedAt = now

	return id, nil
}

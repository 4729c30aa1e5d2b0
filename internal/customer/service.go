package customer

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type Service interface {
	Register(ctx context.Context, c *Customer, password string) (*Customer, error)
	Authenticate(ctx context.Context, email, password string) (*Customer, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	LatestAddress(ctx context.Context, customerID uuid.UUID) (*Address, error)
	SaveAddress(ctx context.Context, a *Address) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Register(ctx context.Context, c *Customer, password string) (*Customer, error) {
	if password == "" {
		return nil, errors.New("service: password cannot be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to hash password")
		return nil, fmt.Errorf("service: failed to hash password: %w", err)
	}
	c.PasswordHash = string(hash)

	createdID, err := s.repo.Create(ctx, c)
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			return nil, ErrEmailExists
		}
		log.Error().Err(err).Msg("service: failed to create customer in repository")
		return nil, fmt.Errorf("service: failed to save customer: %w", err)
	}

	c.ID = createdID

	log.Info().Stringer("customer_id", c.ID).Msg("service: customer registered")

	return c, nil
}

func (s *service) Authenticate(ctx context.Context, email, password string) (*Customer, error) {
	c, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		log.Error().Err(err).Msg("service: failed to fetch customer by email")
		return nil, fmt.Errorf("service: failed to fetch customer by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return c, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*Customer, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("service: failed to fetch customer by id '%s': %w", id, err)
	}

	return c, nil
}

func (s *service) LatestAddress(ctx context.Context, customerID uuid.UUID) (*Address, error) {
	a, err := s.repo.LatestAddress(ctx, customerID)
	if err != nil {
		if errors.Is(err, ErrNoSavedAddress) {
			return nil, ErrNoSavedAddress
		}
		return nil, fmt.Errorf("service: failed to fetch latest address: %w", err)
	}

	return a, nil
}

func (s *service) SaveAddress(ctx context.Context, a *Address) error {
	if a.AddressLine1 == "" {
		return errors.New("service: address line 1 is required")
	}

	if _, err := s.repo.SaveAddress(ctx, a); err != nil {
		log.Error().Err(err).Msg("service: failed to save address")
		return fmt.Errorf("service: failed to save address: %w", err)
	}

	return nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/realtime"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrInvalidAddress = errors.New("invalid address")

// AddressService defines the interface for address book logic
type AddressService interface {
	List(ctx context.Context, userID string) ([]*domain.Address, error)
	Create(ctx context.Context, userID string, address *domain.Address) error
	Update(ctx context.Context, userID string, address *domain.Address) error
	Delete(ctx context.Context, userID, id string) error
	SetDefault(ctx context.Context, userID, id string) error
	Watch(ctx context.Context, userID string, deliver func([]*domain.Address, error)) (realtime.Unsubscribe, error)
}

type addressService struct {
	addresses repository.AddressRepository
	feed      realtime.Feed
	logger    *zap.Logger
}

// NewAddressService creates a new instance of AddressService
func NewAddressService(addresses repository.AddressRepository, feed realtime.Feed, logger *zap.Logger) AddressService {
	return &addressService{addresses: addresses, feed: feed, logger: logger.Named("addresses")}
}

func (s *addressService) List(ctx context.Context, userID string) ([]*domain.Address, error) {
	return s.addresses.ListByUser(ctx, userID)
}

// Create stores a new address. A user's first address always becomes the default.
func (s *addressService) Create(ctx context.Context, userID string, a *domain.Address) error {
	a.ID = uuid.NewString()
	a.UserID = userID
	if err := validateAddress(a); err != nil {
		return err
	}
	// the repository promotes a first address to default
	return s.addresses.Create(ctx, a)
}

func (s *addressService) Update(ctx context.Context, userID string, a *domain.Address) error {
	current, err := s.addresses.FindByID(ctx, userID, a.ID)
	if err != nil {
		return err
	}
	a.UserID = userID
	a.CreatedAt = current.CreatedAt
	if err := validateAddress(a); err != nil {
		return err
	}
	// Clearing the flag on the default would leave the user without one.
	if current.IsDefault {
		a.IsDefault = true
	}
	return s.addresses.Update(ctx, a)
}

// Delete removes the address. When it was the default, the next listed address
// takes over.
func (s *addressService) Delete(ctx context.Context, userID, id string) error {
	current, err := s.addresses.FindByID(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.addresses.Delete(ctx, userID, id); err != nil {
		return err
	}
	if !current.IsDefault {
		return nil
	}

	rest, err := s.addresses.ListByUser(ctx, userID)
	if err != nil || len(rest) == 0 {
		return err
	}
	if err := s.addresses.SetDefault(ctx, userID, rest[0].ID); err != nil {
		s.logger.Warn("Failed to promote default address",
			zap.String("user_id", userID),
			zap.String("address_id", rest[0].ID),
			zap.Error(err),
		)
	}
	return nil
}

func (s *addressService) SetDefault(ctx context.Context, userID, id string) error {
	return s.addresses.SetDefault(ctx, userID, id)
}

// Watch delivers the user's address book now and after every change.
func (s *addressService) Watch(ctx context.Context, userID string, deliver func([]*domain.Address, error)) (realtime.Unsubscribe, error) {
	return realtime.Watch(ctx, s.feed, realtime.AddressesTopic(userID),
		func(ctx context.Context) ([]*domain.Address, error) { return s.addresses.ListByUser(ctx, userID) },
		deliver,
	)
}

func validateAddress(a *domain.Address) error {
	if a.Type == "" {
		a.Type = domain.AddressHome
	}
	if !a.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidAddress, a.Type)
	}
	for field, value := range map[string]string{
		"name":    a.Name,
		"address": a.Address,
		"city":    a.City,
		"pincode": a.Pincode,
		"phone":   a.Phone,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidAddress, field)
		}
	}
	return nil
}

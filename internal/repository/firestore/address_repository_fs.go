package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AddressRepositoryFS implements repository.AddressRepository using Firestore.
type AddressRepositoryFS struct {
	Client *firestore.Client
}

func NewAddressRepositoryFS(client *firestore.Client) *AddressRepositoryFS {
	return &AddressRepositoryFS{Client: client}
}

func (r *AddressRepositoryFS) col(userID string) *firestore.CollectionRef {
	return r.Client.Collection(colUsers).Doc(userID).Collection(colAddresses)
}

// clearDefaults must run before any write in tx.
func (r *AddressRepositoryFS) clearDefaults(tx *firestore.Transaction, userID, keep string) ([]*firestore.DocumentRef, error) {
	snaps, err := tx.Documents(r.col(userID).Where("isDefault", "==", true)).GetAll()
	if err != nil {
		return nil, err
	}
	var refs []*firestore.DocumentRef
	for _, s := range snaps {
		if s.Ref.ID != keep {
			refs = append(refs, s.Ref)
		}
	}
	return refs, nil
}

func unsetDefaults(tx *firestore.Transaction, refs []*firestore.DocumentRef) error {
	for _, ref := range refs {
		if err := tx.Update(ref, []firestore.Update{{Path: "isDefault", Value: false}}); err != nil {
			return err
		}
	}
	return nil
}

// Create writes the address in a transaction that also reads the user's book, so
// concurrent first addresses cannot both become the default.
func (r *AddressRepositoryFS) Create(ctx context.Context, a *domain.Address) error {
	if r == nil || r.Client == nil {
		return errNilClient
	}
	a.CreatedAt = now()
	a.UpdatedAt = a.CreatedAt

	makeDefault := a.IsDefault
	err := r.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		existing, err := tx.Documents(r.col(a.UserID).Limit(1)).GetAll()
		if err != nil {
			return err
		}
		a.IsDefault = makeDefault || len(existing) == 0

		var others []*firestore.DocumentRef
		if a.IsDefault && len(existing) > 0 {
			if others, err = r.clearDefaults(tx, a.UserID, a.ID); err != nil {
				return err
			}
		}
		if err := unsetDefaults(tx, others); err != nil {
			return err
		}
		return tx.Create(r.col(a.UserID).Doc(a.ID), addressDocFromDomain(a))
	})
	if err != nil {
		return fmt.Errorf("failed to create address: %w", err)
	}
	return nil
}

func (r *AddressRepositoryFS) Update(ctx context.Context, a *domain.Address) error {
	if r == nil || r.Client == nil {
		return errNilClient
	}
	ref := r.col(a.UserID).Doc(a.ID)
	a.UpdatedAt = now()

	err := r.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return repository.ErrAddressNotFound
			}
			return err
		}
		var existing addressDoc
		if err := snap.DataTo(&existing); err != nil {
			return err
		}
		var others []*firestore.DocumentRef
		if a.IsDefault {
			if others, err = r.clearDefaults(tx, a.UserID, a.ID); err != nil {
				return err
			}
		}
		if err := unsetDefaults(tx, others); err != nil {
			return err
		}
		a.CreatedAt = existing.CreatedAt
		return tx.Set(ref, addressDocFromDomain(a))
	})
	if errors.Is(err, repository.ErrAddressNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to update address: %w", err)
	}
	return nil
}

func (r *AddressRepositoryFS) Delete(ctx context.Context, userID, id string) error {
	if r == nil || r.Client == nil {
		return errNilClient
	}
	_, err := r.col(userID).Doc(id).Delete(ctx, firestore.Exists)
	if status.Code(err) == codes.NotFound {
		return repository.ErrAddressNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete address: %w", err)
	}
	return nil
}

func (r *AddressRepositoryFS) FindByID(ctx context.Context, userID, id string) (*domain.Address, error) {
	if r == nil || r.Client == nil {
		return nil, errNilClient
	}
	snap, err := r.col(userID).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, repository.ErrAddressNotFound
		}
		return nil, fmt.Errorf("failed to find address by ID: %w", err)
	}
	var d addressDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("failed to decode address %s: %w", id, err)
	}
	return d.toDomain(userID, snap.Ref.ID), nil
}

func (r *AddressRepositoryFS) ListByUser(ctx context.Context, userID string) ([]*domain.Address, error) {
	if r == nil || r.Client == nil {
		return nil, errNilClient
	}
	snaps, err := r.col(userID).OrderBy("createdAt", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	addresses := make([]*domain.Address, 0, len(snaps))
	for _, snap := range snaps {
		var d addressDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("failed to decode address %s: %w", snap.Ref.ID, err)
		}
		addresses = append(addresses, d.toDomain(userID, snap.Ref.ID))
	}
	sort.SliceStable(addresses, func(i, j int) bool {
		return addresses[i].IsDefault && !addresses[j].IsDefault
	})
	return addresses, nil
}

func (r *AddressRepositoryFS) SetDefault(ctx context.Context, userID, id string) error {
	if r == nil || r.Client == nil {
		return errNilClient
	}
	ref := r.col(userID).Doc(id)

	err := r.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			if status.Code(err) == codes.NotFound {
				return repository.ErrAddressNotFound
			}
			return err
		}
		others, err := r.clearDefaults(tx, userID, id)
		if err != nil {
			return err
		}
		if err := unsetDefaults(tx, others); err != nil {
			return err
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "isDefault", Value: true},
			{Path: "updatedAt", Value: now()},
		})
	})
	if errors.Is(err, repository.ErrAddressNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to set default address: %w", err)
	}
	return nil
}

var _ repository.AddressRepository = (*AddressRepositoryFS)(nil)

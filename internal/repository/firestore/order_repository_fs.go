package firestore

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// OrderRepositoryFS implements repository.OrderRepository using Firestore.
type OrderRepositoryFS struct {
	Client *firestore.Client
}

func NewOrderRepositoryFS(client *firestore.Client) *OrderRepositoryFS {
	return &OrderRepositoryFS{Client: client}
}

func (r *OrderRepositoryFS) col(userID string) *firestore.CollectionRef {
	return r.Client.Collection(colUsers).Doc(userID).Collection(colOrders)
}

// Create reads every referenced product, reserves stock in memory, then writes
// the order and the new variant arrays in the same transaction.
func (r *OrderRepositoryFS) Create(ctx context.Context, o *domain.Order) error {
	if r == nil || r.Client == nil {
		return errNilClient
	}
	o.CreatedAt = now()
	o.UpdatedAt = o.CreatedAt
	products := r.Client.Collection(colProducts)

	err := r.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		byID := make(map[string]*domain.Product)
		for _, it := range o.Items {
			if _, ok := byID[it.ProductID]; ok {
				continue
			}
			snap, err := tx.Get(products.Doc(it.ProductID))
			if err != nil {
				if status.Code(err) == codes.NotFound {
					return fmt.Errorf("product %s: %w", it.ProductID, repository.ErrProductNotFound)
				}
				return err
			}
			p, err := decodeProduct(snap)
			if err != nil {
				return err
			}
			byID[it.ProductID] = p
		}

		for _, it := range o.Items {
			if err := byID[it.ProductID].ReserveStock(it.Size, it.Color, it.Quantity); err != nil {
				return err
			}
		}

		if err := tx.Create(r.col(o.UserID).Doc(o.ID), orderDocFromDomain(o)); err != nil {
			return err
		}
		for id, p := range byID {
			if !p.HasVariants() {
				continue
			}
			if err := tx.Update(products.Doc(id), []firestore.Update{
				{Path: "variants", Value: variantsToDocs(p.Variants)},
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) || errors.Is(err, domain.ErrVariantNotFound) || errors.Is(err, repository.ErrProductNotFound) {
			return err
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *OrderRepositoryFS) FindByID(ctx context.Context, userID, id string) (*domain.Order, error) {
	if r == nil || r.Client == nil {
		return nil, errNilClient
	}
	snap, err := r.col(userID).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, repository.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}
	return decodeOrder(snap)
}

func (r *OrderRepositoryFS) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	if r == nil || r.Client == nil {
		return nil, errNilClient
	}
	return r.list(ctx, r.col(userID).OrderBy("orderDate", firestore.Desc))
}

// ListAll queries the orders collection group, so every user's orders are read
// in one pass. The owner comes from the parent document path.
func (r *OrderRepositoryFS) ListAll(ctx context.Context) ([]*domain.Order, error) {
	if r == nil || r.Client == nil {
		return nil, errNilClient
	}
	return r.list(ctx, r.Client.CollectionGroup(colOrders).OrderBy("orderDate", firestore.Desc))
}

func (r *OrderRepositoryFS) list(ctx context.Context, q firestore.Query) ([]*domain.Order, error) {
	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	orders := make([]*domain.Order, 0, len(snaps))
	for _, snap := range snaps {
		o, err := decodeOrder(snap)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (r *OrderRepositoryFS) UpdateStatus(ctx context.Context, userID, id string, to domain.OrderStatus) error {
	if r == nil || r.Client == nil {
		return errNilClient
	}
	ref := r.col(userID).Doc(id)

	err := r.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return repository.ErrOrderNotFound
			}
			return err
		}
		current, err := snap.DataAt("status")
		if err != nil {
			return err
		}
		from := domain.OrderStatus(fmt.Sprint(current))
		if err := domain.ValidateTransition(from, to); err != nil {
			return err
		}
		if from == to {
			return nil
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "status", Value: string(to)},
			{Path: "updatedAt", Value: now()},
		})
	})
	if errors.Is(err, repository.ErrOrderNotFound) || errors.Is(err, domain.ErrInvalidStatus) || errors.Is(err, domain.ErrInvalidStatusTransition) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	return nil
}

func decodeOrder(snap *firestore.DocumentSnapshot) (*domain.Order, error) {
	var d orderDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("failed to decode order %s: %w", snap.Ref.ID, err)
	}
	userID := d.UserID
	if parent := snap.Ref.Parent.Parent; parent != nil {
		userID = parent.ID
	}
	return d.toDomain(userID, snap.Ref.ID), nil
}

var _ repository.OrderRepository = (*OrderRepositoryFS)(nil)

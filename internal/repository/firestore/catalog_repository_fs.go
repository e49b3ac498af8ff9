package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var errNilClient = errors.New("firestore client is nil")

func now() time.Time { return time.Now().UTC() }

// ProductRepositoryFS implements repository.ProductRepository using Firestore.
type ProductRepositoryFS struct {
	Client *firestore.Client
}

func NewProductRepositoryFS(client *firestore.Client) *ProductRepositoryFS {
	return &ProductRepositoryFS{Client: client}
}

func (r *ProductRepositoryFS) col() *firestore.CollectionRef {
	return r.Client.Collection(colProducts)
}

func (r *ProductRepositoryFS) Create(ctx context.Context, p *domain.Product) error {
	if r == nil || r.Client == nil {
		return errNilClient
	}
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt

	if _, err := r.col().Doc(p.ID).Create(ctx, productDocFromDomain(p)); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (r *ProductRepositoryFS) Update(ctx context.Context, p *domain.Product) error {
	if r == nil || r.Client == nil {
		return errNilClient
	}
	ref := r.col().Doc(p.ID)
	p.UpdatedAt = now()

	err := r.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return repository.ErrProductNotFound
			}
			return err
		}
		var existing productDoc
		if err := snap.DataTo(&existing); err != nil {
			return err
		}
		p.CreatedAt = existing.CreatedAt
		return tx.Set(ref, productDocFromDomain(p))
	})
	if errors.Is(err, repository.ErrProductNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

func (r *ProductRepositoryFS) Delete(ctx context.Context, id string) error {
	if r == nil || r.Client == nil {
		return errNilClient
	}
	_, err := r.col().Doc(id).Delete(ctx, firestore.Exists)
	if status.Code(err) == codes.NotFound {
		return repository.ErrProductNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

func (r *ProductRepositoryFS) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	if r == nil || r.Client == nil {
		return nil, errNilClient
	}
	snap, err := r.col().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, repository.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	return decodeProduct(snap)
}

// List applies equality filters in the query. Title search and paging happen in
// memory since Firestore has no substring matching.
func (r *ProductRepositoryFS) List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, int, error) {
	if r == nil || r.Client == nil {
		return nil, 0, errNilClient
	}

	q := r.col().Query
	if filter.Category != "" {
		q = q.Where("category", "==", filter.Category)
	}
	if filter.PublishedOnly {
		q = q.Where("isPublished", "==", true)
	}
	if filter.FeaturedOnly {
		q = q.Where("isFeatured", "==", true)
	}
	q = q.OrderBy("createdAt", firestore.Desc)

	it := q.Documents(ctx)
	defer it.Stop()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	products := []*domain.Product{}
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to list products: %w", err)
		}
		p, err := decodeProduct(snap)
		if err != nil {
			return nil, 0, err
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Title), search) &&
			!strings.Contains(strings.ToLower(p.Brand), search) {
			continue
		}
		products = append(products, p)
	}

	total := len(products)
	if filter.Offset > 0 {
		if filter.Offset >= len(products) {
			return []*domain.Product{}, total, nil
		}
		products = products[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(products) {
		products = products[:filter.Limit]
	}
	return products, total, nil
}

func decodeProduct(snap *firestore.DocumentSnapshot) (*domain.Product, error) {
	var d productDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("failed to decode product %s: %w", snap.Ref.ID, err)
	}
	return d.toDomain(snap.Ref.ID), nil
}

// CategoryRepositoryFS implements repository.CategoryRepository using Firestore.
type CategoryRepositoryFS struct {
	Client *firestore.Client
}

func NewCategoryRepositoryFS(client *firestore.Client) *CategoryRepositoryFS {
	return &CategoryRepositoryFS{Client: client}
}

func (r *CategoryRepositoryFS) col() *firestore.CollectionRef {
	return r.Client.Collection(colCategories)
}

// Create enforces unique names inside a transaction.
func (r *CategoryRepositoryFS) Create(ctx context.Context, c *domain.Category) error {
	if r == nil || r.Client == nil {
		return errNilClient
	}
	c.CreatedAt = now()
	c.UpdatedAt = c.CreatedAt

	err := r.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		dups, err := tx.Documents(r.col().Where("name", "==", c.Name).Limit(1)).GetAll()
		if err != nil {
			return err
		}
		if len(dups) > 0 {
			return repository.ErrCategoryAlreadyExists
		}
		return tx.Create(r.col().Doc(c.ID), categoryDocFromDomain(c))
	})
	if errors.Is(err, repository.ErrCategoryAlreadyExists) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

func (r *CategoryRepositoryFS) Update(ctx context.Context, c *domain.Category) error {
	if r == nil || r.Client == nil {
		return errNilClient
	}
	ref := r.col().Doc(c.ID)
	c.UpdatedAt = now()

	err := r.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return repository.ErrCategoryNotFound
			}
			return err
		}
		dups, err := tx.Documents(r.col().Where("name", "==", c.Name)).GetAll()
		if err != nil {
			return err
		}
		for _, d := range dups {
			if d.Ref.ID != c.ID {
				return repository.ErrCategoryAlreadyExists
			}
		}
		var existing categoryDoc
		if err := snap.DataTo(&existing); err != nil {
			return err
		}
		c.CreatedAt = existing.CreatedAt
		return tx.Set(ref, categoryDocFromDomain(c))
	})
	if errors.Is(err, repository.ErrCategoryNotFound) || errors.Is(err, repository.ErrCategoryAlreadyExists) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	return nil
}

func (r *CategoryRepositoryFS) Delete(ctx context.Context, id string) error {
	if r == nil || r.Client == nil {
		return errNilClient
	}
	_, err := r.col().Doc(id).Delete(ctx, firestore.Exists)
	if status.Code(err) == codes.NotFound {
		return repository.ErrCategoryNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return nil
}

func (r *CategoryRepositoryFS) FindByID(ctx context.Context, id string) (*domain.Category, error) {
	if r == nil || r.Client == nil {
		return nil, errNilClient
	}
	snap, err := r.col().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, repository.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to find category by ID: %w", err)
	}
	var d categoryDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("failed to decode category %s: %w", id, err)
	}
	return d.toDomain(snap.Ref.ID), nil
}

func (r *CategoryRepositoryFS) List(ctx context.Context) ([]*domain.Category, error) {
	if r == nil || r.Client == nil {
		return nil, errNilClient
	}
	snaps, err := r.col().OrderBy("position", firestore.Asc).OrderBy("name", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	categories := make([]*domain.Category, 0, len(snaps))
	for _, snap := range snaps {
		var d categoryDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("failed to decode category %s: %w", snap.Ref.ID, err)
		}
		categories = append(categories, d.toDomain(snap.Ref.ID))
	}
	return categories, nil
}

// BannerRepositoryFS implements repository.BannerRepository using Firestore.
type BannerRepositoryFS struct {
	Client *firestore.Client
}

func NewBannerRepositoryFS(client *firestore.Client) *BannerRepositoryFS {
	return &BannerRepositoryFS{Client: client}
}

func (r *BannerRepositoryFS) col() *firestore.CollectionRef {
	return r.Client.Collection(colBanners)
}

func (r *BannerRepositoryFS) Create(ctx context.Context, b *domain.Banner) error {
	if r == nil || r.Client == nil {
		return errNilClient
	}
	b.CreatedAt = now()
	b.UpdatedAt = b.CreatedAt
	if _, err := r.col().Doc(b.ID).Create(ctx, bannerDocFromDomain(b)); err != nil {
		return fmt.Errorf("failed to create banner: %w", err)
	}
	return nil
}

func (r *BannerRepositoryFS) Update(ctx context.Context, b *domain.Banner) error {
	if r == nil || r.Client == nil {
		return errNilClient
	}
	b.UpdatedAt = now()
	_, err := r.col().Doc(b.ID).Update(ctx, []firestore.Update{
		{Path: "title", Value: b.Title},
		{Path: "imageUrl", Value: b.ImageURL},
		{Path: "link", Value: b.Link},
		{Path: "position", Value: b.Position},
		{Path: "isActive", Value: b.IsActive},
		{Path: "updatedAt", Value: b.UpdatedAt},
	})
	if status.Code(err) == codes.NotFound {
		return repository.ErrBannerNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update banner: %w", err)
	}
	return nil
}

func (r *BannerRepositoryFS) Delete(ctx context.Context, id string) error {
	if r == nil || r.Client == nil {
		return errNilClient
	}
	_, err := r.col().Doc(id).Delete(ctx, firestore.Exists)
	if status.Code(err) == codes.NotFound {
		return repository.ErrBannerNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete banner: %w", err)
	}
	return nil
}

func (r *BannerRepositoryFS) FindByID(ctx context.Context, id string) (*domain.Banner, error) {
	if r == nil || r.Client == nil {
		return nil, errNilClient
	}
	snap, err := r.col().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, repository.ErrBannerNotFound
		}
		return nil, fmt.Errorf("failed to find banner by ID: %w", err)
	}
	var d bannerDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("failed to decode banner %s: %w", id, err)
	}
	return d.toDomain(snap.Ref.ID), nil
}

func (r *BannerRepositoryFS) List(ctx context.Context, activeOnly bool) ([]*domain.Banner, error) {
	if r == nil || r.Client == nil {
		return nil, errNilClient
	}
	q := r.col().Query
	if activeOnly {
		q = q.Where("isActive", "==", true)
	}
	snaps, err := q.OrderBy("position", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list banners: %w", err)
	}
	banners := make([]*domain.Banner, 0, len(snaps))
	for _, snap := range snaps {
		var d bannerDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("failed to decode banner %s: %w", snap.Ref.ID, err)
		}
		banners = append(banners, d.toDomain(snap.Ref.ID))
	}
	return banners, nil
}

var (
	_ repository.ProductRepository  = (*ProductRepositoryFS)(nil)
	_ repository.CategoryRepository = (*CategoryRepositoryFS)(nil)
	_ repository.BannerRepository   = (*BannerRepositoryFS)(nil)
)

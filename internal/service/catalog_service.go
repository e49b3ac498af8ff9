package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrInvalidProduct  = errors.New("invalid product")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidBanner   = errors.New("invalid banner")
)

// ProductDisplay is a product priced for one size/color selection.
type ProductDisplay struct {
	Product  *domain.Product         `json:"product"`
	Selected *domain.ResolvedVariant `json:"selected,omitempty"`
	Discount int                     `json:"discount"`
	InStock  bool                    `json:"in_stock"`
	Sizes    []string                `json:"sizes"`
	Colors   []string                `json:"colors"`
}

// CatalogService defines the interface for catalog business logic
type CatalogService interface {
	ListProducts(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, int, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ProductDisplay(ctx context.Context, id, size, color string) (*ProductDisplay, error)
	CreateProduct(ctx context.Context, product *domain.Product) error
	UpdateProduct(ctx context.Context, product *domain.Product) error
	DeleteProduct(ctx context.Context, id string) error

	ListCategories(ctx context.Context) ([]*domain.Category, error)
	CreateCategory(ctx context.Context, category *domain.Category) error
	UpdateCategory(ctx context.Context, category *domain.Category) error
	DeleteCategory(ctx context.Context, id string) error

	ListBanners(ctx context.Context, activeOnly bool) ([]*domain.Banner, error)
	CreateBanner(ctx context.Context, banner *domain.Banner) error
	UpdateBanner(ctx context.Context, banner *domain.Banner) error
	DeleteBanner(ctx context.Context, id string) error
}

type catalogService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	banners    repository.BannerRepository
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	banners repository.BannerRepository,
) CatalogService {
	return &catalogService{products: products, categories: categories, banners: banners}
}

func (s *catalogService) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, int, error) {
	return s.products.List(ctx, filter)
}

func (s *catalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.products.FindByID(ctx, id)
}

// ProductDisplay resolves the selection against the live product. An unmatched
// selection leaves Selected empty and InStock false.
func (s *catalogService) ProductDisplay(ctx context.Context, id, size, color string) (*ProductDisplay, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	d := &ProductDisplay{Product: p, Sizes: distinct(p.Variants, func(v domain.Variant) string { return v.Size }), Colors: distinct(p.Variants, func(v domain.Variant) string { return v.Color })}
	if v, ok := domain.ResolveVariant(p, size, color); ok {
		d.Selected = &v
		d.Discount = domain.DiscountPercentage(v.OriginalPrice, v.Price)
		d.InStock = !v.StockTracked() || v.Stock > 0
	}
	return d, nil
}

func distinct(vs []domain.Variant, key func(domain.Variant) string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, v := range vs {
		if k := key(v); k != "" && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

func (s *catalogService) CreateProduct(ctx context.Context, p *domain.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := prepareProduct(p); err != nil {
		return err
	}
	return s.products.Create(ctx, p)
}

func (s *catalogService) UpdateProduct(ctx context.Context, p *domain.Product) error {
	if p.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidProduct)
	}
	if err := prepareProduct(p); err != nil {
		return err
	}
	return s.products.Update(ctx, p)
}

func (s *catalogService) DeleteProduct(ctx context.Context, id string) error {
	return s.products.Delete(ctx, id)
}

// prepareProduct validates p and refreshes its legacy price fields.
func prepareProduct(p *domain.Product) error {
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidProduct)
	}
	if err := p.ValidateVariants(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidProduct, err)
	}
	if !p.HasVariants() && !p.Price.IsPositive() {
		return fmt.Errorf("%w: price must be greater than zero", ErrInvalidProduct)
	}
	p.SyncLegacyPricing()
	return nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.categories.List(ctx)
}

func (s *catalogService) CreateCategory(ctx context.Context, c *domain.Category) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Name = strings.TrimSpace(c.Name); c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidCategory)
	}
	return s.categories.Create(ctx, c)
}

func (s *catalogService) UpdateCategory(ctx context.Context, c *domain.Category) error {
	if c.Name = strings.TrimSpace(c.Name); c.Name == "" || c.ID == "" {
		return fmt.Errorf("%w: id and name are required", ErrInvalidCategory)
	}
	return s.categories.Update(ctx, c)
}

func (s *catalogService) DeleteCategory(ctx context.Context, id string) error {
	return s.categories.Delete(ctx, id)
}

// ListBanners returns banners by position.
func (s *catalogService) ListBanners(ctx context.Context, activeOnly bool) ([]*domain.Banner, error) {
	banners, err := s.banners.List(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(banners, func(i, j int) bool { return banners[i].Position < banners[j].Position })
	return banners, nil
}

func (s *catalogService) CreateBanner(ctx context.Context, b *domain.Banner) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if strings.TrimSpace(b.ImageURL) == "" {
		return fmt.Errorf("%w: image url is required", ErrInvalidBanner)
	}
	return s.banners.Create(ctx, b)
}

func (s *catalogService) UpdateBanner(ctx context.Context, b *domain.Banner) error {
	if b.ID == "" || strings.TrimSpace(b.ImageURL) == "" {
		return fmt.Errorf("%w: id and image url are required", ErrInvalidBanner)
	}
	return s.banners.Update(ctx, b)
}

func (s *catalogService) DeleteBanner(ctx context.Context, id string) error {
	return s.banners.Delete(ctx, id)
}

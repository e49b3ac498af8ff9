package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/realtime"

	"go.uber.org/zap"
)

const productColumns = `id, title, brand, category, description, rating, reviews, media,
	price, original_price, discount, is_new, is_bestseller, is_featured, is_published,
	created_at, updated_at`

type productRepository struct {
	db *sql.DB
	notifier
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB, publisher realtime.Publisher, logger *zap.Logger) ProductRepository {
	return &productRepository{db: db, notifier: notifier{publisher: publisher, logger: logger}}
}

// Create inserts the product and its variants
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	media, err := json.Marshal(nonNilMedia(product.Media))
	if err != nil {
		return fmt.Errorf("failed to encode product media: %w", err)
	}
	product.CreatedAt = now()
	product.UpdatedAt = product.CreatedAt

	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	err = withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			product.ID,
			product.Title,
			product.Brand,
			product.Category,
			product.Description,
			product.Rating,
			product.Reviews,
			media,
			product.Price,
			product.OriginalPrice,
			product.Discount,
			product.IsNew,
			product.IsBestseller,
			product.IsFeatured,
			product.IsPublished,
			product.CreatedAt,
			product.UpdatedAt,
		)
		if err != nil {
			return err
		}
		return insertVariants(ctx, tx, product.ID, product.Variants)
	})
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	r.changed(ctx, realtime.ProductsTopic())
	return nil
}

// Update replaces the product fields and its whole variant list
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	media, err := json.Marshal(nonNilMedia(product.Media))
	if err != nil {
		return fmt.Errorf("failed to encode product media: %w", err)
	}
	product.UpdatedAt = now()

	query := `
		UPDATE products
		SET title = $2, brand = $3, category = $4, description = $5, rating = $6,
		    reviews = $7, media = $8, price = $9, original_price = $10, discount = $11,
		    is_new = $12, is_bestseller = $13, is_featured = $14, is_published = $15,
		    updated_at = $16
		WHERE id = $1
		RETURNING created_at
	`

	err = withTx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, query,
			product.ID,
			product.Title,
			product.Brand,
			product.Category,
			product.Description,
			product.Rating,
			product.Reviews,
			media,
			product.Price,
			product.OriginalPrice,
			product.Discount,
			product.IsNew,
			product.IsBestseller,
			product.IsFeatured,
			product.IsPublished,
			product.UpdatedAt,
		).Scan(&product.CreatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProductNotFound
		}
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM product_variants WHERE product_id = $1`, product.ID); err != nil {
			return err
		}
		return insertVariants(ctx, tx, product.ID, product.Variants)
	})
	if errors.Is(err, ErrProductNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	r.changed(ctx, realtime.ProductsTopic())
	return nil
}

// Delete removes a product; its variants go with it
func (r *productRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if err := rowsAffected(result, ErrProductNotFound); err != nil {
		return err
	}

	r.changed(ctx, realtime.ProductsTopic())
	return nil
}

// FindByID retrieves a product with its variants in stored order
func (r *productRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	product, err := findProduct(ctx, r.db, id, false)
	if err != nil {
		return nil, err
	}
	return product, nil
}

// List retrieves products newest first, with optional filtering and pagination
func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]*domain.Product, int, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Category != "" {
		conds = append(conds, "category = "+arg(filter.Category))
	}
	if filter.PublishedOnly {
		conds = append(conds, "is_published")
	}
	if filter.FeaturedOnly {
		conds = append(conds, "is_featured")
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		p := arg("%" + q + "%")
		conds = append(conds, "(title ILIKE "+p+" OR brand ILIKE "+p+")")
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query := "SELECT " + productColumns + " FROM products " + where + " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	byID := make(map[string]*domain.Product)
	ids := []string{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
		byID[product.ID] = product
		ids = append(ids, product.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating products: %w", err)
	}

	if len(ids) > 0 {
		if err := attachVariants(ctx, r.db, ids, byID); err != nil {
			return nil, 0, err
		}
	}

	return products, total, nil
}

// findProduct loads a product and its variants. With forUpdate the product row and
// its variant rows stay locked until q's transaction ends.
func findProduct(ctx context.Context, q queryer, id string, forUpdate bool) (*domain.Product, error) {
	lock := ""
	if forUpdate {
		lock = " FOR UPDATE"
	}

	product, err := scanProduct(q.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = $1"+lock, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT product_id, size, color, price, original_price, stock, sku, carton_size
		FROM product_variants
		WHERE product_id = $1
		ORDER BY position`+lock, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		_, v, err := scanVariant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		product.Variants = append(product.Variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating variants: %w", err)
	}
	return product, nil
}

func attachVariants(ctx context.Context, q queryer, ids []string, byID map[string]*domain.Product) error {
	rows, err := q.QueryContext(ctx, `
		SELECT product_id, size, color, price, original_price, stock, sku, carton_size
		FROM product_variants
		WHERE product_id = ANY($1)
		ORDER BY product_id, position`, ids)
	if err != nil {
		return fmt.Errorf("failed to load variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		productID, v, err := scanVariant(rows)
		if err != nil {
			return fmt.Errorf("failed to scan variant: %w", err)
		}
		if p, ok := byID[productID]; ok {
			p.Variants = append(p.Variants, v)
		}
	}
	return rows.Err()
}

func insertVariants(ctx context.Context, tx *sql.Tx, productID string, variants []domain.Variant) error {
	query := `
		INSERT INTO product_variants (product_id, position, size, color, price, original_price, stock, sku, carton_size)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for i, v := range variants {
		if _, err := tx.ExecContext(ctx, query,
			productID, i, v.Size, v.Color, v.Price, v.OriginalPrice, v.Stock, v.SKU, v.CartonSize,
		); err != nil {
			return fmt.Errorf("variant %d: %w", i, err)
		}
	}
	return nil
}

// updateVariantStock writes back the stock of every variant of product.
func updateVariantStock(ctx context.Context, tx *sql.Tx, product *domain.Product) error {
	for i, v := range product.Variants {
		if _, err := tx.ExecContext(ctx,
			`UPDATE product_variants SET stock = $3 WHERE product_id = $1 AND position = $2`,
			product.ID, i, v.Stock,
		); err != nil {
			return fmt.Errorf("failed to update stock of %s variant %d: %w", product.ID, i, err)
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (*domain.Product, error) {
	product := &domain.Product{}
	var media []byte
	err := s.Scan(
		&product.ID,
		&product.Title,
		&product.Brand,
		&product.Category,
		&product.Description,
		&product.Rating,
		&product.Reviews,
		&media,
		&product.Price,
		&product.OriginalPrice,
		&product.Discount,
		&product.IsNew,
		&product.IsBestseller,
		&product.IsFeatured,
		&product.IsPublished,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(media, &product.Media); err != nil {
		return nil, fmt.Errorf("failed to decode media of %s: %w", product.ID, err)
	}
	return product, nil
}

func scanVariant(s scanner) (string, domain.Variant, error) {
	var (
		productID string
		v         domain.Variant
	)
	err := s.Scan(&productID, &v.Size, &v.Color, &v.Price, &v.OriginalPrice, &v.Stock, &v.SKU, &v.CartonSize)
	return productID, v, err
}

func nonNilMedia(media []string) []string {
	if media == nil {
		return []string{}
	}
	return media
}

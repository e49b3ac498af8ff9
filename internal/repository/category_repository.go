package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/realtime"

	"go.uber.org/zap"
)

type categoryRepository struct {
	db *sql.DB
	notifier
}

// NewCategoryRepository creates a new instance of CategoryRepository
func NewCategoryRepository(db *sql.DB, publisher realtime.Publisher, logger *zap.Logger) CategoryRepository {
	return &categoryRepository{db: db, notifier: notifier{publisher: publisher, logger: logger}}
}

// Create inserts a new category into the database using parameterized queries
func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	category.CreatedAt = now()
	category.UpdatedAt = category.CreatedAt

	query := `
		INSERT INTO categories (id, name, description, image_url, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		category.ID,
		category.Name,
		category.Description,
		category.ImageURL,
		category.Position,
		category.CreatedAt,
		category.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrCategoryAlreadyExists
		}
		return fmt.Errorf("failed to create category: %w", err)
	}

	r.changed(ctx, realtime.CategoriesTopic())
	return nil
}

func (r *categoryRepository) Update(ctx context.Context, category *domain.Category) error {
	category.UpdatedAt = now()

	query := `
		UPDATE categories
		SET name = $2, description = $3, image_url = $4, position = $5, updated_at = $6
		WHERE id = $1
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		category.ID,
		category.Name,
		category.Description,
		category.ImageURL,
		category.Position,
		category.UpdatedAt,
	).Scan(&category.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrCategoryNotFound
	}
	if err != nil {
		if isUniqueViolation(err) {
			return ErrCategoryAlreadyExists
		}
		return fmt.Errorf("failed to update category: %w", err)
	}

	r.changed(ctx, realtime.CategoriesTopic())
	return nil
}

func (r *categoryRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if err := rowsAffected(result, ErrCategoryNotFound); err != nil {
		return err
	}

	r.changed(ctx, realtime.CategoriesTopic())
	return nil
}

// List retrieves all categories in display order
func (r *categoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	query := `
		SELECT id, name, description, image_url, position, created_at, updated_at
		FROM categories
		ORDER BY position ASC, name ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []*domain.Category{}
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// FindByID retrieves a category by ID
func (r *categoryRepository) FindByID(ctx context.Context, id string) (*domain.Category, error) {
	query := `
		SELECT id, name, description, image_url, position, created_at, updated_at
		FROM categories
		WHERE id = $1
	`

	category, err := scanCategory(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to find category by ID: %w", err)
	}

	return category, nil
}

func scanCategory(s scanner) (*domain.Category, error) {
	category := &domain.Category{}
	err := s.Scan(
		&category.ID,
		&category.Name,
		&category.Description,
		&category.ImageURL,
		&category.Position,
		&category.CreatedAt,
		&category.UpdatedAt,
	)
	return category, err
}

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

const bannerColumns = `id, title, image_url, link, position, is_active, created_at, updated_at`

type bannerRepository struct {
	db *sql.DB
	notifier
}

func NewBannerRepository(db *sql.DB, publisher realtime.Publisher, logger *zap.Logger) BannerRepository {
	return &bannerRepository{db: db, notifier: notifier{publisher: publisher, logger: logger}}
}

func (r *bannerRepository) Create(ctx context.Context, banner *domain.Banner) error {
	banner.CreatedAt = now()
	banner.UpdatedAt = banner.CreatedAt

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO banners (`+bannerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		banner.ID,
		banner.Title,
		banner.ImageURL,
		banner.Link,
		banner.Position,
		banner.IsActive,
		banner.CreatedAt,
		banner.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create banner: %w", err)
	}

	r.changed(ctx, realtime.BannersTopic())
	return nil
}

func (r *bannerRepository) Update(ctx context.Context, banner *domain.Banner) error {
	banner.UpdatedAt = now()

	err := r.db.QueryRowContext(ctx, `
		UPDATE banners
		SET title = $2, image_url = $3, link = $4, position = $5, is_active = $6, updated_at = $7
		WHERE id = $1
		RETURNING created_at`,
		banner.ID,
		banner.Title,
		banner.ImageURL,
		banner.Link,
		banner.Position,
		banner.IsActive,
		banner.UpdatedAt,
	).Scan(&banner.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrBannerNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update banner: %w", err)
	}

	r.changed(ctx, realtime.BannersTopic())
	return nil
}

func (r *bannerRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM banners WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete banner: %w", err)
	}
	if err := rowsAffected(result, ErrBannerNotFound); err != nil {
		return err
	}

	r.changed(ctx, realtime.BannersTopic())
	return nil
}

func (r *bannerRepository) FindByID(ctx context.Context, id string) (*domain.Banner, error) {
	banner, err := scanBanner(r.db.QueryRowContext(ctx,
		`SELECT `+bannerColumns+` FROM banners WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBannerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find banner by ID: %w", err)
	}
	return banner, nil
}

// List returns banners in display order, optionally only the active ones.
func (r *bannerRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Banner, error) {
	query := `SELECT ` + bannerColumns + ` FROM banners`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY position ASC, created_at ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list banners: %w", err)
	}
	defer rows.Close()

	banners := []*domain.Banner{}
	for rows.Next() {
		banner, err := scanBanner(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan banner: %w", err)
		}
		banners = append(banners, banner)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating banners: %w", err)
	}
	return banners, nil
}

func scanBanner(s scanner) (*domain.Banner, error) {
	banner := &domain.Banner{}
	err := s.Scan(
		&banner.ID,
		&banner.Title,
		&banner.ImageURL,
		&banner.Link,
		&banner.Position,
		&banner.IsActive,
		&banner.CreatedAt,
		&banner.UpdatedAt,
	)
	return banner, err
}

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

const addressColumns = `id, user_id, type, name, address, city, state, pincode, phone, is_default, created_at, updated_at`

type addressRepository struct {
	db *sql.DB
	notifier
}

func NewAddressRepository(db *sql.DB, publisher realtime.Publisher, logger *zap.Logger) AddressRepository {
	return &addressRepository{db: db, notifier: notifier{publisher: publisher, logger: logger}}
}

// Create inserts the address. A user's first address becomes the default.
func (r *addressRepository) Create(ctx context.Context, address *domain.Address) error {
	address.CreatedAt = now()
	address.UpdatedAt = address.CreatedAt

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		// serializes creates per user so only one first address can see an empty book
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, address.UserID); err != nil {
			return err
		}
		var hasAny bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM addresses WHERE user_id = $1)`, address.UserID,
		).Scan(&hasAny); err != nil {
			return err
		}
		if !hasAny {
			address.IsDefault = true
		} else if address.IsDefault {
			if err := clearDefault(ctx, tx, address.UserID); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO addresses (`+addressColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			address.ID,
			address.UserID,
			address.Type,
			address.Name,
			address.Address,
			address.City,
			address.State,
			address.Pincode,
			address.Phone,
			address.IsDefault,
			address.CreatedAt,
			address.UpdatedAt,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to create address: %w", err)
	}

	r.changed(ctx, realtime.AddressesTopic(address.UserID))
	return nil
}

func (r *addressRepository) Update(ctx context.Context, address *domain.Address) error {
	address.UpdatedAt = now()

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if address.IsDefault {
			if err := clearDefault(ctx, tx, address.UserID); err != nil {
				return err
			}
		}
		err := tx.QueryRowContext(ctx, `
			UPDATE addresses
			SET type = $3, name = $4, address = $5, city = $6, state = $7, pincode = $8,
			    phone = $9, is_default = $10, updated_at = $11
			WHERE user_id = $1 AND id = $2
			RETURNING created_at`,
			address.UserID,
			address.ID,
			address.Type,
			address.Name,
			address.Address,
			address.City,
			address.State,
			address.Pincode,
			address.Phone,
			address.IsDefault,
			address.UpdatedAt,
		).Scan(&address.CreatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAddressNotFound
		}
		return err
	})
	if errors.Is(err, ErrAddressNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to update address: %w", err)
	}

	r.changed(ctx, realtime.AddressesTopic(address.UserID))
	return nil
}

func (r *addressRepository) Delete(ctx context.Context, userID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM addresses WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete address: %w", err)
	}
	if err := rowsAffected(result, ErrAddressNotFound); err != nil {
		return err
	}

	r.changed(ctx, realtime.AddressesTopic(userID))
	return nil
}

func (r *addressRepository) FindByID(ctx context.Context, userID, id string) (*domain.Address, error) {
	address, err := scanAddress(r.db.QueryRowContext(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE user_id = $1 AND id = $2`, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAddressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find address by ID: %w", err)
	}
	return address, nil
}

// ListByUser returns the default address first, then the rest oldest first.
func (r *addressRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Address, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+addressColumns+`
		FROM addresses
		WHERE user_id = $1
		ORDER BY is_default DESC, created_at ASC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	defer rows.Close()

	addresses := []*domain.Address{}
	for rows.Next() {
		address, err := scanAddress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		addresses = append(addresses, address)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating addresses: %w", err)
	}
	return addresses, nil
}

// SetDefault makes id the user's only default address.
func (r *addressRepository) SetDefault(ctx context.Context, userID, id string) error {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var exists bool
		err := tx.QueryRowContext(ctx,
			`SELECT TRUE FROM addresses WHERE user_id = $1 AND id = $2 FOR UPDATE`, userID, id,
		).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAddressNotFound
		}
		if err != nil {
			return err
		}

		if err := clearDefault(ctx, tx, userID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE addresses SET is_default = TRUE, updated_at = $3 WHERE user_id = $1 AND id = $2`,
			userID, id, now())
		return err
	})
	if errors.Is(err, ErrAddressNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to set default address: %w", err)
	}

	r.changed(ctx, realtime.AddressesTopic(userID))
	return nil
}

func clearDefault(ctx context.Context, tx *sql.Tx, userID string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE addresses SET is_default = FALSE WHERE user_id = $1 AND is_default`, userID)
	return err
}

func scanAddress(s scanner) (*domain.Address, error) {
	address := &domain.Address{}
	err := s.Scan(
		&address.ID,
		&address.UserID,
		&address.Type,
		&address.Name,
		&address.Address,
		&address.City,
		&address.State,
		&address.Pincode,
		&address.Phone,
		&address.IsDefault,
		&address.CreatedAt,
		&address.UpdatedAt,
	)
	return address, err
}

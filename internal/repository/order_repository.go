package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"storefront/internal/domain"
	"storefront/internal/realtime"

	"go.uber.org/zap"
)

const orderColumns = `id, user_id, order_number, delivery_address, payment_method, sub_total,
	delivery_fee, tax_percentage, tax_amount, platform_fee, discount, final_total, status,
	order_date, gateway_order_id, receipt_id, payment_id, created_at, updated_at`

type orderRepository struct {
	db *sql.DB
	notifier
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB, publisher realtime.Publisher, logger *zap.Logger) OrderRepository {
	return &orderRepository{db: db, notifier: notifier{publisher: publisher, logger: logger}}
}

// Create writes the order and its items and reserves stock for every line in one
// transaction. Products are locked in id order so concurrent checkouts cannot
// deadlock on each other.
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	order.CreatedAt = now()
	order.UpdatedAt = order.CreatedAt

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		products, err := reserveStock(ctx, tx, order.Items)
		if err != nil {
			return err
		}

		if err := insertOrder(ctx, tx, order); err != nil {
			return err
		}

		for _, product := range products {
			if err := updateVariantStock(ctx, tx, product); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) || errors.Is(err, domain.ErrVariantNotFound) || errors.Is(err, ErrProductNotFound) {
			return err
		}
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.changed(ctx,
		realtime.UserOrdersTopic(order.UserID),
		realtime.AllOrdersTopic(),
		realtime.ProductsTopic(),
	)
	return nil
}

// reserveStock locks every product the items reference and takes the ordered
// quantities from the in-memory copies. Nothing is written here.
func reserveStock(ctx context.Context, tx *sql.Tx, items []domain.OrderItem) ([]*domain.Product, error) {
	ids := make([]string, 0, len(items))
	seen := make(map[string]bool)
	for _, it := range items {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			ids = append(ids, it.ProductID)
		}
	}
	sort.Strings(ids)

	byID := make(map[string]*domain.Product, len(ids))
	products := make([]*domain.Product, 0, len(ids))
	for _, id := range ids {
		product, err := findProduct(ctx, tx, id, true)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", id, err)
		}
		byID[id] = product
		if product.HasVariants() {
			products = append(products, product)
		}
	}

	for _, it := range items {
		if err := byID[it.ProductID].ReserveStock(it.Size, it.Color, it.Quantity); err != nil {
			return nil, err
		}
	}
	return products, nil
}

func insertOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		order.ID,
		order.UserID,
		order.OrderNumber,
		order.DeliveryAddress,
		order.PaymentMethod,
		order.SubTotal,
		order.DeliveryFee,
		order.TaxPercentage,
		order.TaxAmount,
		order.PlatformFee,
		order.Discount,
		order.FinalTotal,
		order.Status,
		order.OrderDate,
		order.GatewayOrderID,
		order.ReceiptID,
		order.PaymentID,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO order_items (order_id, position, product_id, name, image, sku, size, color, price, quantity, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	for i, it := range order.Items {
		if _, err := tx.ExecContext(ctx, query,
			order.ID, i, it.ProductID, it.Name, it.Image, it.SKU, it.Size, it.Color, it.Price, it.Quantity, it.Total,
		); err != nil {
			return fmt.Errorf("order item %d: %w", i, err)
		}
	}
	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, userID, id string) (*domain.Order, error) {
	orders, err := r.list(ctx, "WHERE user_id = $1 AND id = $2", userID, id)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ErrOrderNotFound
	}
	return orders[0], nil
}

// ListByUser returns the user's orders, newest first.
func (r *orderRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	return r.list(ctx, "WHERE user_id = $1", userID)
}

// ListAll returns every user's orders, newest first.
func (r *orderRepository) ListAll(ctx context.Context) ([]*domain.Order, error) {
	return r.list(ctx, "")
}

// UpdateStatus moves an order to status when the lifecycle allows it.
func (r *orderRepository) UpdateStatus(ctx context.Context, userID, id string, status domain.OrderStatus) error {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var current domain.OrderStatus
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM orders WHERE user_id = $1 AND id = $2 FOR UPDATE`, userID, id,
		).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}

		if err := domain.ValidateTransition(current, status); err != nil {
			return err
		}
		if current == status {
			return nil
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE orders SET status = $3, updated_at = $4 WHERE user_id = $1 AND id = $2`,
			userID, id, status, now())
		return err
	})
	if errors.Is(err, ErrOrderNotFound) || errors.Is(err, domain.ErrInvalidStatus) || errors.Is(err, domain.ErrInvalidStatusTransition) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	r.changed(ctx, realtime.UserOrdersTopic(userID), realtime.AllOrdersTopic())
	return nil
}

func (r *orderRepository) list(ctx context.Context, where string, args ...any) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders "+where+" ORDER BY order_date DESC, id", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	byID := make(map[string]*domain.Order)
	ids := []string{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		order.Items = []domain.OrderItem{}
		orders = append(orders, order)
		byID[order.ID] = order
		ids = append(ids, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	if len(ids) == 0 {
		return orders, nil
	}
	if err := r.attachItems(ctx, ids, byID); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) attachItems(ctx context.Context, ids []string, byID map[string]*domain.Order) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id, product_id, name, image, sku, size, color, price, quantity, total
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position`, ids)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			it      domain.OrderItem
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.Name, &it.Image, &it.SKU, &it.Size, &it.Color, &it.Price, &it.Quantity, &it.Total); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if order, ok := byID[orderID]; ok {
			order.Items = append(order.Items, it)
		}
	}
	return rows.Err()
}

func scanOrder(s scanner) (*domain.Order, error) {
	order := &domain.Order{}
	err := s.Scan(
		&order.ID,
		&order.UserID,
		&order.OrderNumber,
		&order.DeliveryAddress,
		&order.PaymentMethod,
		&order.SubTotal,
		&order.DeliveryFee,
		&order.TaxPercentage,
		&order.TaxAmount,
		&order.PlatformFee,
		&order.Discount,
		&order.FinalTotal,
		&order.Status,
		&order.OrderDate,
		&order.GatewayOrderID,
		&order.ReceiptID,
		&order.PaymentID,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	return order, err
}

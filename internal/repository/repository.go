package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"storefront/internal/domain"
	"storefront/internal/realtime"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

var (
	ErrProductNotFound       = errors.New("product not found")
	ErrCategoryNotFound      = errors.New("category not found")
	ErrCategoryAlreadyExists = errors.New("category with this name already exists")
	ErrBannerNotFound        = errors.New("banner not found")
	ErrAddressNotFound       = errors.New("address not found")
	ErrOrderNotFound         = errors.New("order not found")
)

// ProductFilter narrows a product listing. Zero values do not filter.
type ProductFilter struct {
	Category      string
	Search        string
	PublishedOnly bool
	FeaturedOnly  bool
	Limit         int
	Offset        int
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]*domain.Product, int, error)
}

// CategoryRepository defines the interface for category data access
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	Update(ctx context.Context, category *domain.Category) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*domain.Category, error)
	List(ctx context.Context) ([]*domain.Category, error)
}

// BannerRepository defines the interface for banner data access
type BannerRepository interface {
	Create(ctx context.Context, banner *domain.Banner) error
	Update(ctx context.Context, banner *domain.Banner) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*domain.Banner, error)
	List(ctx context.Context, activeOnly bool) ([]*domain.Banner, error)
}

// AddressRepository stores per-user delivery addresses. Writing an address with
// IsDefault set clears the flag on the user's other addresses in the same write.
type AddressRepository interface {
	// Create makes the address the default when it is the user's first, within the
	// same write.
	Create(ctx context.Context, address *domain.Address) error
	Update(ctx context.Context, address *domain.Address) error
	Delete(ctx context.Context, userID, id string) error
	FindByID(ctx context.Context, userID, id string) (*domain.Address, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Address, error)
	SetDefault(ctx context.Context, userID, id string) error
}

// OrderRepository stores per-user orders.
//
// Create is atomic: it writes the order and takes every line's quantity from the
// matching variant's stock, or does neither. It fails with
// domain.ErrInsufficientStock or domain.ErrVariantNotFound when a line cannot be
// reserved.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, userID, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Order, error)
	ListAll(ctx context.Context) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, userID, id string, status domain.OrderStatus) error
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// notifier announces committed writes. A failed announcement is logged and does
// not fail the write that triggered it.
type notifier struct {
	publisher realtime.Publisher
	logger    *zap.Logger
}

func (n notifier) changed(ctx context.Context, topics ...realtime.Topic) {
	if err := n.publisher.Publish(ctx, topics...); err != nil {
		n.logger.Warn("Failed to publish change notification", zap.Error(err))
	}
}

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func rowsAffected(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// now is the write timestamp, at the precision PostgreSQL stores.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

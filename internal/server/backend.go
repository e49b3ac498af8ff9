package server

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/firebase"
	"storefront/internal/realtime"
	"storefront/internal/repository"
	fsrepo "storefront/internal/repository/firestore"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Backend is the storage, change feed and token verifier the handlers run on,
// selected by STORE_DRIVER and AUTH_PROVIDER.
type Backend struct {
	Products   repository.ProductRepository
	Categories repository.CategoryRepository
	Banners    repository.BannerRepository
	Addresses  repository.AddressRepository
	Orders     repository.OrderRepository
	Feed       realtime.Feed
	Verifier   auth.Verifier

	health  func(ctx context.Context) map[string]string
	closers []func() error
}

// OpenBackend connects to the configured store. Postgres writes are announced
// over Redis pub/sub; Firestore changes come from snapshot listeners.
func OpenBackend(ctx context.Context, cfg *config.Config, rdb *redis.Client, logger *zap.Logger) (*Backend, error) {
	b := &Backend{}

	var fb *firebase.Clients
	if cfg.Store.Driver == config.StoreDriverFirestore || cfg.Auth.Provider == config.AuthProviderFirebase {
		clients, err := firebase.New(ctx, cfg.Firebase, logger)
		if err != nil {
			return nil, err
		}
		fb = clients
		b.closers = append(b.closers, clients.Close)
	}

	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, db.Close)

		if err := database.RunMigrations(ctx, db.DB(), cfg.Database.MigrationsDir, logger); err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		hub := realtime.NewHub(rdb, cfg.Redis.ChannelPrefix, logger)
		b.Products = repository.NewProductRepository(db.DB(), hub, logger)
		b.Categories = repository.NewCategoryRepository(db.DB(), hub, logger)
		b.Banners = repository.NewBannerRepository(db.DB(), hub, logger)
		b.Addresses = repository.NewAddressRepository(db.DB(), hub, logger)
		b.Orders = repository.NewOrderRepository(db.DB(), hub, logger)
		b.Feed = hub
		b.health = db.Health

	case config.StoreDriverFirestore:
		client := fb.Firestore
		b.Products = fsrepo.NewProductRepositoryFS(client)
		b.Categories = fsrepo.NewCategoryRepositoryFS(client)
		b.Banners = fsrepo.NewBannerRepositoryFS(client)
		b.Addresses = fsrepo.NewAddressRepositoryFS(client)
		b.Orders = fsrepo.NewOrderRepositoryFS(client)
		b.Feed = fsrepo.NewFeedFS(client, logger)
		b.health = func(ctx context.Context) map[string]string {
			if err := fb.Ping(ctx); err != nil {
				return map[string]string{"status": "down", "error": err.Error()}
			}
			return map[string]string{"status": "up"}
		}

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	switch cfg.Auth.Provider {
	case config.AuthProviderJWT:
		b.Verifier = auth.NewJWTVerifier(cfg.Auth.JWTSecret)
	case config.AuthProviderFirebase:
		if fb.Auth == nil {
			b.Close()
			return nil, errors.New("firebase auth client unavailable")
		}
		b.Verifier = auth.NewFirebaseVerifier(fb.Auth)
	}

	logger.Info("Backend ready",
		zap.String("store", cfg.Store.Driver),
		zap.String("auth", cfg.Auth.Provider),
	)
	return b, nil
}

// Health reports the store's status.
func (b *Backend) Health(ctx context.Context) map[string]string {
	if b.health == nil {
		return map[string]string{"status": "unknown"}
	}
	return b.health(ctx)
}

// Close releases connections in reverse order of opening.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	b.closers = nil
	return errors.Join(errs...)
}

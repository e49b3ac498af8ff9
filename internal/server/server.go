package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/config"
	custommiddleware "storefront/internal/middleware"
	"storefront/internal/payment"
	"storefront/internal/prefs"
	"storefront/internal/realtime"
	"storefront/internal/service"
	"storefront/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config  *config.Config
	logger  *zap.Logger
	backend *Backend
	redis   *redis.Client
	streams *realtime.Registry
}

func NewServer(cfg *config.Config, logger *zap.Logger, backend *Backend, rdb *redis.Client) *Server {
	router := chi.NewRouter()
	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.CORSOrigins, !cfg.IsProduction()))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		store := backend.Health(r.Context())
		cache := "up"
		if err := rdb.Ping(r.Context()).Err(); err != nil {
			cache = "down"
		}
		if store["status"] != "up" || cache != "up" {
			status = http.StatusServiceUnavailable
		}
		custommiddleware.RespondWithJSON(w, status, map[string]interface{}{
			"store": store,
			"redis": cache,
		})
	})

	streams := realtime.NewRegistry()
	carts := cart.NewRegistry()

	// Services
	catalogService := service.NewCatalogService(backend.Products, backend.Categories, backend.Banners)
	addressService := service.NewAddressService(backend.Addresses, backend.Feed, logger)
	orderService := service.NewOrderService(backend.Orders, backend.Feed, cfg.Checkout.DeliveryDays, cfg.Checkout.CurrencySymbol, logger)

	var (
		gateway  checkout.Gateway
		verifier checkout.SignatureVerifier
	)
	if cfg.Payment.KeyID != "" && cfg.Payment.KeySecret != "" {
		gateway = payment.NewClient(cfg.Payment)
		verifier = payment.NewVerifier(cfg.Payment.KeySecret)
	} else {
		logger.Warn("Payment gateway not configured, online checkout disabled")
	}
	orchestrator := checkout.NewOrchestrator(
		carts,
		backend.Addresses,
		backend.Orders,
		gateway,
		verifier,
		checkout.PolicyFromConfig(cfg.Checkout, cfg.Payment),
		logger,
	)

	// Middleware
	authMiddleware := custommiddleware.AuthMiddleware(backend.Verifier, logger)
	adminMiddleware := custommiddleware.RequireAdmin(logger)
	checkoutLimiter := custommiddleware.RateLimitMiddleware(rdb, custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.Requests,
		Window:            cfg.RateLimit.Window,
		KeyPrefix:         "ratelimit:checkout",
	}, logger)

	// Routes
	transport.NewCatalogHandler(catalogService, logger).RegisterRoutes(router, authMiddleware, adminMiddleware)
	transport.NewCartHandler(carts, catalogService, logger).RegisterRoutes(router, authMiddleware)
	transport.NewCheckoutHandler(orchestrator, carts, logger).RegisterRoutes(router, authMiddleware, checkoutLimiter)
	transport.NewOrderHandler(orderService, streams, logger).RegisterRoutes(router, authMiddleware, adminMiddleware)
	transport.NewAddressHandler(addressService, streams, logger).RegisterRoutes(router, authMiddleware)
	transport.NewAccountHandler(prefs.NewStore(rdb, cfg.Prefs.Secret), logger).RegisterRoutes(router, authMiddleware)

	// Open event streams end when the server shuts down.
	baseCtx, cancelStreams := context.WithCancel(context.Background())

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			BaseContext:  func(net.Listener) context.Context { return baseCtx },
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config:  cfg,
		logger:  logger,
		backend: backend,
		redis:   rdb,
		streams: streams,
	}
	server.RegisterOnShutdown(cancelStreams)

	return server
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources", zap.Int("open_streams", s.streams.Count()))

	s.streams.Close()

	if err := s.backend.Close(); err != nil {
		s.logger.Error("Failed to close backend", zap.Error(err))
	}
	if err := s.redis.Close(); err != nil {
		s.logger.Error("Failed to close redis client", zap.Error(err))
	}

	s.logger.Sync()
	return nil
}

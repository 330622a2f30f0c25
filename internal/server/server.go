package server

import (
	"fmt"
	"net/http"
	"time"

	"lightning-pos/internal/config"
	"lightning-pos/internal/gateway"
	custommiddleware "lightning-pos/internal/middleware"
	"lightning-pos/internal/storage"
	"lightning-pos/internal/store"
	"lightning-pos/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	kv     *storage.RedisKV
}

func NewServer(cfg *config.Config, logger *zap.Logger, kv *storage.RedisKV, gw gateway.Gateway) *Server {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.CORSMiddleware(nil, cfg.Server.Env == "development"))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := kv.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"degraded","storage":"unreachable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Initialize stores over the shared KV collaborator
	catalogStore := store.NewCatalogStore(kv)
	basketStore := store.NewBasketStore(kv)

	// Initialize handlers
	catalogHandler := transport.NewCatalogHandler(catalogStore, logger)
	basketHandler := transport.NewBasketHandler(basketStore, catalogStore, logger)
	checkoutHandler := transport.NewCheckoutHandler(gw, basketStore, cfg.Checkout.PollInterval, logger)

	// Operator auth for catalog mutations
	authMiddleware := custommiddleware.OperatorAuthMiddleware(cfg.Auth.OperatorSecret, logger)

	// Rate limit checkout issuance
	rateLimiter := custommiddleware.RateLimitMiddleware(kv.Client(), custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
		Window:            cfg.RateLimit.Window,
		KeyPrefix:         "ratelimit:checkout",
	}, logger)

	// Register routes
	catalogHandler.RegisterRoutes(router, authMiddleware)
	basketHandler.RegisterRoutes(router)
	checkoutHandler.RegisterRoutes(router, rateLimiter)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		kv:     kv,
	}

	return server
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.kv != nil {
		if err := s.kv.Close(); err != nil {
			s.logger.Error("Failed to close storage connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}

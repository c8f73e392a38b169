package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/layer-3/swapgate/adapters/events"
	"github.com/layer-3/swapgate/adapters/siwe"
	"github.com/layer-3/swapgate/adapters/store"
	"github.com/layer-3/swapgate/adapters/tokenizer"
	"github.com/layer-3/swapgate/config"
	"github.com/layer-3/swapgate/observability"
	"github.com/layer-3/swapgate/ports"
	"github.com/layer-3/swapgate/service"
	transporthttp "github.com/layer-3/swapgate/transport/http"
	"github.com/layer-3/swapgate/transport/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("swapgate stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	signKey, err := loadSigningKey(cfg.Auth.SigningKeyPEM, logger)
	if err != nil {
		return err
	}

	// Parse Redis URL and create client
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return err
	}
	redisClient := redis.NewClient(opts)
	defer redisClient.Close()

	users, closeUsers, err := openUsers(ctx, cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer closeUsers()

	wmLogger := observability.NewWatermillLogger(logger)
	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: redisClient,
		},
		wmLogger,
	)
	if err != nil {
		return err
	}
	defer publisher.Close()

	// Every gateway instance needs every progress event for its own sockets.
	group := cfg.Events.ConsumerGroup
	if group == "" {
		group = cfg.App.Name + "-" + ulid.Make().String()
	}
	subscriber, err := redisstream.NewSubscriber(
		redisstream.SubscriberConfig{
			Client:        redisClient,
			ConsumerGroup: group,
		},
		wmLogger,
	)
	if err != nil {
		return err
	}
	defer subscriber.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	authService := service.NewAuthService(
		service.AuthConfig{
			NonceTTL:       cfg.Auth.NonceTTL,
			AccessTTL:      cfg.Auth.AccessTTL,
			RefreshGrace:   cfg.Auth.RefreshGrace,
			ClockSkew:      cfg.Auth.ClockSkew,
			AllowedDomains: cfg.Auth.AllowedDomains,
			AllowedChains:  cfg.Auth.AllowedChains,
		},
		service.AuthDependencies{
			Tokenizer: tokenizer.NewJWTTokenizer(signKey, cfg.Auth.Issuer, cfg.Auth.BcryptCost),
			Verifier:  siwe.NewVerifier(),
			Nonces:    store.NewRedisCache(redisClient),
			Users:     users,
			Events:    events.NewWatermillPublisher(publisher),
			Metrics:   metrics,
		},
	)

	conns := ws.NewConnections(cfg.Realtime.WriteTimeout)
	roomService := service.NewRoomService(
		store.NewRedisRooms(redisClient, cfg.Realtime.RoomPrefix),
		conns,
		cfg.Realtime.FanOut,
		metrics,
	)
	gateway := ws.NewGateway(roomService, conns, logger, cfg.Realtime.AllowedOrigins)

	progress := events.NewProgressSubscriber(subscriber, roomService, logger)
	go func() {
		if err := progress.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("progress subscriber stopped", zap.Error(err))
		}
	}()

	router := transporthttp.SetupRouter(transporthttp.RouteConfig{
		Auth:     authService,
		Gateway:  gateway,
		Gatherer: registry,
		Logger:   logger,
	})

	server := &http.Server{
		Addr:              cfg.App.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// loadSigningKey parses the configured PEM key. Without one, an ephemeral
// key is generated and tokens do not survive a restart.
func loadSigningKey(keyPEM string, logger *zap.Logger) (*ecdsa.PrivateKey, error) {
	if keyPEM != "" {
		return jwt.ParseECPrivateKeyFromPEM([]byte(keyPEM))
	}
	logger.Warn("no signing key configured, generating an ephemeral one")
	return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
}

func openUsers(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (ports.UserRepository, func(), error) {
	if cfg.DSN == "" {
		logger.Warn("POSTGRES_DSN not set, using in-memory user store")
		return store.NewMemoryUsers(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	if cfg.RunMigrations {
		if err := store.RunMigrations(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, nil, err
		}
	}
	return store.NewPostgresUsers(pool), pool.Close, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ahinestrog/mybookstore-cart/internal/cache"
	"github.com/ahinestrog/mybookstore-cart/internal/catalog"
	"github.com/ahinestrog/mybookstore-cart/internal/config"
	"github.com/ahinestrog/mybookstore-cart/internal/events"
	"github.com/ahinestrog/mybookstore-cart/internal/grpcserver"
	"github.com/ahinestrog/mybookstore-cart/internal/httpapi"
	"github.com/ahinestrog/mybookstore-cart/internal/identity"
	"github.com/ahinestrog/mybookstore-cart/internal/service"
	"github.com/ahinestrog/mybookstore-cart/internal/store"
)

func main() {
	cfg := config.LoadConfig()
	setupLogger(cfg)

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("cart service stopped")
	}
	log.Info().Msg("bye")
}

func run(cfg config.Config) error {
	log.Info().
		Str("http", cfg.HTTPAddr).
		Str("grpc", cfg.GRPCAddr).
		Str("driver", cfg.DBDriver).
		Bool("redis", cfg.RedisAddr != "").
		Bool("rabbit", cfg.RabbitURL != "").
		Bool("jwt", cfg.JWTSecret != "").
		Msg("starting cart service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// DB + migrations + optional seed
	db, err := store.Open(ctx, cfg.DBDriver, cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()
	if err := store.Migrate(db, cfg.DBDriver); err != nil {
		return err
	}
	if cfg.SeedCatalog {
		if err := store.Seed(ctx, db, cfg.DBDriver); err != nil {
			return err
		}
		log.Info().Msg("seeded catalog")
	}

	books := catalog.NewCachedReader(
		catalog.NewSQLReader(db, cfg.DBDriver),
		cfg.CatalogCacheSize, cfg.CatalogCacheTTL,
	)

	var counts cache.CountCache = cache.Noop{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis unreachable, count cache will miss until it recovers")
		}
		counts = cache.NewBreakerCache(cache.NewRedisCache(rdb), "redis-count-cache")
	}

	rabbit, err := events.NewRabbit(cfg.RabbitURL, cfg.RabbitExchange)
	if err != nil {
		log.Warn().Err(err).Msg("rabbit unavailable, cart events disabled")
		rabbit = nil
	}
	defer rabbit.Close()

	svc := service.NewCartService(store.NewSQLStore(db, cfg.DBDriver), books, counts, rabbit, service.Options{
		TxTimeout:    cfg.TxTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	})

	httpSrv := &http.Server{
		Handler:           httpapi.NewRouter(httpapi.NewCartHandler(svc, identity.New(cfg.JWTSecret)), log.Logger, cfg.CORSOrigins),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	httpLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return err
	}
	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		_ = httpLis.Close()
		return err
	}

	return serve(ctx, httpSrv, httpLis, grpcserver.New(), grpcLis)
}

// serve runs both servers until ctx ends or one of them fails, then shuts
// both down. A server failure is returned; a signal-driven stop is not.
func serve(ctx context.Context, httpSrv *http.Server, httpLis net.Listener, ops *grpcserver.Server, grpcLis net.Listener) error {
	errc := make(chan error, 2)

	go func() {
		log.Info().Str("addr", httpLis.Addr().String()).Msg("HTTP listening")
		if err := httpSrv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		log.Info().Str("addr", grpcLis.Addr().String()).Msg("gRPC listening")
		if err := ops.GRPC.Serve(grpcLis); err != nil {
			errc <- fmt.Errorf("grpc server: %w", err)
		}
	}()
	ops.SetServing(true)

	var err error
	select {
	case <-ctx.Done():
		log.Warn().Msg("shutting down...")
	case err = <-errc:
		log.Error().Err(err).Msg("server failed, shutting down")
	}

	ops.SetServing(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownGrace)
	defer cancel()
	if serr := httpSrv.Shutdown(shutdownCtx); serr != nil {
		log.Error().Err(serr).Msg("http shutdown")
	}
	ops.Stop()
	return err
}

func setupLogger(cfg config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.Dev() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.With().Str("service", cfg.ServiceName).Logger()
}

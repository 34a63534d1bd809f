// Command catalog-proxy serves paginated catalog pages over HTTP for
// browser front-ends.
package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Sternrassler/product-catalog-client/internal/config"
	"github.com/Sternrassler/product-catalog-client/internal/tracing"
	"github.com/Sternrassler/product-catalog-client/pkg/catalog"
	"github.com/Sternrassler/product-catalog-client/pkg/client"
	"github.com/Sternrassler/product-catalog-client/pkg/logging"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
)

const serviceName = "catalog-proxy"

func init() {
	// Prices are served as JSON numbers, like the upstream catalog.
	decimal.MarshalJSONWithoutQuotes = true
}

func main() {
	fx.New(
		fx.NopLogger,
		fx.Provide(
			loadConfig,
			newRedisClient,
			newCatalogClient,
			newStore,
			newAPI,
			newHTTPServer,
		),
		fx.Invoke(
			SetupLogging,
			SetupTracer,
			StartServer,
		),
	).Run()
}

func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// --- Providers ---

// newRedisClient returns nil when REDIS_URL is unset, which disables the
// shared quota gate.
func newRedisClient(lc fx.Lifecycle, cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("connect to redis: %w", err)
			}
			log.Info().Str("addr", opts.Addr).Msg("Connected to Redis")
			return nil
		},
		OnStop: func(context.Context) error {
			return rdb.Close()
		},
	})

	return rdb, nil
}

func newCatalogClient(lc fx.Lifecycle, cfg *config.Config, rdb *redis.Client) (*client.Client, error) {
	clientCfg := client.DefaultConfig(cfg.UserAgent)
	clientCfg.Timeout = cfg.Timeout
	clientCfg.Redis = rdb

	c, err := client.New(clientCfg)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return c.Close()
		},
	})
	return c, nil
}

func newStore(cfg *config.Config, c *client.Client) (*catalog.Store, error) {
	return catalog.NewStore(catalog.Config{
		BaseURI:  cfg.BaseURI,
		Fetcher:  c,
		Notifier: catalog.NewLogNotifier(logging.NewLogger("catalog-notify")),
	})
}

func newHTTPServer(cfg *config.Config, a *api) *http.Server {
	return &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: a.routes(cfg.CORSOrigins),
	}
}

// --- Invokers ---

func SetupLogging(cfg *config.Config) {
	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
	})
}

func SetupTracer(lc fx.Lifecycle, cfg *config.Config) error {
	shutdown, err := tracing.InitTracer(context.Background(), serviceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize tracer")
		return err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Shutting down tracer provider")
			return shutdown(ctx)
		},
	})
	return nil
}

func StartServer(lc fx.Lifecycle, cfg *config.Config, server *http.Server) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				log.Info().
					Str("address", server.Addr).
					Str("base_uri", cfg.BaseURI).
					Int("page_size", cfg.PageSize).
					Bool("rate_limit_gate", cfg.RedisURL != "").
					Msg("Starting catalog proxy")
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error().Err(err).Msg("HTTP server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	})
}

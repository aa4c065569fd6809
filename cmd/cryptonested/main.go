package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/ZILLABB/cryptonested-sub001/internal/dashboard"
	"github.com/ZILLABB/cryptonested-sub001/internal/marketdata"
	"github.com/ZILLABB/cryptonested-sub001/internal/news"
	"github.com/ZILLABB/cryptonested-sub001/internal/portfolio"
	"github.com/ZILLABB/cryptonested-sub001/internal/server"
	"github.com/ZILLABB/cryptonested-sub001/internal/staking"
	"github.com/ZILLABB/cryptonested-sub001/internal/stream"
	"github.com/ZILLABB/cryptonested-sub001/pkg/cache"
	"github.com/ZILLABB/cryptonested-sub001/pkg/coingecko"
	"github.com/ZILLABB/cryptonested-sub001/pkg/config"
	"github.com/ZILLABB/cryptonested-sub001/pkg/database"
	"github.com/ZILLABB/cryptonested-sub001/pkg/events"
	"github.com/ZILLABB/cryptonested-sub001/pkg/logger"
	"github.com/ZILLABB/cryptonested-sub001/pkg/middleware"
	"github.com/ZILLABB/cryptonested-sub001/pkg/telemetry"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("config")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init("cryptonested", os.Getenv("LOG_LEVEL"), os.Getenv("LOG_PRETTY") != "false")
	logger.Info().Msg("Starting CryptoNested")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	tp, err := telemetry.Init(ctx, &telemetry.Config{
		ServiceName:  "cryptonested",
		CollectorURL: cfg.Telemetry.CollectorURL,
		Environment:  cfg.Telemetry.Environment,
		Enabled:      cfg.Telemetry.Enabled,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize telemetry")
	}

	// Persistence: Postgres when enabled, in-memory stores otherwise.
	var (
		portfolioStore portfolio.Store = portfolio.NewMemoryStore()
		stakingStore   staking.Store   = staking.NewMemoryStore(nil)
	)
	if cfg.Database.Enabled {
		pool, err := database.NewPool(ctx, &database.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			Database: cfg.Database.Database,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer pool.Close()
		portfolioStore = portfolio.NewPostgres(pool)
		stakingStore = staking.NewPostgres(pool)
		logger.Info().Str("host", cfg.Database.Host).Msg("Connected to Postgres")
	} else {
		logger.Warn().Msg("Database disabled, using in-memory stores")
	}

	// Market data provider: mock when configured, otherwise CoinGecko over
	// a traced HTTP client.
	var provider coingecko.Provider
	if cfg.MarketData.Mock {
		logger.Warn().Msg("Using mock market data provider")
		provider = coingecko.NewMockClient()
	} else {
		provider = coingecko.NewClient(&coingecko.Config{
			BaseURL:    cfg.MarketData.BaseURL,
			APIKey:     cfg.MarketData.APIKey,
			Timeout:    cfg.MarketData.Timeout,
			HTTPClient: telemetry.NewTracedHTTPClient(cfg.MarketData.Timeout),
		})
	}

	// Optional redis keeps last-known-good market payloads across restarts.
	var gatewayOpts []marketdata.GatewayOption
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		gatewayOpts = append(gatewayOpts, marketdata.WithLastGood(cache.NewRedis(redisClient, "cryptonested")))
		logger.Info().Str("host", cfg.Redis.Host).Msg("Redis last-known-good store enabled")
	}
	gateway := marketdata.NewGateway(provider, cache.NewMemory(), gatewayOpts...)

	// Optional kafka carries portfolio and staking lifecycle events.
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Kafka.Enabled {
		kafkaPublisher := events.NewKafkaPublisher(cfg.Kafka.Brokers)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Msg("Kafka publisher enabled")
	}

	portfolioSvc := portfolio.NewService(portfolioStore, gateway, publisher)
	stakingSvc := staking.NewService(stakingStore, publisher)
	newsClient := news.NewClient(&news.Config{
		BaseURL:    cfg.News.BaseURL,
		Timeout:    cfg.News.Timeout,
		HTTPClient: telemetry.NewTracedHTTPClient(cfg.News.Timeout),
	})
	aggregator := dashboard.NewAggregator(gateway, newsClient, portfolioSvc, stakingSvc, cache.NewMemory())

	// Live price stream and the websocket fan-out hub.
	transport := stream.NewWSTransport(cfg.Stream.URL, cfg.Stream.ReconnectInterval)
	manager := stream.NewManager(transport)
	defer manager.Close()

	hub := server.NewHub(manager)
	go hub.Run()
	defer hub.Stop()

	srv := server.New(gateway, portfolioSvc, stakingSvc, aggregator, hub,
		server.WithRateLimit(middleware.RateLimitConfig{
			Max:      cfg.Server.RateLimitMax,
			Duration: cfg.Server.RateLimitWindow,
		}))

	// Scheduled background passes: valuation snapshots and reward accrual.
	go runScheduler(ctx, cfg.Portfolio.SnapshotInterval, "portfolio snapshots", portfolioSvc.SnapshotAll)
	go runScheduler(ctx, cfg.Staking.AccrualInterval, "reward accrual", stakingSvc.AccrueAll)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		logger.Info().Str("addr", addr).Msg("Server listening")
		if err := srv.Listen(addr); err != nil {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down CryptoNested")

	if err := srv.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("Error during server shutdown")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error during telemetry shutdown")
	}
}

// runScheduler runs fn on the given cadence until the context ends.
func runScheduler(ctx context.Context, interval time.Duration, name string, fn func(context.Context) error) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				logger.Error().Err(err).Str("job", name).Msg("Scheduled job failed")
			}
		}
	}
}

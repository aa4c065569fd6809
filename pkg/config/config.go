package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	MarketData MarketDataConfig `mapstructure:"market_data"`
	News       NewsConfig       `mapstructure:"news"`
	Stream     StreamConfig     `mapstructure:"stream"`
	Portfolio  PortfolioConfig  `mapstructure:"portfolio"`
	Staking    StakingConfig    `mapstructure:"staking"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// RateLimitMax requests per RateLimitWindow per client IP. Zero
	// disables the limiter.
	RateLimitMax    int           `mapstructure:"rate_limit_max"`
	RateLimitWindow time.Duration `mapstructure:"rate_limit_window"`
}

type DatabaseConfig struct {
	// Enabled switches persistence from in-memory stores to Postgres.
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

type RedisConfig struct {
	// Enabled switches the shared cache from the in-process store to redis.
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	GroupID string   `mapstructure:"group_id"`
}

type MarketDataConfig struct {
	// BaseURL points at a CoinGecko-compatible API.
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
	// Mock serves deterministic local data instead of calling the API.
	Mock bool `mapstructure:"mock"`
}

type NewsConfig struct {
	// BaseURL of the headline provider. Empty serves fallback headlines.
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type StreamConfig struct {
	// URL of the upstream price stream (Binance-style combined stream).
	URL               string        `mapstructure:"url"`
	ReconnectInterval time.Duration `mapstructure:"reconnect_interval"`
}

type PortfolioConfig struct {
	// SnapshotInterval is the cadence of scheduled valuation snapshots.
	SnapshotInterval time.Duration `mapstructure:"snapshot_interval"`
}

type StakingConfig struct {
	// AccrualInterval is the cadence of the scheduled reward accrual sweep.
	AccrualInterval time.Duration `mapstructure:"accrual_interval"`
}

type TelemetryConfig struct {
	ServiceName  string `mapstructure:"service_name"`
	CollectorURL string `mapstructure:"collector_url"`
	Environment  string `mapstructure:"environment"`
	Enabled      bool   `mapstructure:"enabled"`
}

func Load(configName string) (*Config, error) {
	v := viper.New()

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/cryptonested/")

	v.SetEnvPrefix("CRYPTONESTED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit_max", 300)
	v.SetDefault("server.rate_limit_window", time.Minute)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})

	v.SetDefault("market_data.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("market_data.timeout", 15*time.Second)
	v.SetDefault("market_data.mock", false)

	v.SetDefault("news.timeout", 15*time.Second)

	v.SetDefault("stream.url", "wss://stream.binance.com:9443/ws")
	v.SetDefault("stream.reconnect_interval", 5*time.Second)

	v.SetDefault("portfolio.snapshot_interval", time.Hour)
	v.SetDefault("staking.accrual_interval", time.Hour)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.environment", "dev")
}

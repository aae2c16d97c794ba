// Package config loads the application configuration from the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Config is the complete application configuration.
type Config struct {
	Server  ServerConfig  `env:", prefix=SERVER_"`
	Binance BinanceConfig `env:", prefix=BINANCE_"`
	Redis   RedisConfig   `env:", prefix=REDIS_"`
	Price   PriceConfig   `env:", prefix=PRICE_"`
	Support SupportConfig `env:", prefix=SUPPORT_"`
	Stream  StreamConfig  `env:", prefix=STREAM_"`
	Log     LogConfig     `env:", prefix=LOG_"`

	JWTSecret     string   `env:"AUTH_JWT_SECRET"`
	OfflineCSVDir string   `env:"OFFLINE_CSV_DIR"`
	Symbols       []string `env:"SYMBOLS, default=BTCUSDT,ETHUSDT,BNBUSDT,SOLUSDT"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `env:"HOST, default=0.0.0.0"`
	Port         int           `env:"PORT, default=8080"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT, default=15s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT, default=15s"`
}

// Addr returns host:port for http.Server.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// BinanceConfig holds Binance REST settings.
type BinanceConfig struct {
	BaseURL           string        `env:"BASE_URL, default=https://api.binance.com"`
	APIKey            string        `env:"API_KEY"`
	SecretKey         string        `env:"SECRET_KEY"`
	Timeout           time.Duration `env:"TIMEOUT, default=10s"`
	RequestsPerMinute int           `env:"REQUESTS_PER_MINUTE, default=1200"`
}

// RedisConfig holds the shared candle cache settings. An empty Host disables Redis.
type RedisConfig struct {
	Host      string        `env:"HOST"`
	Port      int           `env:"PORT, default=6379"`
	Password  string        `env:"PASSWORD"`
	DB        int           `env:"DB, default=0"`
	CandleTTL time.Duration `env:"CANDLE_TTL, default=1m"`
}

// Enabled reports whether a Redis host is configured.
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

// Addr returns host:port of the Redis server.
func (r RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// PriceConfig holds chart data settings.
type PriceConfig struct {
	CacheTTL          time.Duration `env:"CACHE_TTL, default=5m"`
	VolumeProfileBins int           `env:"VOLUME_PROFILE_BINS, default=50"`
	HistoryLimit      int           `env:"HISTORY_LIMIT, default=500"`
}

// SupportConfig holds detection and staleness settings.
type SupportConfig struct {
	MinTouches          int           `env:"MIN_TOUCHES, default=3"`
	MinDistancePercent  float64       `env:"MIN_DISTANCE_PERCENT, default=0.5"`
	LocalMinWindow      int           `env:"LOCAL_MIN_WINDOW, default=20"`
	TouchTolerance      float64       `env:"TOUCH_TOLERANCE, default=0.001"`
	UpdateInterval      time.Duration `env:"UPDATE_INTERVAL, default=15m"`
	RetryBackoff        time.Duration `env:"RETRY_BACKOFF, default=30s"`
	MaxDistancePercent  float64       `env:"MAX_DISTANCE_PERCENT, default=5.0"`
	CandleInterval      string        `env:"CANDLE_INTERVAL, default=1h"`
	CandleLimit         int           `env:"CANDLE_LIMIT, default=500"`
	PlaceholderFallback bool          `env:"PLACEHOLDER_FALLBACK, default=false"`
}

// StreamConfig holds websocket push settings.
type StreamConfig struct {
	TickInterval     time.Duration `env:"TICK_INTERVAL, default=1s"`
	DefaultPair      string        `env:"DEFAULT_PAIR, default=BTCUSDT"`
	DefaultTimeframe string        `env:"DEFAULT_TIMEFRAME, default=1h"`
}

// LogConfig holds logging settings. An empty File logs to stdout only.
type LogConfig struct {
	Level      string `env:"LEVEL, default=info"`
	Format     string `env:"FORMAT, default=text"`
	File       string `env:"FILE"`
	MaxSizeMB  int    `env:"MAX_SIZE_MB, default=100"`
	MaxBackups int    `env:"MAX_BACKUPS, default=3"`
	MaxAgeDays int    `env:"MAX_AGE_DAYS, default=28"`
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load(ctx context.Context, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// a missing file is fine
		_ = godotenv.Load(f)
	}
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads the configuration from l and validates it.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	syms := make([]string, 0, len(c.Symbols))
	for _, s := range c.Symbols {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			syms = append(syms, s)
		}
	}
	c.Symbols = syms
	c.Stream.DefaultPair = strings.ToUpper(c.Stream.DefaultPair)
	c.Log.Level = strings.ToLower(c.Log.Level)
	c.Log.Format = strings.ToLower(c.Log.Format)
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	var errs []error
	positive := func(name string, v float64) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	positive("SERVER_PORT", float64(c.Server.Port))
	positive("PRICE_CACHE_TTL", float64(c.Price.CacheTTL))
	positive("PRICE_VOLUME_PROFILE_BINS", float64(c.Price.VolumeProfileBins))
	positive("PRICE_HISTORY_LIMIT", float64(c.Price.HistoryLimit))
	positive("SUPPORT_MIN_TOUCHES", float64(c.Support.MinTouches))
	positive("SUPPORT_MIN_DISTANCE_PERCENT", c.Support.MinDistancePercent)
	positive("SUPPORT_LOCAL_MIN_WINDOW", float64(c.Support.LocalMinWindow))
	positive("SUPPORT_TOUCH_TOLERANCE", c.Support.TouchTolerance)
	positive("SUPPORT_UPDATE_INTERVAL", float64(c.Support.UpdateInterval))
	positive("SUPPORT_RETRY_BACKOFF", float64(c.Support.RetryBackoff))
	positive("SUPPORT_MAX_DISTANCE_PERCENT", c.Support.MaxDistancePercent)
	positive("SUPPORT_CANDLE_LIMIT", float64(c.Support.CandleLimit))
	positive("STREAM_TICK_INTERVAL", float64(c.Stream.TickInterval))

	if c.Support.CandleLimit > 0 && c.Support.LocalMinWindow > 0 && c.Support.CandleLimit < 2*c.Support.LocalMinWindow+1 {
		errs = append(errs, fmt.Errorf("SUPPORT_CANDLE_LIMIT %d is too short for SUPPORT_LOCAL_MIN_WINDOW %d", c.Support.CandleLimit, c.Support.LocalMinWindow))
	}
	if len(c.Symbols) == 0 {
		errs = append(errs, errors.New("SYMBOLS must list at least one pair"))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q must be text or json", c.Log.Format))
	}
	return errors.Join(errs...)
}

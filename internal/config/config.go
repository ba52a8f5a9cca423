// Package config contains everything related to configuration
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/j-veylop/energy-kpi/internal/cache"
)

// EnvPrefix prefixes every environment variable, e.g. EKPI_HTTP_ADDR for http.addr.
const EnvPrefix = "EKPI"

// Cache backends.
const (
	CacheMemory = cache.BackendMemory
	CacheRedis  = cache.BackendRedis
	CacheNone   = cache.BackendNone
)

// Config holds the application configuration.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Log       LogConfig       `mapstructure:"log"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Redis     RedisConfig     `mapstructure:"redis"`
	KPI       KPIConfig       `mapstructure:"kpi"`
	Factors   FactorsConfig   `mapstructure:"factors"`
	Prices    PricesConfig    `mapstructure:"prices"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Influx    InfluxConfig    `mapstructure:"influx"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
}

// DatabaseConfig locates the sqlite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CacheConfig configures the KPI result cache.
type CacheConfig struct {
	Backend      string `mapstructure:"backend"`
	TTLSeconds   int    `mapstructure:"ttl_seconds"`
	SingleFlight bool   `mapstructure:"singleflight"`
}

// RedisConfig configures the Redis cache backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KPIConfig holds defaults used by the KPI formulas.
type KPIConfig struct {
	DefaultSource       string  `mapstructure:"default_source"`
	DefaultGridPriceEUR float64 `mapstructure:"default_grid_price_eur_per_kwh"`
}

// FactorsConfig locates the emission factor seed file.
type FactorsConfig struct {
	Path  string `mapstructure:"path"`
	Watch bool   `mapstructure:"watch"`
}

// PricesConfig configures the SMARD grid price poller.
type PricesConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	BaseURL      string        `mapstructure:"base_url"`
	Filter       string        `mapstructure:"filter"`
	Region       string        `mapstructure:"region"`
	Resolution   string        `mapstructure:"resolution"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Lookback     time.Duration `mapstructure:"lookback"`
}

// KafkaConfig configures the reading consumer.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	GroupID      string        `mapstructure:"group_id"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

// InfluxConfig configures the optional InfluxDB mirror of ingested readings.
type InfluxConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Token   string `mapstructure:"token"`
	Org     string `mapstructure:"org"`
	Bucket  string `mapstructure:"bucket"`
}

// DashboardConfig configures the terminal dashboard.
type DashboardConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	Window          time.Duration `mapstructure:"window"`
	Interval        string        `mapstructure:"interval"`
	AutarkyAlert    float64       `mapstructure:"autarky_alert"`
	Notify          bool          `mapstructure:"notify"`
}

// Default values
const (
	defaultHTTPAddr     = ":3000"
	defaultGridPriceEUR = 0.30
	defaultPollInterval = time.Hour
	defaultBatchSize    = 500
	defaultBatchTimeout = 2 * time.Second
	defaultRefresh      = 30 * time.Second
)

// Load reads configuration from .env files, an optional YAML config file and
// EKPI_* environment variables, in increasing order of precedence. An empty
// configFile searches the default locations.
func Load(configFile string) (*Config, error) {
	// Try loading .env from multiple locations
	for _, path := range getEnvPaths() {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if dir := configDir(); dir != "" {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Ensure database directory exists
	if err := ensureDir(filepath.Dir(cfg.Database.Path)); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", getDefaultDatabasePath())

	v.SetDefault("http.addr", defaultHTTPAddr)
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("cache.backend", CacheMemory)
	v.SetDefault("cache.ttl_seconds", cache.DefaultTTLSeconds)
	v.SetDefault("cache.singleflight", false)

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kpi.default_source", "IPCC")
	v.SetDefault("kpi.default_grid_price_eur_per_kwh", defaultGridPriceEUR)

	v.SetDefault("factors.path", "")
	v.SetDefault("factors.watch", true)

	v.SetDefault("prices.enabled", false)
	v.SetDefault("prices.base_url", "https://www.smard.de/app/chart_data")
	v.SetDefault("prices.filter", "4169")
	v.SetDefault("prices.region", "DE")
	v.SetDefault("prices.resolution", "hour")
	v.SetDefault("prices.poll_interval", defaultPollInterval)
	v.SetDefault("prices.lookback", 14*24*time.Hour)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "energy-readings")
	v.SetDefault("kafka.group_id", "ekpi")
	v.SetDefault("kafka.batch_size", defaultBatchSize)
	v.SetDefault("kafka.batch_timeout", defaultBatchTimeout)

	v.SetDefault("influx.enabled", false)
	v.SetDefault("influx.url", "http://localhost:8086")
	v.SetDefault("influx.token", "")
	v.SetDefault("influx.org", "")
	v.SetDefault("influx.bucket", "energy")

	v.SetDefault("dashboard.refresh_interval", defaultRefresh)
	v.SetDefault("dashboard.window", 24*time.Hour)
	v.SetDefault("dashboard.interval", "1hour")
	v.SetDefault("dashboard.autarky_alert", 0.2)
	v.SetDefault("dashboard.notify", true)
}

// Validate checks value ranges that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case CacheMemory, CacheRedis, CacheNone:
	default:
		return fmt.Errorf("cache.backend must be one of %s, %s, %s; got %q",
			CacheMemory, CacheRedis, CacheNone, c.Cache.Backend)
	}
	if _, err := cache.TTL(c.Cache.TTLSeconds); err != nil {
		return fmt.Errorf("cache.ttl_seconds: %w", err)
	}
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}
	if c.KPI.DefaultSource == "" {
		return errors.New("kpi.default_source is required")
	}
	if c.KPI.DefaultGridPriceEUR < 0 {
		return fmt.Errorf("kpi.default_grid_price_eur_per_kwh must not be negative, got %v",
			c.KPI.DefaultGridPriceEUR)
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "" {
			return errors.New("kafka.brokers and kafka.topic are required when kafka is enabled")
		}
		if c.Kafka.BatchSize <= 0 {
			return fmt.Errorf("kafka.batch_size must be positive, got %d", c.Kafka.BatchSize)
		}
	}
	if c.Prices.Enabled && c.Prices.PollInterval <= 0 {
		return fmt.Errorf("prices.poll_interval must be positive, got %v", c.Prices.PollInterval)
	}
	return nil
}

// CacheTTL returns the cache TTL as a duration, or the default TTL when the
// configured value is out of range.
func (c *Config) CacheTTL() time.Duration {
	ttl, err := cache.TTL(c.Cache.TTLSeconds)
	if err != nil {
		return cache.DefaultTTLSeconds * time.Second
	}
	return ttl
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	// Current directory
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	if dir := configDir(); dir != "" {
		paths = append(paths, filepath.Join(dir, ".env"))
	}

	// Parent directory (useful for development)
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(cwd), ".env"))
	}

	return paths
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "ekpi")
}

// getDefaultDatabasePath returns the default path for the SQLite database.
func getDefaultDatabasePath() string {
	dir := configDir()
	if dir == "" {
		return "energy.db"
	}
	return filepath.Join(dir, "energy.db")
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}

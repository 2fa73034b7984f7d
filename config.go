package record

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/burugo/record/internal/cache"
	"github.com/burugo/record/internal/pool"
)

// Configuration defaults.
const (
	DefaultDriver       = "sqlite3"
	DefaultPoolSize     = pool.DefaultMaxSize
	DefaultCacheMaxSize = cache.DefaultMaxSize
	DefaultCacheTTL     = cache.DefaultTTL
	DefaultLogLevel     = "info"

	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"

	// EnvPrefix prefixes every environment override. A double underscore
	// separates nested keys: RECORD_CACHE__MAX_SIZE sets cache.max_size.
	EnvPrefix = "RECORD_"
)

// Config holds everything Open needs to build a Database.
type Config struct {
	Driver   string      `koanf:"driver"`
	DSN      string      `koanf:"dsn"`
	PoolSize int         `koanf:"pool_size"`
	Cache    CacheConfig `koanf:"cache"`
	LogLevel string      `koanf:"log_level"`

	// Opener overrides the Driver/DSN pair when set.
	Opener Opener `koanf:"-"`
	// Logger defaults to a no-op logger.
	Logger *zap.Logger `koanf:"-"`
	// ResultCache overrides the backend selected by Cache.Backend.
	ResultCache ResultCache `koanf:"-"`
}

// CacheConfig configures the read cache.
type CacheConfig struct {
	Backend string `koanf:"backend"`
	MaxSize int    `koanf:"max_size"`
	// TTL is the entry lifetime; a negative value disables expiry.
	TTL   time.Duration `koanf:"ttl"`
	Redis RedisConfig   `koanf:"redis"`
}

// RedisConfig holds the connection settings of the redis cache backend.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	Prefix   string `koanf:"prefix"`
}

func defaultConfigMap() map[string]interface{} {
	return map[string]interface{}{
		"driver":             DefaultDriver,
		"dsn":                "",
		"pool_size":          DefaultPoolSize,
		"cache.backend":      CacheBackendMemory,
		"cache.max_size":     DefaultCacheMaxSize,
		"cache.ttl":          DefaultCacheTTL.String(),
		"cache.redis.addr":   "localhost:6379",
		"cache.redis.db":     0,
		"cache.redis.prefix": "record",
		"log_level":          DefaultLogLevel,
	}
}

// DefaultConfig returns a Config populated with the defaults.
func DefaultConfig() Config {
	return Config{
		Driver:   DefaultDriver,
		PoolSize: DefaultPoolSize,
		Cache: CacheConfig{
			Backend: CacheBackendMemory,
			MaxSize: DefaultCacheMaxSize,
			TTL:     DefaultCacheTTL,
			Redis:   RedisConfig{Addr: "localhost:6379", Prefix: "record"},
		},
		LogLevel: DefaultLogLevel,
	}
}

// LoadConfig builds a Config from defaults, an optional YAML file, RECORD_*
// environment variables and, when flags is non-nil, explicitly set flags.
// Later sources win.
func LoadConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaultConfigMap(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return flagKey(f.Name), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &cfg, nil
}

// envKey maps RECORD_CACHE__MAX_SIZE to cache.max_size.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// flagKey maps --cache-backend to cache.backend and --pool-size to pool_size.
func flagKey(name string) string {
	if rest, ok := strings.CutPrefix(name, "cache-"); ok {
		return "cache." + strings.ReplaceAll(rest, "-", "_")
	}
	return strings.ReplaceAll(name, "-", "_")
}

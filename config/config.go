package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// AppConfig holds environment driven configuration values.
type AppConfig struct {
	AppPort string `mapstructure:"APP_PORT"`
	// Persistence
	StoreDriver       string        `mapstructure:"STORE_DRIVER"`
	DataFile          string        `mapstructure:"DATA_FILE"`
	DatabaseURI       string        `mapstructure:"DATABASE_URI"`
	DBHost            string        `mapstructure:"DB_HOST"`
	DBPort            string        `mapstructure:"DB_PORT"`
	DBUser            string        `mapstructure:"DB_USER"`
	DBPassword        string        `mapstructure:"DB_PASSWORD"`
	DBName            string        `mapstructure:"DB_NAME"`
	DBSSLMode         string        `mapstructure:"DB_SSLMODE"`
	DBConnectAttempts uint          `mapstructure:"DB_CONNECT_ATTEMPTS"`
	DBConnectDelay    time.Duration `mapstructure:"DB_CONNECT_DELAY"`
	DBConnectBackoff  bool          `mapstructure:"DB_CONNECT_BACKOFF"`
	// Gin framework configuration
	GinMode        string   `mapstructure:"GIN_MODE"`
	GinPath        string   `mapstructure:"GIN_LOG_PATH"`
	AllowedOrigins []string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	// Redis response cache
	RedisEnabled  bool          `mapstructure:"REDIS_ENABLED"`
	RedisHost     string        `mapstructure:"REDIS_HOST"`
	RedisPort     int           `mapstructure:"REDIS_PORT"`
	RedisDB       int           `mapstructure:"REDIS_DB"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	CacheTTL      time.Duration `mapstructure:"CACHE_TTL"`
	// Logging configuration
	LogLevel      string `mapstructure:"LOG_LEVEL"`
	LogPath       string `mapstructure:"LOG_PATH"`
	LogMaxSizeMB  int    `mapstructure:"LOG_MAX_SIZE_MB"`
	LogMaxBackups int    `mapstructure:"LOG_MAX_BACKUPS"`
	LogMaxAgeDays int    `mapstructure:"LOG_MAX_AGE_DAYS"`
	LogCompress   bool   `mapstructure:"LOG_COMPRESS"`

	DefaultCategory string `mapstructure:"DEFAULT_CATEGORY"`
}

var (
	cfg    AppConfig
	loaded bool
	mu     sync.Mutex
)

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	mu.Lock()
	defer mu.Unlock()
	if loaded {
		return cfg
	}
	c, err := Read(filepath.Join("config", "config.json"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	cfg = c
	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	return Load()
}

// Read builds an AppConfig from the JSON file at path (optional), defaults and environment.
// Precedence: environment -> config file -> defaults.
func Read(path string) (AppConfig, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return AppConfig{}, fmt.Errorf("read %s: %w", path, err)
			}
		}
	}

	var out AppConfig
	if err := v.Unmarshal(&out); err != nil {
		return AppConfig{}, fmt.Errorf("decode config: %w", err)
	}
	out.StoreDriver = strings.ToLower(strings.TrimSpace(out.StoreDriver))
	out.AllowedOrigins = splitList(out.AllowedOrigins)
	if strings.TrimSpace(out.DBPort) == "" {
		out.DBPort = defaultDBPort(out.StoreDriver)
	}

	if err := out.Validate(); err != nil {
		return AppConfig{}, err
	}
	return out, nil
}

// Validate checks values that cannot be repaired with a default.
func (c AppConfig) Validate() error {
	switch c.StoreDriver {
	case DriverFile, DriverPostgres, DriverMySQL, DriverSQLite:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	if c.DBConnectAttempts == 0 {
		return errors.New("DB_CONNECT_ATTEMPTS must be at least 1")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "3000")
	v.SetDefault("STORE_DRIVER", DriverFile)
	v.SetDefault("DATA_FILE", "data.json")
	v.SetDefault("DATABASE_URI", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "blog")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_CONNECT_ATTEMPTS", 10)
	v.SetDefault("DB_CONNECT_DELAY", "3s")
	v.SetDefault("DB_CONNECT_BACKOFF", false)

	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("GIN_LOG_PATH", filepath.Join("logs", "gin.log"))
	v.SetDefault("CORS_ALLOWED_ORIGINS", []string{"*"})

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("CACHE_TTL", "1m")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PATH", "")
	v.SetDefault("LOG_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 3)
	v.SetDefault("LOG_MAX_AGE_DAYS", 7)
	v.SetDefault("LOG_COMPRESS", false)

	v.SetDefault("DEFAULT_CATEGORY", "Geral")
}

func defaultDBPort(driver string) string {
	if driver == DriverMySQL {
		return "3306"
	}
	return "5432"
}

// splitList flattens comma separated entries, which is what env overrides produce.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

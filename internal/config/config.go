// Package config loads the service configuration from configs/.env, an
// optional configs/config.yaml and the process environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Log      LogConfig
	Cache    CacheConfig
	CORS     CORSConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Env     string
	Port    string
	GinMode string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver   string // postgres or sqlite
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	Path     string // sqlite file, ":memory:" for tests
}

// RedisConfig holds Redis connection settings. An empty Addr disables the
// rule cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string // json, console
}

// CacheConfig holds the candidate-rule cache settings
type CacheConfig struct {
	RuleTTL time.Duration
}

// CORSConfig holds the allowed browser origins
type CORSConfig struct {
	Origins []string
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Load reads configs/.env (if present) and builds the config. Precedence:
// environment variables, then configs/config.yaml, then defaults.
func Load() (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load("configs/.env")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper builds the config from an already prepared viper instance. Env
// binding and defaults are applied here so tests can feed their own values.
func FromViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Env:     v.GetString("app_env"),
			Port:    v.GetString("port"),
			GinMode: v.GetString("gin_mode"),
		},
		Database: DatabaseConfig{
			Driver:   strings.ToLower(v.GetString("db_driver")),
			Host:     v.GetString("db_host"),
			Port:     v.GetString("db_port"),
			User:     v.GetString("db_user"),
			Password: v.GetString("db_password"),
			Name:     v.GetString("db_name"),
			SSLMode:  v.GetString("db_sslmode"),
			Path:     v.GetString("db_path"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis_addr"),
			Password: v.GetString("redis_password"),
			DB:       v.GetInt("redis_db"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt_secret"),
			TTL:    v.GetDuration("jwt_ttl"),
		},
		Log: LogConfig{
			Level:  v.GetString("log_level"),
			Format: v.GetString("log_format"),
		},
		Cache: CacheConfig{
			RuleTTL: v.GetDuration("rule_cache_ttl"),
		},
		CORS: CORSConfig{
			Origins: splitList(v.GetString("cors_origins")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "development")
	v.SetDefault("port", "8080")
	v.SetDefault("gin_mode", "debug")

	v.SetDefault("db_driver", DriverPostgres)
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_password", "postgres")
	v.SetDefault("db_name", "postgres")
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("db_path", "backoffice.db")

	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_db", 0)

	v.SetDefault("jwt_ttl", "24h")
	v.SetDefault("rule_cache_ttl", "5m")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")

	v.SetDefault("cors_origins", "http://localhost:5173,http://127.0.0.1:5173")
}

// Validate checks settings that cannot be defaulted safely.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want postgres or sqlite)", c.Database.Driver)
	}
	if c.App.GinMode == "release" && c.JWT.Secret == "" {
		return errors.New("JWT_SECRET environment variable is required in release mode")
	}
	if c.JWT.TTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.JWT.TTL)
	}
	return nil
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// DSN returns the postgres connection URL.
func (c *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

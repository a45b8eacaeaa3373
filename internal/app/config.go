package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the Web3DRender backend.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Uploads    UploadsConfig    `mapstructure:"uploads"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int      `mapstructure:"port"`
	LogLevel    string   `mapstructure:"log_level"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	// BodyLimit caps JSON request bodies in bytes.
	BodyLimit int64 `mapstructure:"body_limit"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// CacheConfig covers the query cache and the rate-limit counter backend.
type CacheConfig struct {
	Query     QueryCacheConfig `mapstructure:"query"`
	RateStore string           `mapstructure:"rate_store"`
	Valkey    ValkeyConfig     `mapstructure:"valkey"`
}

// QueryCacheConfig sets lifetimes of cached read results.
type QueryCacheConfig struct {
	ListTTL       time.Duration `mapstructure:"list_ttl"`
	AnnotationTTL time.Duration `mapstructure:"annotation_ttl"`
}

// ValkeyConfig holds Valkey connection options.
type ValkeyConfig struct {
	Address  string `mapstructure:"address"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// UploadsConfig locates stored model files.
type UploadsConfig struct {
	Dir         string `mapstructure:"dir"`
	MaxFileSize int64  `mapstructure:"max_file_size"`
}

// RateLimitConfig sets the API-wide and auth limiter budgets.
type RateLimitConfig struct {
	API  LimitConfig `mapstructure:"api"`
	Auth LimitConfig `mapstructure:"auth"`
}

// LimitConfig is a request budget per window.
type LimitConfig struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

// AuthConfig captures authentication settings.
type AuthConfig struct {
	JWT          JWTSettings `mapstructure:"jwt"`
	PasswordCost int         `mapstructure:"password_cost"`
}

// JWTSettings configures JWT access tokens.
type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"access_token_ttl"`
}

// MonitoringConfig enables metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig toggles the metrics endpoint.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("WEB3D")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("server.body_limit", 50<<20)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/web3drender.sqlite")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.mysql.port", 3306)

	v.SetDefault("cache.query.list_ttl", "2m")
	v.SetDefault("cache.query.annotation_ttl", "3m")
	v.SetDefault("cache.rate_store", "memory")
	v.SetDefault("cache.valkey.address", "127.0.0.1:6379")
	v.SetDefault("cache.valkey.username", "")
	v.SetDefault("cache.valkey.password", "")
	v.SetDefault("cache.valkey.db", 0)

	v.SetDefault("uploads.dir", "./uploads")
	v.SetDefault("uploads.max_file_size", 1<<30)

	v.SetDefault("rate_limit.api.limit", 100)
	v.SetDefault("rate_limit.api.window", "15m")
	v.SetDefault("rate_limit.auth.limit", 5)
	v.SetDefault("rate_limit.auth.window", "15m")

	v.SetDefault("auth.jwt.issuer", "web3drender")
	v.SetDefault("auth.jwt.access_token_ttl", "168h")
	v.SetDefault("auth.password_cost", 12)

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

package app

import (
	"strings"

	"github.com/charlesng35/web3drender/internal/auth"
	"github.com/charlesng35/web3drender/internal/cache"
	"github.com/charlesng35/web3drender/internal/database"
	"github.com/charlesng35/web3drender/internal/uploads"
)

// Rate store backends accepted by cache.rate_store.
const (
	RateStoreMemory   = "memory"
	RateStoreDatabase = "database"
	RateStoreValkey   = "valkey"
)

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}

	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		AccessTokenTTL: ttl,
	}
}

// ConnectionConfig selects the connection parameters for the configured driver.
func (c DatabaseConfig) ConnectionConfig() database.Config {
	cfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(c.Driver)),
		Path:   c.Path,
		DSN:    c.DSN,
	}

	var creds DBAuthConfig
	switch cfg.Driver {
	case "postgres", "postgresql":
		creds = c.Postgres
	case "mysql", "mariadb":
		creds = c.MySQL
	default:
		return cfg
	}

	cfg.Host = creds.Host
	cfg.Port = creds.Port
	cfg.Name = creds.Database
	cfg.User = creds.Username
	cfg.Password = creds.Password
	return cfg
}

// QueryTTLs returns the cache lifetimes, falling back to 2m lists and 3m annotations.
func (c CacheConfig) QueryTTLs() cache.TTLs {
	ttls := cache.TTLs{List: c.Query.ListTTL, Annotation: c.Query.AnnotationTTL}
	if ttls.List <= 0 {
		ttls.List = cache.DefaultListTTL
	}
	if ttls.Annotation <= 0 {
		ttls.Annotation = cache.DefaultAnnotationTTL
	}
	return ttls
}

// ValkeyClientConfig converts the application cache configuration into the cache package representation.
func (c CacheConfig) ValkeyClientConfig() cache.ValkeyConfig {
	return cache.ValkeyConfig{
		Address:  strings.TrimSpace(c.Valkey.Address),
		Username: strings.TrimSpace(c.Valkey.Username),
		Password: c.Valkey.Password,
		DB:       c.Valkey.DB,
	}
}

// RateStoreBackend normalises cache.rate_store, defaulting to memory.
func (c CacheConfig) RateStoreBackend() string {
	switch backend := strings.ToLower(strings.TrimSpace(c.RateStore)); backend {
	case RateStoreDatabase, RateStoreValkey:
		return backend
	default:
		return RateStoreMemory
	}
}

// MaxSize returns the upload ceiling, falling back to uploads.MaxFileSize.
func (c UploadsConfig) MaxSize() int64 {
	if c.MaxFileSize <= 0 {
		return uploads.MaxFileSize
	}
	return c.MaxFileSize
}

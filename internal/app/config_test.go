package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/web3drender/internal/auth"
	"github.com/charlesng35/web3drender/internal/cache"
	"github.com/charlesng35/web3drender/internal/uploads"
)

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata"))
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, []string{"https://viewer.example.com"}, cfg.Server.CORSOrigins)
	require.EqualValues(t, 1<<20, cfg.Server.BodyLimit)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, 5433, cfg.Database.Postgres.Port)

	require.Equal(t, 30*time.Second, cfg.Cache.Query.ListTTL)
	require.Equal(t, time.Minute, cfg.Cache.Query.AnnotationTTL)
	require.Equal(t, RateStoreValkey, cfg.Cache.RateStoreBackend())
	require.Equal(t, 2, cfg.Cache.Valkey.DB)

	require.Equal(t, "/var/lib/web3drender/uploads", cfg.Uploads.Dir)
	require.EqualValues(t, 10<<20, cfg.Uploads.MaxSize())

	require.Equal(t, 250, cfg.RateLimit.API.Limit)
	require.Equal(t, 5*time.Minute, cfg.RateLimit.API.Window)
	require.Equal(t, 3, cfg.RateLimit.Auth.Limit)
	require.Equal(t, 10*time.Minute, cfg.RateLimit.Auth.Window)

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, 24*time.Hour, cfg.Auth.JWT.TTL)

	require.False(t, cfg.Monitoring.Prometheus.Enabled)
	require.Equal(t, "/metrics", cfg.Monitoring.Prometheus.Endpoint)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 5000, cfg.Server.Port)
	require.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.Server.CORSOrigins)
	require.EqualValues(t, 50<<20, cfg.Server.BodyLimit)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, 2*time.Minute, cfg.Cache.Query.ListTTL)
	require.Equal(t, 3*time.Minute, cfg.Cache.Query.AnnotationTTL)
	require.Equal(t, RateStoreMemory, cfg.Cache.RateStoreBackend())
	require.Equal(t, "./uploads", cfg.Uploads.Dir)
	require.Equal(t, 100, cfg.RateLimit.API.Limit)
	require.Equal(t, 15*time.Minute, cfg.RateLimit.API.Window)
	require.Equal(t, 5, cfg.RateLimit.Auth.Limit)
	require.Equal(t, 168*time.Hour, cfg.Auth.JWT.TTL)
	require.True(t, cfg.Monitoring.Prometheus.Enabled)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("WEB3D_SERVER_PORT", "7070")
	t.Setenv("WEB3D_CACHE_RATE_STORE", "database")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, RateStoreDatabase, cfg.Cache.RateStoreBackend())
}

func TestAuthConfigAdapters(t *testing.T) {
	cfg := AuthConfig{JWT: JWTSettings{Secret: "secret", Issuer: "issuer", TTL: 30 * time.Minute}}
	require.Equal(t, auth.JWTConfig{
		Secret:         "secret",
		Issuer:         "issuer",
		AccessTokenTTL: 30 * time.Minute,
	}, cfg.JWTServiceConfig())

	var empty AuthConfig
	require.Equal(t, auth.DefaultAccessTokenTTL, empty.JWTServiceConfig().AccessTokenTTL)
}

func TestDatabaseConnectionConfig(t *testing.T) {
	cfg := DatabaseConfig{
		Driver: "MySQL",
		MySQL:  DBAuthConfig{Host: "mysql.local", Port: 3307, Database: "web3d", Username: "u", Password: "p"},
	}
	conn := cfg.ConnectionConfig()
	require.Equal(t, "mysql", conn.Driver)
	require.Equal(t, "mysql.local", conn.Host)
	require.Equal(t, 3307, conn.Port)
	require.Equal(t, "web3d", conn.Name)
	require.Equal(t, "u", conn.User)

	sqlite := DatabaseConfig{Driver: "sqlite", Path: "./data/x.sqlite"}.ConnectionConfig()
	require.Equal(t, "./data/x.sqlite", sqlite.Path)
	require.Empty(t, sqlite.Host)
}

func TestCacheAndUploadFallbacks(t *testing.T) {
	var cacheCfg CacheConfig
	require.Equal(t, cache.TTLs{List: cache.DefaultListTTL, Annotation: cache.DefaultAnnotationTTL}, cacheCfg.QueryTTLs())
	require.Equal(t, RateStoreMemory, CacheConfig{RateStore: "bogus"}.RateStoreBackend())

	var uploadsCfg UploadsConfig
	require.Equal(t, uploads.MaxFileSize, uploadsCfg.MaxSize())
}

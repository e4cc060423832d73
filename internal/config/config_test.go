package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "session_id", cfg.Session.CookieName)
	assert.Equal(t, 24, cfg.Catalog.PageSize)
	assert.True(t, cfg.Cart.CheckStockOnAdd)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "localhost:6379", cfg.GetRedisAddr())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CATALOG_PAGE_SIZE", "10")
	t.Setenv("CART_CHECK_STOCK_ON_ADD", "false")
	t.Setenv("LIKES_COUNT_CACHE_TTL", "30s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Catalog.PageSize)
	assert.False(t, cfg.Cart.CheckStockOnAdd)
	assert.Equal(t, 30*time.Second, cfg.Likes.CountCacheTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Security.CORSAllowedOrigins)
}

func TestValidate(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "short")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("APP_ENV", "development")
	t.Setenv("LOG_LEVEL", "loud")
	_, err = Load()
	require.ErrorContains(t, err, "LOG_LEVEL")

	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("CATALOG_PAGE_SIZE", "0")
	_, err = Load()
	require.ErrorContains(t, err, "CATALOG_PAGE_SIZE")
}

func TestGetDatabaseDSN(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "n", SSLMode: "disable"}}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", cfg.GetDatabaseDSN())
}

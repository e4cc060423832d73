package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/infrastructure/database/postgres"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
	"github.com/your-org/storefront-backend/internal/pkg/metrics"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "Adm1n&Secret"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		App:    config.AppConfig{Name: "Storefront", Version: "test", Environment: "test"},
		Server: config.ServerConfig{RequestTimeout: 5 * time.Second, MaxBodyBytes: 1 << 20},
		JWT: config.JWTConfig{
			Secret:             "server-test-secret",
			Issuer:             "storefront-test",
			AccessTokenExpiry:  time.Hour,
			RefreshTokenExpiry: 24 * time.Hour,
		},
		Security: config.SecurityConfig{BcryptCost: bcrypt.MinCost, RateLimitPerMinute: 1000},
		Session:  config.SessionConfig{CookieName: "session_id", MaxAge: 3600},
		Catalog:  config.CatalogConfig{PageSize: 20, FeaturedLimit: 8, LowStockThreshold: 5, Currency: "USD"},
		Cart:     config.CartConfig{CheckStockOnAdd: true},
		Likes:    config.LikesConfig{CountCacheTTL: time.Minute},
		Metrics:  config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

type testEnv struct {
	server *Server
	db     *gorm.DB
	cookie *http.Cookie
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := "file:server_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ctx := context.Background()
	m := postgres.NewMigration(db, logger.Discard())
	require.NoError(t, m.RunAutoMigrations(ctx))
	require.NoError(t, m.SeedInitialData(ctx, postgres.SeedOptions{
		AdminEmail:    adminEmail,
		AdminPassword: adminPassword,
		BcryptCost:    bcrypt.MinCost,
	}))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	reg := prometheus.NewRegistry()
	srv, err := NewServer(testConfig(), db, client, metrics.New(reg), reg, logger.Discard())
	require.NoError(t, err)
	return &testEnv{server: srv, db: db}
}

// do sends a request carrying the env's session cookie and remembers any
// cookie the server issues
func (e *testEnv) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if e.cookie != nil {
		req.AddCookie(e.cookie)
	}

	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.Name == "session_id" {
			e.cookie = c
		}
	}
	return w
}

func data(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	d, _ := body["data"].(map[string]interface{})
	return d
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	code, _ := body["code"].(string)
	return code
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{"email": email, "password": password}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return data(t, w)["access_token"].(string)
}

func (e *testEnv) product(t *testing.T, name string) product.Product {
	t.Helper()
	var p product.Product
	require.NoError(t, e.db.Where("name = ?", name).First(&p).Error)
	return p
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = env.do(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestCanonicalRedirects(t *testing.T) {
	env := newTestEnv(t)
	tee := env.product(t, "Classic Tee")

	w := env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/products/%d", tee.ID), nil, "")
	require.Equal(t, http.StatusMovedPermanently, w.Code)
	canonical := fmt.Sprintf("/api/v1/products/%d/%s", tee.ID, tee.Slug)
	assert.Equal(t, canonical, w.Header().Get("Location"))

	w = env.do(t, http.MethodGet, canonical, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Classic Tee", data(t, w)["product"].(map[string]interface{})["name"])

	w = env.do(t, http.MethodGet, "/api/v1/products/99999/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, w))

	var category product.Category
	require.NoError(t, env.db.Where("name = ?", "T-Shirts").First(&category).Error)
	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/categories/%d/wrong?sort_by=name", category.ID), nil, "")
	require.Equal(t, http.StatusMovedPermanently, w.Code)
	assert.Equal(t, fmt.Sprintf("/api/v1/categories/%d/apparel/t-shirts?sort_by=name", category.ID), w.Header().Get("Location"))

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/categories/%d/apparel/t-shirts", category.ID), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, data(t, w)["products"], 2)

	w = env.do(t, http.MethodGet, "/api/v1/products?sort_by=bogus", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCartFlow(t *testing.T) {
	env := newTestEnv(t)
	tee := env.product(t, "Classic Tee")
	var variant product.ProductVariant
	require.NoError(t, env.db.Where("product_id = ? AND name = ?", tee.ID, "Black / S").First(&variant).Error)

	w := env.do(t, http.MethodGet, "/api/v1/cart", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, data(t, w)["cart"])
	require.NotNil(t, env.cookie)

	add := gin.H{"product_id": tee.ID, "variant_id": variant.ID, "quantity": 2}
	w = env.do(t, http.MethodPost, "/api/v1/cart/items", add, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(2), data(t, w)["quantity"])
	assert.Equal(t, "39.8", data(t, w)["subtotal"])
	items := data(t, w)["cart"].(map[string]interface{})["items"].([]interface{})
	require.Len(t, items, 1)
	itemPath := fmt.Sprintf("/api/v1/cart/items/%.0f", items[0].(map[string]interface{})["id"].(float64))

	// a body without quantity is rejected instead of removing the line
	w = env.do(t, http.MethodPut, itemPath, gin.H{}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))

	// only two Black / S in stock
	w = env.do(t, http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": tee.ID, "variant_id": variant.ID, "quantity": 1}, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INSUFFICIENT_STOCK", errorCode(t, w))

	w = env.do(t, http.MethodGet, "/api/v1/cart/count", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), data(t, w)["count"])

	w = env.do(t, http.MethodPost, "/api/v1/auth/register", gin.H{
		"email":            "shopper@example.com",
		"password":         "Sh0pper&Pass",
		"confirm_password": "Sh0pper&Pass",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	token := data(t, w)["access_token"].(string)

	w = env.do(t, http.MethodGet, "/api/v1/cart", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), data(t, w)["quantity"])

	// the same cookie without a token no longer reaches the shopper's cart
	w = env.do(t, http.MethodGet, "/api/v1/cart", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, data(t, w)["cart"])
	w = env.do(t, http.MethodGet, "/api/v1/cart/count", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), data(t, w)["count"])
	w = env.do(t, http.MethodPut, itemPath, gin.H{"quantity": 0}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPut, "/api/v1/cart/status", gin.H{"status": "saved"}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "saved", data(t, w)["status"])

	w = env.do(t, http.MethodPut, "/api/v1/cart/status", gin.H{"status": "saved"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/cart/products/%d", tee.ID), nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Nil(t, data(t, w)["cart"])
}

func TestLikesAndStaffGuard(t *testing.T) {
	env := newTestEnv(t)
	tee := env.product(t, "Classic Tee")
	widgetPath := fmt.Sprintf("/api/v1/likes/1/%d", tee.ID)

	w := env.do(t, http.MethodGet, widgetPath, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, data(t, w)["can_like"])

	w = env.do(t, http.MethodPost, widgetPath+"/toggle", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/auth/register", gin.H{
		"email":            "fan@example.com",
		"password":         "F4n&Likes9",
		"confirm_password": "F4n&Likes9",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	token := data(t, w)["access_token"].(string)

	w = env.do(t, http.MethodPost, widgetPath+"/toggle", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, data(t, w)["liked"])
	assert.Equal(t, float64(1), data(t, w)["like_count"])

	w = env.do(t, http.MethodGet, "/api/v1/profile/likes?type=product.product", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), fmt.Sprintf(`"receiver_object_id":%d`, tee.ID))

	w = env.do(t, http.MethodGet, "/api/v1/likes/9/1", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/admin/attributes", nil, token)
	assert.Equal(t, http.StatusForbidden, w.Code)

	staff := env.login(t, adminEmail, adminPassword)
	w = env.do(t, http.MethodGet, "/api/v1/admin/attributes", nil, staff)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `"color"`))

	w = env.do(t, http.MethodPost, "/api/v1/admin/attributes", gin.H{"name": ""}, staff)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
}

package like

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/attribute"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/domain/product"
	apperrors "github.com/your-org/storefront-backend/internal/pkg/errors"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
	"github.com/your-org/storefront-backend/internal/pkg/metrics"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB, *miniredis.Miniredis) {
	t.Helper()
	dsn := "file:like_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&attribute.Attribute{}, &attribute.AttributeValue{},
		&product.Category{}, &product.ProductType{}, &product.Product{}, &product.ProductVariant{},
		&product.ProductImage{}, &product.Collection{},
		&inventory.StockLocation{}, &inventory.Stock{},
		&Like{},
	))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	svc := NewService(db, rdb, config.LikesConfig{CountCacheTTL: time.Minute}, metrics.New(nil), logger.Discard())
	return svc, db, mr
}

func seedProduct(t *testing.T, db *gorm.DB) (*product.Category, *product.Product) {
	t.Helper()
	category := &product.Category{Name: "Lamps", Slug: "lamps", IsActive: true}
	require.NoError(t, db.Create(category).Error)
	p := &product.Product{Name: "Desk Lamp", Slug: "desk-lamp", CategoryID: category.ID, Price: decimal.NewFromInt(30), IsPublished: true}
	require.NoError(t, db.Omit("Variants", "Images", "Collections", "Category", "ProductType").Create(p).Error)
	return category, p
}

func TestToggle(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	_, p := seedProduct(t, db)

	like, liked, err := svc.Toggle(ctx, 7, ContentProduct.ID, p.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	require.NotNil(t, like)
	assert.Equal(t, p.ID, like.ReceiverObjectID)

	ok, err := svc.Liked(ctx, 7, ContentProduct.ID, p.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	like, liked, err = svc.Toggle(ctx, 7, ContentProduct.ID, p.ID)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Nil(t, like)

	_, _, err = svc.Toggle(ctx, 7, 99, p.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
	_, _, err = svc.Toggle(ctx, 7, ContentProduct.ID, 999)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestCountIsCachedAndInvalidated(t *testing.T) {
	svc, db, mr := newTestService(t)
	ctx := context.Background()
	_, p := seedProduct(t, db)

	for _, sender := range []uint{1, 2} {
		_, _, err := svc.Toggle(ctx, sender, ContentProduct.ID, p.ID)
		require.NoError(t, err)
	}

	n, err := svc.Count(ctx, ContentProduct.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	key := countKey(ContentProduct.ID, p.ID)
	cached, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "2", cached)
	assert.True(t, mr.TTL(key) > 0)

	_, _, err = svc.Toggle(ctx, 1, ContentProduct.ID, p.ID)
	require.NoError(t, err)
	assert.False(t, mr.Exists(key))

	n, err = svc.Count(ctx, ContentProduct.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCountFallsBackWhenRedisIsDown(t *testing.T) {
	svc, db, mr := newTestService(t)
	ctx := context.Background()
	_, p := seedProduct(t, db)

	_, _, err := svc.Toggle(ctx, 1, ContentProduct.ID, p.ID)
	require.NoError(t, err)
	mr.Close()

	n, err := svc.Count(ctx, ContentProduct.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestLikesByAndWhoLikes(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	category, p := seedProduct(t, db)

	_, _, err := svc.Toggle(ctx, 5, ContentProduct.ID, p.ID)
	require.NoError(t, err)
	_, _, err = svc.Toggle(ctx, 5, ContentCategory.ID, category.ID)
	require.NoError(t, err)
	_, _, err = svc.Toggle(ctx, 6, ContentProduct.ID, p.ID)
	require.NoError(t, err)

	all, err := svc.LikesBy(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	products, err := svc.LikesBy(ctx, 5, "Product.Product", "unknown.model")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, ContentProduct.ID, products[0].ReceiverType)

	none, err := svc.LikesBy(ctx, 5, "unknown.model")
	require.NoError(t, err)
	assert.Empty(t, none)

	who, err := svc.WhoLikes(ctx, ContentProduct.ID, p.ID)
	require.NoError(t, err)
	assert.Len(t, who, 2)
}

func TestWidgetContext(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	_, p := seedProduct(t, db)

	w, err := svc.WidgetContext(ctx, 0, ContentProduct.ID, p.ID)
	require.NoError(t, err)
	assert.False(t, w.CanLike)
	assert.Equal(t, "no_like", w.LikeClass)
	assert.Equal(t, "Likes", w.CountsText)
	assert.Empty(t, w.LikeURL)

	_, _, err = svc.Toggle(ctx, 3, ContentProduct.ID, p.ID)
	require.NoError(t, err)

	w, err = svc.WidgetContext(ctx, 3, ContentProduct.ID, p.ID)
	require.NoError(t, err)
	assert.True(t, w.Liked)
	assert.Equal(t, "Unlike", w.LikeText)
	assert.Equal(t, "unlike", w.LikeClass)
	assert.Equal(t, "Like", w.CountsText)
	assert.Equal(t, int64(1), w.LikeCount)

	w, err = svc.WidgetContext(ctx, 4, ContentProduct.ID, p.ID)
	require.NoError(t, err)
	assert.False(t, w.Liked)
	assert.Equal(t, "like", w.LikeClass)
	assert.Contains(t, w.LikeURL, "/toggle")
}

package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
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

type fixture struct {
	svc     *Service
	db      *gorm.DB
	product product.Product
	small   product.ProductVariant
	large   product.ProductVariant
}

func newFixture(t *testing.T, checkStock bool) *fixture {
	t.Helper()
	dsn := "file:cart_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&attribute.Attribute{}, &attribute.AttributeValue{},
		&product.Category{}, &product.ProductType{}, &product.Product{}, &product.ProductVariant{},
		&product.ProductImage{}, &product.Collection{},
		&inventory.StockLocation{}, &inventory.Stock{}, &inventory.StockMovement{},
		&Cart{}, &CartItem{},
	))

	f := &fixture{db: db}
	f.svc = NewService(db, config.CartConfig{CheckStockOnAdd: checkStock}, metrics.New(nil), logger.Discard())

	category := product.Category{Name: "Mugs", Slug: "mugs", IsActive: true}
	require.NoError(t, db.Create(&category).Error)
	f.product = product.Product{
		Name:        "Enamel Mug",
		Slug:        "enamel-mug",
		CategoryID:  category.ID,
		Price:       decimal.RequireFromString("12.50"),
		IsPublished: true,
	}
	require.NoError(t, db.Omit("Variants", "Images", "Collections", "Category", "ProductType").Create(&f.product).Error)

	f.small = product.ProductVariant{ProductID: f.product.ID, SKU: "MUG-S", Name: "Small"}
	f.large = product.ProductVariant{
		ProductID:     f.product.ID,
		SKU:           "MUG-L",
		Name:          "Large",
		PriceOverride: decimal.NewNullDecimal(decimal.RequireFromString("15.25")),
	}
	for _, v := range []*product.ProductVariant{&f.small, &f.large} {
		require.NoError(t, db.Omit("Stock", "Images", "Product").Create(v).Error)
	}

	location := inventory.StockLocation{Name: "Main"}
	require.NoError(t, db.Create(&location).Error)
	require.NoError(t, db.Create(&inventory.Stock{VariantID: f.small.ID, LocationID: location.ID, Quantity: 10}).Error)
	require.NoError(t, db.Create(&inventory.Stock{VariantID: f.large.ID, LocationID: location.ID, Quantity: 2}).Error)
	return f
}

func (f *fixture) newCart(t *testing.T) (*Cart, Owner) {
	t.Helper()
	owner := Owner{SessionKey: NewSessionKey()}
	cart, err := f.svc.GetOrCreateCart(context.Background(), owner)
	require.NoError(t, err)
	return cart, owner
}

func (f *fixture) reload(t *testing.T, id uint) *Cart {
	t.Helper()
	var cart Cart
	require.NoError(t, f.db.Preload("Items").First(&cart, id).Error)
	return &cart
}

func TestAddAccumulatesAndReplaces(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	cart, _ := f.newCart(t)

	_, err := f.svc.Add(ctx, cart.ID, f.small.ID, 3, nil, false, true)
	require.NoError(t, err)
	item, err := f.svc.Add(ctx, cart.ID, f.small.ID, 3, nil, false, true)
	require.NoError(t, err)
	assert.Equal(t, 6, item.Quantity)
	assert.True(t, item.TotalPrice.Decimal.Equal(decimal.RequireFromString("75")))

	item, err = f.svc.Add(ctx, cart.ID, f.small.ID, 3, map[string]interface{}{"gift": true}, true, true)
	require.NoError(t, err)
	assert.Equal(t, 3, item.Quantity)
	assert.Equal(t, true, item.Data["gift"])

	reloaded := f.reload(t, cart.ID)
	require.Len(t, reloaded.Items, 1)
	assert.True(t, reloaded.Subtotal().Equal(decimal.RequireFromString("37.5")), reloaded.Subtotal().String())
	assert.True(t, reloaded.PriceTotal.Decimal.Equal(reloaded.PriceSubtotal.Decimal))

	_, err = f.svc.Add(ctx, cart.ID, f.small.ID, -5, nil, false, true)
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
}

func TestSubtotalIsSumOfLines(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	cart, _ := f.newCart(t)

	_, err := f.svc.Add(ctx, cart.ID, f.small.ID, 2, nil, false, true)
	require.NoError(t, err)
	_, err = f.svc.Add(ctx, cart.ID, f.large.ID, 1, nil, false, true)
	require.NoError(t, err)

	reloaded := f.reload(t, cart.ID)
	sum := decimal.Zero
	for _, item := range reloaded.Items {
		sum = sum.Add(item.TotalPrice.Decimal)
	}
	assert.True(t, sum.Equal(decimal.RequireFromString("40.25")), sum.String())
	assert.True(t, reloaded.Subtotal().Equal(sum))
}

func TestRemovingLastLineDeletesCart(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	cart, owner := f.newCart(t)

	_, err := f.svc.Add(ctx, cart.ID, f.small.ID, 1, nil, false, true)
	require.NoError(t, err)
	_, err = f.svc.Add(ctx, cart.ID, f.large.ID, 1, nil, false, true)
	require.NoError(t, err)

	item, err := f.svc.Add(ctx, cart.ID, f.small.ID, 0, nil, true, true)
	require.NoError(t, err)
	assert.Nil(t, item)
	reloaded := f.reload(t, cart.ID)
	require.Len(t, reloaded.Items, 1)
	assert.True(t, reloaded.Subtotal().Equal(decimal.RequireFromString("15.25")))

	remaining, err := f.svc.RemoveProduct(ctx, owner, f.product.ID)
	require.NoError(t, err)
	assert.Nil(t, remaining)

	var count int64
	require.NoError(t, f.db.Model(&Cart{}).Where("id = ?", cart.ID).Count(&count).Error)
	assert.Zero(t, count)

	_, err = f.svc.RemoveProduct(ctx, owner, f.product.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestChangeStatus(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	cart, _ := f.newCart(t)
	before := f.reload(t, cart.ID)

	_, err := f.svc.ChangeStatus(ctx, cart.ID, "shipped")
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
	after := f.reload(t, cart.ID)
	assert.Equal(t, StatusOpen, after.Status)
	require.NotNil(t, after.LastStatusChange)
	assert.True(t, before.LastStatusChange.Equal(*after.LastStatusChange))

	f.svc.now = func() time.Time { return before.LastStatusChange.Add(time.Hour) }
	same, err := f.svc.ChangeStatus(ctx, cart.ID, "open")
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, same.Status)
	after = f.reload(t, cart.ID)
	assert.True(t, before.LastStatusChange.Equal(*after.LastStatusChange))

	changed, err := f.svc.ChangeStatus(ctx, cart.ID, "Saved")
	require.NoError(t, err)
	assert.Equal(t, StatusSaved, changed.Status)
	assert.Equal(t, "Saved - for items to be purchased later", changed.Status.Label())
	require.NotNil(t, changed.LastStatusChange)
	assert.True(t, changed.LastStatusChange.After(*before.LastStatusChange))

	changed, err = f.svc.ChangeStatus(ctx, cart.ID, "WAITING_FOR_PAYMENT")
	require.NoError(t, err)
	assert.Equal(t, StatusWaitingForPayment, changed.Status)

	_, err = f.svc.ChangeStatus(ctx, 999, "open")
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestInsufficientStock(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	cart, owner := f.newCart(t)

	_, err := f.svc.Add(ctx, cart.ID, f.large.ID, 3, nil, false, true)
	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 3, stockErr.Requested)
	assert.Equal(t, 2, stockErr.Available)
	assert.True(t, apperrors.Is(err, apperrors.CodeInsufficientStock))
	assert.Equal(t, "only 2 of Large in stock", apperrors.As(err).Message())

	_, err = f.svc.AddProduct(ctx, owner, &AddToCartRequest{ProductID: f.product.ID, VariantID: &f.large.ID, Quantity: 5})
	assert.True(t, apperrors.Is(err, apperrors.CodeInsufficientStock))

	// unchecked writes are allowed past stock
	_, err = f.svc.Add(ctx, cart.ID, f.large.ID, 5, nil, false, false)
	require.NoError(t, err)
	_, err = f.svc.Add(ctx, cart.ID, f.small.ID, 4, nil, false, false)
	require.NoError(t, err)

	ids, err := f.svc.CartsWithUnavailableVariants(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{cart.ID}, ids)

	warn, err := f.svc.CheckAvailabilityAndClamp(ctx, owner)
	require.NoError(t, err)
	assert.True(t, warn)

	clamped, err := f.svc.GetCart(ctx, owner)
	require.NoError(t, err)
	require.Len(t, clamped.Items, 2)
	assert.Equal(t, 2, clamped.Items[0].Quantity)
	assert.Equal(t, 4, clamped.Items[1].Quantity)

	warn, err = f.svc.CheckAvailabilityAndClamp(ctx, owner)
	require.NoError(t, err)
	assert.False(t, warn)
}

func TestOwnerOperations(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	owner := Owner{SessionKey: NewSessionKey()}

	_, err := f.svc.GetCart(ctx, owner)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
	_, err = f.svc.GetOrCreateCart(ctx, Owner{SessionKey: "not-a-token"})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	cart, err := f.svc.AddProduct(ctx, owner, &AddToCartRequest{ProductID: f.product.ID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, f.small.ID, cart.Items[0].VariantID)

	count, err := f.svc.Count(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	cart, err = f.svc.UpdateItem(ctx, owner, cart.Items[0].ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, cart.Quantity())
	_, err = f.svc.UpdateItem(ctx, owner, 999, 1)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	userID := uint(42)
	require.NoError(t, f.svc.AssignToUser(ctx, owner.SessionKey, userID))
	userCart, err := f.svc.GetUserCart(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, userCart.ID)

	// once assigned, the bare session no longer reaches the cart
	_, err = f.svc.GetCart(ctx, owner)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
	count, err = f.svc.Count(ctx, owner)
	require.NoError(t, err)
	assert.Zero(t, count)
	require.NoError(t, f.svc.Clear(ctx, owner))
	_, err = f.svc.UpdateItem(ctx, owner, cart.Items[0].ID, 0)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	_, err = f.svc.GetCart(ctx, Owner{UserID: &userID, SessionKey: owner.SessionKey})
	require.NoError(t, err)

	require.NoError(t, f.svc.Clear(ctx, Owner{UserID: &userID, SessionKey: owner.SessionKey}))
	_, err = f.svc.GetUserCart(ctx, userID)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	_, err = f.svc.AddProduct(ctx, owner, &AddToCartRequest{ProductID: 999, Quantity: 1})
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestCleanupFailureKeepsLineRemoval(t *testing.T) {
	f := newFixture(t, true)
	reg := prometheus.NewRegistry()
	f.svc.metrics = metrics.New(reg)
	ctx := context.Background()
	cart, owner := f.newCart(t)

	_, err := f.svc.Add(ctx, cart.ID, f.small.ID, 1, nil, false, true)
	require.NoError(t, err)

	err = f.db.Callback().Delete().Before("gorm:delete").Register("test:refuse_cart_delete", func(tx *gorm.DB) {
		if tx.Statement.Table == "carts" {
			_ = tx.AddError(errors.New("cart delete refused"))
		}
	})
	require.NoError(t, err)

	remaining, err := f.svc.RemoveProduct(ctx, owner, f.product.ID)
	require.NoError(t, err)
	require.NotNil(t, remaining)
	assert.Equal(t, cart.ID, remaining.ID)
	assert.Empty(t, remaining.Items)
	assert.False(t, remaining.PriceSubtotal.Valid)

	var lines int64
	require.NoError(t, f.db.Model(&CartItem{}).Where("cart_id = ?", cart.ID).Count(&lines).Error)
	assert.Zero(t, lines)
	assert.Equal(t, 1.0, counterValue(t, reg, "cart_cleanup_failures_total"))
}

func TestParseStatus(t *testing.T) {
	for raw, want := range map[string]Status{
		"open":                StatusOpen,
		" Saved ":             StatusSaved,
		"payment":             StatusWaitingForPayment,
		"WAITING_FOR_PAYMENT": StatusWaitingForPayment,
		"CANCELED":            StatusCanceled,
	} {
		got, err := ParseStatus(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseStatus("shipped")
	typed := apperrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, apperrors.CodeValidation, typed.Code())
	assert.Equal(t, map[string]interface{}{"allowed": Statuses()}, typed.Details())
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == name {
			return family.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not gathered", name)
	return 0
}

func TestTokenIsValid(t *testing.T) {
	assert.True(t, TokenIsValid(uuid.NewString()))
	assert.False(t, TokenIsValid(""))
	assert.False(t, TokenIsValid("abc"))
}

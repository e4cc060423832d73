package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newMigration(t *testing.T) (*Migration, *gorm.DB) {
	t.Helper()
	dsn := "file:migration_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	m := NewMigration(db, logger.Discard())
	require.NoError(t, m.RunAutoMigrations(context.Background()))
	return m, db
}

func TestSeedInitialData(t *testing.T) {
	m, db := newMigration(t)
	ctx := context.Background()
	require.NoError(t, m.CreateIndexes(ctx))

	opts := SeedOptions{AdminEmail: "Admin@Example.com", AdminPassword: "Adm1n&Secret", BcryptCost: bcrypt.MinCost}
	require.NoError(t, m.SeedInitialData(ctx, opts))

	var products, variants, stock int64
	require.NoError(t, db.Model(&product.Product{}).Count(&products).Error)
	require.NoError(t, db.Model(&product.ProductVariant{}).Count(&variants).Error)
	require.NoError(t, db.Model(&inventory.Stock{}).Count(&stock).Error)
	assert.Equal(t, int64(3), products)
	assert.Equal(t, int64(13), variants)
	assert.Equal(t, variants, stock)

	var admin user.User
	require.NoError(t, db.Where("email = ?", "admin@example.com").First(&admin).Error)
	assert.True(t, admin.IsStaff)

	// a second run leaves the catalog alone
	require.NoError(t, m.SeedInitialData(ctx, opts))
	require.NoError(t, db.Model(&product.Product{}).Count(&products).Error)
	assert.Equal(t, int64(3), products)
}

func TestDropAllTables(t *testing.T) {
	m, db := newMigration(t)
	require.NoError(t, m.DropAllTables(context.Background()))
	assert.False(t, db.Migrator().HasTable(&product.Product{}))
	assert.False(t, db.Migrator().HasTable("collection_products"))
}

// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/attribute"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/domain/like"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/interfaces/http/handlers"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-backend/internal/pkg/auth"
	"github.com/your-org/storefront-backend/internal/pkg/metrics"
	"gorm.io/gorm"
)

// Dependencies are the shared resources the routes build their services from
type Dependencies struct {
	Config  *config.Config
	DB      *gorm.DB
	Redis   *redis.Client
	Metrics *metrics.Metrics
	Log     logrus.FieldLogger
}

type handlerSet struct {
	auth       *handlers.AuthHandler
	profile    *handlers.ProfileHandler
	products   *handlers.ProductHandler
	categories *handlers.CategoryHandler
	carts      *handlers.CartHandler
	likes      *handlers.LikeHandler
	attributes *handlers.AttributeAdminHandler
	catalog    *handlers.ProductAdminHandler
	inventory  *handlers.InventoryHandler
	users      *handlers.UserAdminHandler
}

func newHandlerSet(deps Dependencies, tokens *auth.JWTManager) handlerSet {
	cfg, db, log := deps.Config, deps.DB, deps.Log

	carts := cart.NewService(db, cfg.Cart, deps.Metrics, log.WithField("service", "cart"))
	likes := like.NewService(db, deps.Redis, cfg.Likes, deps.Metrics, log.WithField("service", "like"))
	users := user.NewService(db, auth.NewPasswordManager(cfg.Security.BcryptCost), tokens, carts, log.WithField("service", "user"))

	return handlerSet{
		auth:       handlers.NewAuthHandler(users),
		profile:    handlers.NewProfileHandler(users, likes),
		products:   handlers.NewProductHandler(product.NewService(db, cfg.Catalog, log.WithField("service", "catalog"))),
		categories: handlers.NewCategoryHandler(product.NewCategoryService(db, log.WithField("service", "category"))),
		carts:      handlers.NewCartHandler(carts),
		likes:      handlers.NewLikeHandler(likes),
		attributes: handlers.NewAttributeAdminHandler(attribute.NewService(db, log.WithField("service", "attribute"))),
		catalog:    handlers.NewProductAdminHandler(product.NewAdminService(db, log.WithField("service", "catalog_admin"))),
		inventory:  handlers.NewInventoryHandler(inventory.NewService(db, log.WithField("service", "inventory")), cfg.Catalog.LowStockThreshold),
		users:      handlers.NewUserAdminHandler(user.NewAdminService(db, log.WithField("service", "user_admin"))),
	}
}

// SetupRoutes mounts the whole API on rg
func SetupRoutes(rg *gin.RouterGroup, deps Dependencies) {
	tokens := auth.NewJWTManager(deps.Config.JWT)
	h := newHandlerSet(deps, tokens)

	rg.Use(middleware.Session(deps.Config.Session), middleware.OptionalAuthMiddleware(tokens))
	requireAuth := middleware.AuthMiddleware(tokens)

	setupAuthRoutes(rg, h, requireAuth)
	setupCatalogRoutes(rg, h)
	setupCartRoutes(rg, h, requireAuth)
	setupLikeRoutes(rg, h, requireAuth)
	setupAdminRoutes(rg, h, requireAuth)
}

// setupAuthRoutes sets up authentication and profile routes
func setupAuthRoutes(rg *gin.RouterGroup, h handlerSet, requireAuth gin.HandlerFunc) {
	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/register", h.auth.Register)
		authGroup.POST("/login", h.auth.Login)
		authGroup.POST("/refresh", h.auth.Refresh)
	}

	profile := rg.Group("/profile", requireAuth)
	{
		profile.GET("", h.profile.GetProfile)
		profile.PUT("", h.profile.UpdateProfile)
		profile.PUT("/password", h.profile.ChangePassword)
		profile.GET("/likes", h.profile.GetLikes)
	}
}

// setupCatalogRoutes sets up the public catalog pages
func setupCatalogRoutes(rg *gin.RouterGroup, h handlerSet) {
	rg.GET("/homepage", h.products.Homepage)

	products := rg.Group("/products")
	{
		products.GET("", h.products.ListProducts)
		products.GET("/:id", h.products.GetProduct)
		products.GET("/:id/:slug", h.products.GetProduct)
	}

	categories := rg.Group("/categories")
	{
		categories.GET("", h.categories.GetCategories)
		categories.GET("/tree", h.categories.GetCategoryTree)
		categories.GET("/:id", h.products.CategoryIndex)
		categories.GET("/:id/*path", h.products.CategoryIndex)
	}

	collections := rg.Group("/collections")
	{
		collections.GET("/:id", h.products.CollectionIndex)
		collections.GET("/:id/:slug", h.products.CollectionIndex)
	}
}

// setupCartRoutes sets up cart routes. Anonymous shoppers are identified by
// the session cookie.
func setupCartRoutes(rg *gin.RouterGroup, h handlerSet, requireAuth gin.HandlerFunc) {
	carts := rg.Group("/cart")
	{
		carts.GET("", h.carts.GetCart)
		carts.DELETE("", h.carts.ClearCart)
		carts.GET("/count", h.carts.GetCount)
		carts.POST("/items", h.carts.AddItem)
		carts.PUT("/items/:id", h.carts.UpdateItem)
		carts.DELETE("/products/:product_id", h.carts.RemoveProduct)
		carts.POST("/validate", h.carts.Validate)
		carts.PUT("/status", requireAuth, h.carts.ChangeStatus)
	}
}

// setupLikeRoutes sets up like widget routes
func setupLikeRoutes(rg *gin.RouterGroup, h handlerSet, requireAuth gin.HandlerFunc) {
	likes := rg.Group("/likes")
	{
		likes.GET("/:content_type_id/:object_id", h.likes.GetWidget)
		likes.POST("/:content_type_id/:object_id/toggle", requireAuth, h.likes.Toggle)
	}
}

// setupAdminRoutes sets up staff-only routes
func setupAdminRoutes(rg *gin.RouterGroup, h handlerSet, requireAuth gin.HandlerFunc) {
	admin := rg.Group("/admin", requireAuth, middleware.StaffMiddleware())

	attributes := admin.Group("/attributes")
	{
		attributes.GET("", h.attributes.GetAttributes)
		attributes.POST("", h.attributes.CreateAttribute)
		attributes.GET("/:id", h.attributes.GetAttribute)
		attributes.PUT("/:id", h.attributes.UpdateAttribute)
		attributes.DELETE("/:id", h.attributes.DeleteAttribute)
		attributes.POST("/:id/values", h.attributes.AddValue)
	}
	values := admin.Group("/attribute-values")
	{
		values.PUT("/:id", h.attributes.UpdateValue)
		values.DELETE("/:id", h.attributes.DeleteValue)
	}

	types := admin.Group("/product-types")
	{
		types.GET("", h.catalog.GetProductTypes)
		types.POST("", h.catalog.CreateProductType)
		types.GET("/:id", h.catalog.GetProductType)
		types.PUT("/:id", h.catalog.UpdateProductType)
		types.DELETE("/:id", h.catalog.DeleteProductType)
	}

	products := admin.Group("/products")
	{
		products.POST("", h.catalog.CreateProduct)
		products.PUT("/:id", h.catalog.UpdateProduct)
		products.DELETE("/:id", h.catalog.DeleteProduct)
		products.GET("/:id/form", h.catalog.GetProductForm)
		products.POST("/:id/variants", h.catalog.CreateVariant)
		products.POST("/:id/images", h.catalog.AddImage)
		products.PUT("/:id/images/order", h.catalog.ReorderImages)
	}

	variants := admin.Group("/variants")
	{
		variants.PUT("/:id", h.catalog.UpdateVariant)
		variants.DELETE("/:id", h.catalog.DeleteVariant)
		variants.GET("/:id/form", h.catalog.GetVariantForm)
		variants.GET("/:id/stock", h.inventory.GetVariantStock)
		variants.POST("/:id/allocate", h.inventory.AllocateVariant)
		variants.POST("/:id/images/:image_id", h.catalog.AttachImage)
	}
	admin.DELETE("/images/:id", h.catalog.DeleteImage)

	categories := admin.Group("/categories")
	{
		categories.POST("", h.categories.CreateCategory)
		categories.PUT("/:id", h.categories.UpdateCategory)
		categories.DELETE("/:id", h.categories.DeleteCategory)
	}

	collections := admin.Group("/collections")
	{
		collections.GET("", h.catalog.GetCollections)
		collections.POST("", h.catalog.CreateCollection)
		collections.PUT("/:id", h.catalog.UpdateCollection)
		collections.DELETE("/:id", h.catalog.DeleteCollection)
		collections.POST("/:id/products/:product_id", h.catalog.AddToCollection)
		collections.DELETE("/:id/products/:product_id", h.catalog.RemoveFromCollection)
	}

	locations := admin.Group("/stock-locations")
	{
		locations.GET("", h.inventory.GetLocations)
		locations.POST("", h.inventory.CreateLocation)
		locations.DELETE("/:id", h.inventory.DeleteLocation)
	}

	stock := admin.Group("/stock")
	{
		stock.PUT("", h.inventory.SetStock)
		stock.GET("/low", h.inventory.GetLowStock)
		stock.POST("/:id/adjust", h.inventory.AdjustStock)
		stock.POST("/:id/allocate", h.inventory.Allocate)
		stock.POST("/:id/deallocate", h.inventory.Deallocate)
		stock.GET("/:id/movements", h.inventory.GetMovements)
	}

	admin.PUT("/carts/:id/status", h.carts.AdminChangeStatus)

	users := admin.Group("/users")
	{
		users.GET("", h.users.GetUsers)
		users.GET("/export", h.users.ExportUsers)
		users.GET("/:id", h.users.GetUser)
		users.PUT("/:id/status", h.users.UpdateUserStatus)
		users.PUT("/:id/staff", h.users.SetStaff)
	}
}

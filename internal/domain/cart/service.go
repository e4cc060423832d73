// internal/domain/cart/service.go
package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/product"
	apperrors "github.com/your-org/storefront-backend/internal/pkg/errors"
	"github.com/your-org/storefront-backend/internal/pkg/metrics"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service handles cart business logic
type Service struct {
	db      *gorm.DB
	cfg     config.CartConfig
	metrics *metrics.Metrics
	log     logrus.FieldLogger
	now     func() time.Time
}

// NewService creates a new cart service
func NewService(db *gorm.DB, cfg config.CartConfig, m *metrics.Metrics, log logrus.FieldLogger) *Service {
	return &Service{
		db:      db,
		cfg:     cfg,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

// AddToCartRequest represents add to cart request. Without a variant the
// product's first variant is used.
type AddToCartRequest struct {
	ProductID uint  `json:"product_id" binding:"required"`
	VariantID *uint `json:"variant_id"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

// UpdateCartItemRequest represents update cart item request
type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required,min=0"`
}

// ChangeStatusRequest represents a cart status transition
type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// TokenIsValid reports whether token is a well-formed session key
func TokenIsValid(token string) bool {
	if token == "" {
		return false
	}
	_, err := uuid.Parse(token)
	return err == nil
}

// NewSessionKey issues a fresh session key
func NewSessionKey() string {
	return uuid.NewString()
}

func withLines(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("date_added ASC, id ASC") }).
		Preload("Items.Product").
		Preload("Items.Variant").
		Preload("Items.Variant.Stock")
}

func ownerScope(owner Owner) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if owner.UserID != nil {
			return db.Where("user_id = ? AND session_key = ?", *owner.UserID, owner.SessionKey)
		}
		return db.Where("session_key = ? AND user_id IS NULL", owner.SessionKey)
	}
}

// GetCart returns the owner's cart with its lines
func (s *Service) GetCart(ctx context.Context, owner Owner) (*Cart, error) {
	if !TokenIsValid(owner.SessionKey) {
		return nil, apperrors.New(apperrors.CodeNotFound, "cart not found")
	}
	var cart Cart
	err := withLines(s.db.WithContext(ctx)).Scopes(ownerScope(owner)).Order("id ASC").First(&cart).Error
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "cart not found")
	}
	return &cart, nil
}

// GetOrCreateCart returns the owner's cart, creating an open one if needed
func (s *Service) GetOrCreateCart(ctx context.Context, owner Owner) (*Cart, error) {
	if !TokenIsValid(owner.SessionKey) {
		return nil, apperrors.New(apperrors.CodeValidation, "invalid cart session key")
	}

	cart, err := s.GetCart(ctx, owner)
	if err == nil {
		return cart, nil
	}
	if !apperrors.Is(err, apperrors.CodeNotFound) {
		return nil, err
	}

	now := s.now()
	cart = &Cart{
		UserID:           owner.UserID,
		SessionKey:       owner.SessionKey,
		Status:           StatusOpen,
		LastStatusChange: &now,
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(cart).Error; err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	s.log.WithFields(logrus.Fields{"cart_id": cart.ID, "anonymous": owner.IsAnonymous()}).Debug("cart created")
	return cart, nil
}

// GetUserCart returns the user's open cart
func (s *Service) GetUserCart(ctx context.Context, userID uint) (*Cart, error) {
	var cart Cart
	err := withLines(s.db.WithContext(ctx)).
		Where("user_id = ? AND status = ?", userID, StatusOpen).
		Order("id ASC").
		First(&cart).Error
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "cart not found")
	}
	return &cart, nil
}

// Add changes the quantity of the variant's line in a cart. The cart row is
// locked for the whole read-modify-write. With replace the line is set to
// quantity, otherwise quantity is added. A resulting zero removes the line;
// the returned item is then nil.
func (s *Service) Add(ctx context.Context, cartID, variantID uint, quantity int, data map[string]interface{}, replace, checkQuantity bool) (*CartItem, error) {
	var result *CartItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart Cart
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&cart, cartID).Error; err != nil {
			return apperrors.NotFoundOr(err, "cart not found")
		}

		var variant product.ProductVariant
		if err := tx.Preload("Stock").Preload("Product").First(&variant, variantID).Error; err != nil {
			return apperrors.NotFoundOr(err, "variant not found")
		}

		var item CartItem
		err := tx.Where("cart_id = ? AND variant_id = ?", cart.ID, variant.ID).First(&item).Error
		exists := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to load cart line: %w", err)
		}
		if !exists {
			item = CartItem{CartID: cart.ID, VariantID: variant.ID, ProductID: variant.ProductID}
		}

		newQuantity := item.Quantity + quantity
		if replace {
			newQuantity = quantity
		}
		if newQuantity < 0 {
			return apperrors.Newf(apperrors.CodeValidation, "%d is not a valid quantity (results in %d)", quantity, newQuantity)
		}

		if checkQuantity {
			if err := variant.CheckQuantity(newQuantity); err != nil {
				s.metrics.IncInsufficientStock()
				line := item
				return &InsufficientStockError{Item: &line, Requested: newQuantity, Available: variant.StockQuantity(), cause: err}
			}
		}

		if newQuantity == 0 {
			if exists {
				return s.detach(tx, &item)
			}
			return nil
		}

		item.Quantity = newQuantity
		if data != nil {
			item.Data = datatypes.JSONMap(data)
		}
		if err := s.attach(tx, &item, variant.UnitPrice(variant.Product)); err != nil {
			return err
		}
		result = &item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// attach prices a line and stores it, then recomputes the cart subtotal
func (s *Service) attach(tx *gorm.DB, item *CartItem, unitPrice decimal.Decimal) error {
	if item.Quantity >= 1 {
		item.TotalPrice = decimal.NewNullDecimal(unitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	if err := tx.Omit(clause.Associations).Save(item).Error; err != nil {
		return fmt.Errorf("failed to save cart line: %w", err)
	}
	return s.recomputeSubtotal(tx, item.CartID)
}

// detach deletes a line, then recomputes the subtotal and deletes the cart
// once it is empty. Failures deleting the empty cart are logged and
// swallowed so the line removal still commits.
func (s *Service) detach(tx *gorm.DB, item *CartItem) error {
	if err := tx.Delete(&CartItem{}, item.ID).Error; err != nil {
		return fmt.Errorf("failed to delete cart line: %w", err)
	}
	if err := s.recomputeSubtotal(tx, item.CartID); err != nil {
		return err
	}

	err := tx.Transaction(func(cleanup *gorm.DB) error {
		var remaining int64
		if err := cleanup.Model(&CartItem{}).Where("cart_id = ?", item.CartID).Count(&remaining).Error; err != nil {
			return fmt.Errorf("failed to count cart lines: %w", err)
		}
		if remaining == 0 {
			if err := cleanup.Delete(&Cart{}, item.CartID).Error; err != nil {
				return fmt.Errorf("failed to delete empty cart: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.metrics.IncCartCleanupFailure()
		s.log.WithFields(logrus.Fields{"cart_id": item.CartID, "error": err.Error()}).Warn("cart cleanup failed")
	}
	return nil
}

// recomputeSubtotal stores the sum of line totals on the cart. A cart
// without lines has a null subtotal.
func (s *Service) recomputeSubtotal(tx *gorm.DB, cartID uint) error {
	var sum sql.NullString
	if err := tx.Model(&CartItem{}).Where("cart_id = ?", cartID).
		Select("SUM(total_price)").Row().Scan(&sum); err != nil {
		return fmt.Errorf("failed to sum cart lines: %w", err)
	}

	subtotal := decimal.NullDecimal{}
	if sum.Valid {
		d, err := decimal.NewFromString(sum.String)
		if err != nil {
			return fmt.Errorf("failed to parse cart subtotal: %w", err)
		}
		subtotal = decimal.NewNullDecimal(d.Round(2))
	}

	if err := tx.Model(&Cart{}).Where("id = ?", cartID).Updates(map[string]interface{}{
		"price_subtotal": subtotal,
		"price_total":    subtotal,
	}).Error; err != nil {
		return fmt.Errorf("failed to update cart subtotal: %w", err)
	}
	s.metrics.IncCartRecompute()
	return nil
}

// ChangeStatus moves a cart to another status. Unknown statuses are rejected
// and the same status is a no-op.
func (s *Service) ChangeStatus(ctx context.Context, cartID uint, raw string) (*Cart, error) {
	status, err := ParseStatus(raw)
	if err != nil {
		return nil, err
	}

	var cart Cart
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&cart, cartID).Error; err != nil {
			return apperrors.NotFoundOr(err, "cart not found")
		}
		if cart.Status == status {
			return nil
		}

		now := s.now()
		if err := tx.Model(&cart).Updates(map[string]interface{}{
			"status":             status,
			"last_status_change": now,
		}).Error; err != nil {
			return fmt.Errorf("failed to change cart status: %w", err)
		}
		s.log.WithFields(logrus.Fields{"cart_id": cart.ID, "from": cart.Status, "to": status}).Info("cart status changed")
		cart.Status = status
		cart.LastStatusChange = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddProduct adds quantity of a published product to the owner's cart,
// creating the cart when needed
func (s *Service) AddProduct(ctx context.Context, owner Owner, req *AddToCartRequest) (*Cart, error) {
	if req.Quantity < 1 {
		return nil, apperrors.New(apperrors.CodeValidation, "quantity must be at least 1")
	}

	variant, err := s.resolveVariant(ctx, req.ProductID, req.VariantID)
	if err != nil {
		return nil, err
	}

	cart, err := s.GetOrCreateCart(ctx, owner)
	if err != nil {
		return nil, err
	}
	if _, err := s.Add(ctx, cart.ID, variant.ID, req.Quantity, nil, false, s.cfg.CheckStockOnAdd); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, owner)
}

func (s *Service) resolveVariant(ctx context.Context, productID uint, variantID *uint) (*product.ProductVariant, error) {
	query := s.db.WithContext(ctx).Model(&product.ProductVariant{}).
		Joins("JOIN products ON products.id = product_variants.product_id").
		Where("product_variants.product_id = ? AND products.is_published = ?", productID, true)
	if variantID != nil {
		query = query.Where("product_variants.id = ?", *variantID)
	}

	var variant product.ProductVariant
	if err := query.Order("product_variants.id ASC").First(&variant).Error; err != nil {
		return nil, apperrors.NotFoundOr(err, "product not found")
	}
	return &variant, nil
}

// UpdateItem sets the quantity of one of the owner's lines; zero removes it.
// The returned cart is nil when the update emptied it.
func (s *Service) UpdateItem(ctx context.Context, owner Owner, itemID uint, quantity int) (*Cart, error) {
	cart, err := s.GetCart(ctx, owner)
	if err != nil {
		return nil, err
	}

	var item *CartItem
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			item = &cart.Items[i]
			break
		}
	}
	if item == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "cart item not found")
	}

	if _, err := s.Add(ctx, cart.ID, item.VariantID, quantity, nil, true, s.cfg.CheckStockOnAdd); err != nil {
		return nil, err
	}
	return s.cartOrNil(ctx, owner)
}

// RemoveProduct deletes every line of a product from the owner's cart. The
// returned cart is nil when the removal emptied it.
func (s *Service) RemoveProduct(ctx context.Context, owner Owner, productID uint) (*Cart, error) {
	cart, err := s.GetCart(ctx, owner)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&Cart{}, cart.ID).Error; err != nil {
			return apperrors.NotFoundOr(err, "cart not found")
		}
		var items []CartItem
		if err := tx.Where("cart_id = ? AND product_id = ?", cart.ID, productID).Find(&items).Error; err != nil {
			return fmt.Errorf("failed to load cart lines: %w", err)
		}
		if len(items) == 0 {
			return apperrors.New(apperrors.CodeNotFound, "product is not in the cart")
		}
		for i := range items {
			if err := s.detach(tx, &items[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.cartOrNil(ctx, owner)
}

func (s *Service) cartOrNil(ctx context.Context, owner Owner) (*Cart, error) {
	cart, err := s.GetCart(ctx, owner)
	if apperrors.Is(err, apperrors.CodeNotFound) {
		return nil, nil
	}
	return cart, err
}

// Count returns the total quantity in the owner's cart
func (s *Service) Count(ctx context.Context, owner Owner) (int, error) {
	if !TokenIsValid(owner.SessionKey) {
		return 0, nil
	}
	var total sql.NullInt64
	err := s.db.WithContext(ctx).Model(&CartItem{}).
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Scopes(func(db *gorm.DB) *gorm.DB {
			if owner.UserID != nil {
				return db.Where("carts.user_id = ? AND carts.session_key = ?", *owner.UserID, owner.SessionKey)
			}
			return db.Where("carts.session_key = ? AND carts.user_id IS NULL", owner.SessionKey)
		}).
		Select("SUM(cart_items.quantity)").Row().Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count cart items: %w", err)
	}
	return int(total.Int64), nil
}

// Clear deletes the owner's cart with all its lines
func (s *Service) Clear(ctx context.Context, owner Owner) error {
	cart, err := s.GetCart(ctx, owner)
	if err != nil {
		if apperrors.Is(err, apperrors.CodeNotFound) {
			return nil
		}
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", cart.ID).Delete(&CartItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear cart lines: %w", err)
		}
		if err := tx.Delete(&Cart{}, cart.ID).Error; err != nil {
			return fmt.Errorf("failed to delete cart: %w", err)
		}
		return nil
	})
}

// ContainsUnavailableVariants reports whether any line asks for more than
// its variant has in stock
func (s *Service) ContainsUnavailableVariants(ctx context.Context, cartID uint) (bool, error) {
	var items []CartItem
	if err := s.db.WithContext(ctx).Preload("Variant.Stock").Where("cart_id = ?", cartID).Find(&items).Error; err != nil {
		return false, fmt.Errorf("failed to load cart lines: %w", err)
	}
	for _, item := range items {
		if item.Variant == nil || item.Quantity > item.Variant.StockQuantity() {
			return true, nil
		}
	}
	return false, nil
}

// RemoveUnavailableVariants clamps every line to its available stock;
// lines without stock are removed
func (s *Service) RemoveUnavailableVariants(ctx context.Context, cartID uint) error {
	var items []CartItem
	if err := s.db.WithContext(ctx).Where("cart_id = ?", cartID).Order("date_added ASC, id ASC").Find(&items).Error; err != nil {
		return fmt.Errorf("failed to load cart lines: %w", err)
	}

	for _, item := range items {
		_, err := s.Add(ctx, cartID, item.VariantID, item.Quantity, nil, true, true)
		var stockErr *InsufficientStockError
		if errors.As(err, &stockErr) {
			_, err = s.Add(ctx, cartID, item.VariantID, stockErr.Available, nil, true, false)
		}
		if apperrors.Is(err, apperrors.CodeNotFound) {
			// the last removal deleted the cart
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// CheckAvailabilityAndClamp clamps the owner's cart to available stock and
// reports whether the shopper must be warned about changed quantities
func (s *Service) CheckAvailabilityAndClamp(ctx context.Context, owner Owner) (bool, error) {
	cart, err := s.GetCart(ctx, owner)
	if err != nil {
		if apperrors.Is(err, apperrors.CodeNotFound) {
			return false, nil
		}
		return false, err
	}

	unavailable, err := s.ContainsUnavailableVariants(ctx, cart.ID)
	if err != nil || !unavailable {
		return false, err
	}
	if err := s.RemoveUnavailableVariants(ctx, cart.ID); err != nil {
		return false, err
	}
	s.log.WithField("cart_id", cart.ID).Info("cart quantities clamped to available stock")
	return true, nil
}

// CartsWithUnavailableVariants lists open carts that ask for more than is in
// stock
func (s *Service) CartsWithUnavailableVariants(ctx context.Context) ([]uint, error) {
	var ids []uint
	if err := s.db.WithContext(ctx).Model(&Cart{}).Where("status = ?", StatusOpen).
		Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list carts: %w", err)
	}

	var out []uint
	for _, id := range ids {
		unavailable, err := s.ContainsUnavailableVariants(ctx, id)
		if err != nil {
			return nil, err
		}
		if unavailable {
			out = append(out, id)
		}
	}
	return out, nil
}

// AssignToUser hands the anonymous cart of a session to a user who just
// signed in. Nothing happens when the session has no anonymous cart or the
// user already owns a cart for that session.
func (s *Service) AssignToUser(ctx context.Context, sessionKey string, userID uint) error {
	if !TokenIsValid(sessionKey) {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owned int64
		if err := tx.Model(&Cart{}).Where("user_id = ? AND session_key = ?", userID, sessionKey).Count(&owned).Error; err != nil {
			return fmt.Errorf("failed to check user cart: %w", err)
		}
		if owned > 0 {
			return nil
		}

		result := tx.Model(&Cart{}).
			Where("session_key = ? AND user_id IS NULL", sessionKey).
			Update("user_id", userID)
		if result.Error != nil {
			return fmt.Errorf("failed to assign cart: %w", result.Error)
		}
		if result.RowsAffected > 0 {
			s.log.WithField("user_id", userID).Info("session cart assigned to user")
		}
		return nil
	})
}

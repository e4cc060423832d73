// internal/domain/cart/entity.go
package cart

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/domain/product"
	apperrors "github.com/your-org/storefront-backend/internal/pkg/errors"
	"gorm.io/datatypes"
)

// Status represents the lifecycle state of a cart
type Status string

const (
	StatusOpen              Status = "open"
	StatusSaved             Status = "saved"
	StatusWaitingForPayment Status = "payment"
	StatusCheckout          Status = "checkout"
	StatusCanceled          Status = "canceled"
)

var statusLabels = map[Status]string{
	StatusOpen:              "Open - currently active",
	StatusSaved:             "Saved - for items to be purchased later",
	StatusWaitingForPayment: "Waiting for payment",
	StatusCheckout:          "Checkout - processed and sent to ERP",
	StatusCanceled:          "Canceled - canceled by user",
}

// enumerator names accepted besides the stored values
var statusAliases = map[string]Status{
	"waiting_for_payment": StatusWaitingForPayment,
}

// Statuses lists every status in lifecycle order
func Statuses() []Status {
	return []Status{StatusOpen, StatusSaved, StatusWaitingForPayment, StatusCheckout, StatusCanceled}
}

// ParseStatus validates a status name. Stored values and enumerator names
// such as WAITING_FOR_PAYMENT are both accepted, case-insensitively.
func ParseStatus(raw string) (Status, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	status := Status(key)
	if alias, ok := statusAliases[key]; ok {
		status = alias
	}
	if _, ok := statusLabels[status]; !ok {
		return "", apperrors.Newf(apperrors.CodeValidation, "%q is not an expected cart status", raw).
			WithDetails(map[string]interface{}{"allowed": Statuses()})
	}
	return status, nil
}

// Label is the human readable status
func (s Status) Label() string {
	return statusLabels[s]
}

// Cart holds the line items of one shopper, identified by user and session
type Cart struct {
	ID               uint                `gorm:"primaryKey" json:"id"`
	UserID           *uint               `gorm:"uniqueIndex:idx_cart_user_session,priority:1" json:"user_id,omitempty"`
	SessionKey       string              `gorm:"size:64;not null;index;uniqueIndex:idx_cart_user_session,priority:2" json:"-"`
	Status           Status              `gorm:"size:32;not null;default:open;index" json:"status"`
	LastStatusChange *time.Time          `json:"last_status_change"`
	PriceSubtotal    decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"price_subtotal"`
	PriceTotal       decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"price_total"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`

	// Relationships
	Items []CartItem `gorm:"foreignKey:CartID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
}

// CartItem is one variant line of a cart
type CartItem struct {
	ID         uint                `gorm:"primaryKey" json:"id"`
	CartID     uint                `gorm:"not null;uniqueIndex:idx_cart_item_variant,priority:1" json:"cart_id"`
	VariantID  uint                `gorm:"not null;uniqueIndex:idx_cart_item_variant,priority:2" json:"variant_id"`
	ProductID  uint                `gorm:"not null;index" json:"product_id"`
	Quantity   int                 `gorm:"not null;default:1;check:quantity >= 1" json:"quantity"`
	TotalPrice decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"total_price"`
	Data       datatypes.JSONMap   `json:"data,omitempty"`
	DateAdded  time.Time           `gorm:"autoCreateTime;index" json:"date_added"`
	UpdatedAt  time.Time           `json:"updated_at"`

	// Relationships
	Variant *product.ProductVariant `gorm:"foreignKey:VariantID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"variant,omitempty"`
	Product *product.Product        `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"product,omitempty"`
}

// TableName overrides
func (Cart) TableName() string     { return "carts" }
func (CartItem) TableName() string { return "cart_items" }

// Owner identifies whose cart an operation targets. Anonymous shoppers only
// carry a session key.
type Owner struct {
	UserID     *uint
	SessionKey string
}

// IsAnonymous reports whether no user is attached
func (o Owner) IsAnonymous() bool {
	return o.UserID == nil
}

// Quantity sums the line quantities
func (c *Cart) Quantity() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// Subtotal is the cached subtotal, treating an empty cart as zero
func (c *Cart) Subtotal() decimal.Decimal {
	if !c.PriceSubtotal.Valid {
		return decimal.Zero
	}
	return c.PriceSubtotal.Decimal
}

// InsufficientStockError reports a line whose requested quantity exceeds
// the variant's available stock
type InsufficientStockError struct {
	Item      *CartItem
	Requested int
	Available int

	cause error
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for variant %d: requested %d, available %d",
		e.Item.VariantID, e.Requested, e.Available)
}

// Unwrap exposes the typed error so handlers map it to INSUFFICIENT_STOCK
func (e *InsufficientStockError) Unwrap() error {
	message := fmt.Sprintf("only %d left in stock", e.Available)
	if typed := apperrors.As(e.cause); typed != nil {
		message = typed.Message()
	}
	return apperrors.New(apperrors.CodeInsufficientStock, message).
		WithDetails(map[string]interface{}{
			"variant_id": e.Item.VariantID,
			"product_id": e.Item.ProductID,
			"requested":  e.Requested,
			"available":  e.Available,
		})
}

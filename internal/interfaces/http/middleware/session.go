// internal/interfaces/http/middleware/session.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
)

const ContextSessionKey = "session_key"

// Session makes sure every request carries a cart session key. A missing or
// malformed cookie is replaced with a fresh key.
func Session(cfg config.SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, err := c.Cookie(cfg.CookieName)
		if err != nil || !cart.TokenIsValid(key) {
			key = cart.NewSessionKey()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(cfg.CookieName, key, cfg.MaxAge, "/", "", cfg.Secure, true)
		}
		c.Set(ContextSessionKey, key)
		c.Next()
	}
}

// GetSessionKey returns the request's cart session key
func GetSessionKey(c *gin.Context) string {
	return c.GetString(ContextSessionKey)
}

// CartOwner identifies the cart of the current request
func CartOwner(c *gin.Context) cart.Owner {
	owner := cart.Owner{SessionKey: GetSessionKey(c)}
	if userID, ok := GetUserIDFromContext(c); ok {
		owner.UserID = &userID
	}
	return owner
}

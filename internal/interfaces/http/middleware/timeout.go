// internal/interfaces/http/middleware/timeout.go
package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/your-org/storefront-backend/internal/pkg/errors"
)

// Timeout bounds the request context. Handlers pass the context down to gorm
// and redis, so expiry cancels their work; a handler that returns without
// writing after the deadline gets a dependency error.
func Timeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			abortWithError(c, apperrors.New(apperrors.CodeDependency, "request timeout"))
		}
	}
}

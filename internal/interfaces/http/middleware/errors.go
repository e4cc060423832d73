// internal/interfaces/http/middleware/errors.go
package middleware

import (
	"github.com/gin-gonic/gin"
	apperrors "github.com/your-org/storefront-backend/internal/pkg/errors"
)

// ErrorBody renders err in the API's error shape and returns its status
func ErrorBody(err error) (int, gin.H) {
	code := apperrors.CodeOf(err)
	meta := apperrors.MetadataFor(code)

	message := meta.PublicMessage
	body := gin.H{"code": code}
	if typed := apperrors.As(err); typed != nil && code != apperrors.CodeInternal {
		message = typed.Message()
		if meta.DetailsAllowed && typed.Details() != nil {
			body["details"] = typed.Details()
		}
	}
	body["error"] = message
	return meta.HTTPStatus, body
}

func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	status, body := ErrorBody(err)
	c.AbortWithStatusJSON(status, body)
}

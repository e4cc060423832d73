// internal/interfaces/http/handlers/response.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	apperrors "github.com/your-org/storefront-backend/internal/pkg/errors"
)

// BasePath prefixes every API route and canonical redirect
const BasePath = "/api/v1"

func respond(c *gin.Context, status int, message string, data interface{}) {
	body := gin.H{"message": message}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	status, body := middleware.ErrorBody(err)
	c.JSON(status, body)
}

// redirectCanonical answers 301 towards the canonical page of a resource
func redirectCanonical(c *gin.Context, canonical string) {
	target := BasePath + canonical
	if raw := c.Request.URL.RawQuery; raw != "" {
		target += "?" + raw
	}
	c.Redirect(http.StatusMovedPermanently, target)
}

// bindJSON binds the body into req, answering 400 with per-field details
// when it does not validate
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, bindingError(err))
		return false
	}
	return true
}

func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		respondError(c, bindingError(err))
		return false
	}
	return true
}

func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			details[strings.ToLower(fe.Field())] = fe.Tag()
		}
		return apperrors.New(apperrors.CodeValidation, "invalid request data").WithDetails(details)
	}
	return apperrors.Wrap(apperrors.CodeValidation, err, "invalid request data").
		WithDetails(map[string]string{"body": err.Error()})
}

// parseID reads a positive numeric path parameter
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		respondError(c, apperrors.Newf(apperrors.CodeValidation, "invalid %s", strings.ReplaceAll(name, "_", " ")))
		return 0, false
	}
	return uint(id), true
}

func viewerFrom(c *gin.Context) product.Viewer {
	userID, _ := middleware.GetUserIDFromContext(c)
	return product.Viewer{UserID: userID, IsStaff: middleware.IsStaffFromContext(c)}
}

// currentUser returns the authenticated user id; routes using it sit behind
// AuthMiddleware
func currentUser(c *gin.Context) (uint, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		respondError(c, apperrors.New(apperrors.CodeUnauthorized, "authentication required"))
	}
	return userID, ok
}

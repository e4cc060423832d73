// internal/interfaces/http/handlers/validation.go
package handlers

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var sortKeyPattern = regexp.MustCompile(`^-?[a-z][a-z0-9_]*$`)

// RegisterValidators adds the storefront's custom tags to gin's validator
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("sortkey", func(fl validator.FieldLevel) bool {
		return sortKeyPattern.MatchString(fl.Field().String())
	})
}

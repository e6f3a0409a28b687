package models

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// NewValidator returns a validator with the model-specific tags registered.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("action", func(fl validator.FieldLevel) bool {
		return Action(fl.Field().String()).IsValid()
	})
	return v
}

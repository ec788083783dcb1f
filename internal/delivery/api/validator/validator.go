// Package validator adapts go-playground/validator to echo.
package validator

import (
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// Validator implements echo.Validator
type Validator struct {
	validate *validator.Validate
}

// New creates a request validator
func New() *Validator {
	return &Validator{validate: validator.New()}
}

// Validate checks the struct tags of a bound request.
func (v *Validator) Validate(i any) error {
	return errors.WithStack(v.validate.Struct(i))
}

// Package validator wraps go-playground struct validation and registers the
// custom rules the request DTOs use.
package validator

import (
	"github.com/go-playground/validator/v10"

	"github.com/DataCleaninghash/CustomerAII/platform/phone"
)

// Validator validates request DTOs against their struct tags.
type Validator struct {
	v *validator.Validate
}

// New builds a Validator with the domain rules registered.
//
// The "dialable" tag accepts any string that parses to a valid, dialable
// phone number. It is stricter than the builtin e164 tag: a well-formed
// number that no carrier would route fails it.
func New() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("dialable", func(fl validator.FieldLevel) bool {
		_, err := phone.ValidateE164(fl.Field().String())
		return err == nil
	})
	return &Validator{v: v}
}

// Struct validates a struct based on its validation tags.
func (val *Validator) Struct(s interface{}) error {
	return val.v.Struct(s)
}

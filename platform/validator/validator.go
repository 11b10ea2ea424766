// Package validator provides validation infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package validator

import (
	"reflect"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var referralCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,64}$`)

// Validator wraps the go-playground validator for structured validation.
type Validator struct {
	v *validator.Validate
}

// New creates a Validator with the ledger's custom tags registered:
//
//	money_positive  decimal.Decimal strictly greater than zero
//	referral_code   3-64 characters of [A-Za-z0-9_-]
func New() *Validator {
	v := validator.New()
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{}, decimal.NullDecimal{})
	_ = v.RegisterValidation("money_positive", moneyPositive)
	_ = v.RegisterValidation("referral_code", referralCode)
	return &Validator{v: v}
}

// Struct validates a struct based on validation tags.
func (val *Validator) Struct(s interface{}) error {
	return val.v.Struct(s)
}

// Var validates a single variable against a tag.
func (val *Validator) Var(field interface{}, tag string) error {
	return val.v.Var(field, tag)
}

// RegisterValidation registers a custom validation function.
func (val *Validator) RegisterValidation(tag string, fn validator.Func) error {
	return val.v.RegisterValidation(tag, fn)
}

// decimalValue exposes decimals to the validator as their string form so
// "required" treats the zero decimal as missing.
func decimalValue(field reflect.Value) interface{} {
	switch d := field.Interface().(type) {
	case decimal.Decimal:
		if d.IsZero() {
			return ""
		}
		return d.String()
	case decimal.NullDecimal:
		if !d.Valid {
			return nil
		}
		return d.Decimal.String()
	}
	return nil
}

func moneyPositive(fl validator.FieldLevel) bool {
	raw, ok := fl.Field().Interface().(string)
	if !ok || raw == "" {
		return false
	}
	d, err := decimal.NewFromString(raw)
	return err == nil && d.IsPositive()
}

func referralCode(fl validator.FieldLevel) bool {
	return referralCodePattern.MatchString(fl.Field().String())
}

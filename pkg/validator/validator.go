package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Code string

const (
	CodeRequired   Code = "REQUIRED"
	CodeTooShort   Code = "TOO_SHORT"
	CodeTooLong    Code = "TOO_LONG"
	CodeInvalidURL Code = "INVALID_URL"
	CodeInvalid    Code = "INVALID"
)

type FieldError struct {
	Field   string `json:"field"`
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

var rules = map[string]struct {
	code    Code
	message func(field, param string) string
}{
	"required": {CodeRequired, func(f, _ string) string { return f + " is required" }},
	"min":      {CodeTooShort, func(f, p string) string { return fmt.Sprintf("%s must be at least %s characters long", f, p) }},
	"max":      {CodeTooLong, func(f, p string) string { return fmt.Sprintf("%s must not exceed %s characters", f, p) }},
	"url":      {CodeInvalidURL, func(f, _ string) string { return f + " must be a valid url" }},
}

// Validator checks struct tags and reports fields by their json names.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: v}
}

func (v *Validator) Validate(i any) ([]FieldError, bool) {
	err := v.validate.Struct(i)
	if err == nil {
		return nil, true
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return []FieldError{{Code: CodeInvalid, Message: err.Error()}}, false
	}

	out := make([]FieldError, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		e := FieldError{Field: fe.Field(), Code: CodeInvalid, Message: fe.Field() + " is invalid"}
		if rule, ok := rules[fe.Tag()]; ok {
			e.Code = rule.code
			e.Message = rule.message(fe.Field(), fe.Param())
		}
		out = append(out, e)
	}

	return out, false
}

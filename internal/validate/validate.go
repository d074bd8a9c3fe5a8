// Package validate wraps go-playground/validator for request DTOs and
// translates its errors into apperr.ValidationError, naming the JSON field
// that failed.
package validate

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/yanizio/portal/internal/apperr"
)

// SlugPattern is the machine-identifier rule for tool slugs.
var SlugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()

	// Report JSON names so errors match what the client sent.
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	_ = val.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return SlugPattern.MatchString(fl.Field().String())
	})
	return val
}

// Struct validates s and returns the first failure as *apperr.ValidationError.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return apperr.Validation(fe.Field(), reason(fe))
	}
	return err
}

// Var validates a single value against tag, reporting failures as field.
func Var(field string, value any, tag string) error {
	err := v.Var(value, tag)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return apperr.Validation(field, reason(fieldErrs[0]))
	}
	return err
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Param() == "1" {
			return "must not be empty"
		}
		return "must be at least " + fe.Param() + " characters"
	case "slug":
		return "must match [a-z0-9-]+"
	case "url":
		return "must be an absolute URL"
	case "oneof":
		return "must be one of " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "failed " + fe.Tag() + " check"
	}
}

package dto

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator for wire payloads. Field names in
// errors are the JSON names, and decimal amounts compare as numbers so
// `gte=0` works on prices.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		v.RegisterCustomTypeFunc(func(field reflect.Value) any {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})
		validate = v
	})
	return validate
}

// Validate checks a payload against its `validate` tags
func Validate(payload any) error {
	return Validator().Struct(payload)
}

// Details turns validator errors into response details
func Details(err error) []ValidationDetail {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}
	details := make([]ValidationDetail, 0, len(errs))
	for _, e := range errs {
		details = append(details, ValidationDetail{Field: e.Namespace(), Message: message(e)})
	}
	return details
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "min", "gte":
		if e.Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "numeric":
		return "Must be numeric"
	}
	return "Invalid value"
}

package handlers

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/markjakearzadon/paymentserver/internal/models"
)

// Violations maps a JSON field name to the rule it broke.
type Violations map[string]string

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// A zero Date counts as missing.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(models.Date); ok && !d.IsZero() {
			return d.Time
		}
		return nil
	}, models.Date{})
	return v
}

// violations turns a validator error into per-field messages. It returns nil
// for errors that are not validation failures.
func violations(err error) Violations {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := Violations{}
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			out[fe.Field()] = "required"
		case "email":
			out[fe.Field()] = "invalid_email"
		case "gte":
			out[fe.Field()] = "must_be_at_least_" + fe.Param()
		default:
			out[fe.Field()] = "invalid"
		}
	}
	return out
}

// Package validation normalizes and checks request bodies. Each write path
// calls exactly one function here and gets back either a clean value or an
// *apperr.ValidationError listing every problem.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pranjalb21/kaviosPix/internal/apperr"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// collect runs struct validation and appends readable messages to ve.
func collect(ve *apperr.ValidationError, s interface{}) {
	err := validate.Struct(s)
	if err == nil {
		return
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		ve.Add(err.Error())
		return
	}
	for _, fe := range errs {
		ve.Add(message(fe.Field(), fe.Tag(), fe.Param()))
	}
}

// checkVar validates a single value against tag under the given field name.
func checkVar(ve *apperr.ValidationError, field string, value interface{}, tag string) {
	err := validate.Var(value, tag)
	if err == nil {
		return
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		ve.Add(err.Error())
		return
	}
	for _, fe := range errs {
		ve.Add(message(field, fe.Tag(), fe.Param()))
	}
}

func message(field, tag, param string) string {
	switch tag {
	case "required":
		return fmt.Sprintf("%s is required.", field)
	case "email":
		return "Invalid email address."
	case "uuid", "uuid4":
		return fmt.Sprintf("%s must be a valid id.", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long.", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long.", field, param)
	default:
		return fmt.Sprintf("%s is invalid (%s).", field, tag)
	}
}

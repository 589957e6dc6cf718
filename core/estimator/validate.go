package estimator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kilianp07/evrange/core/factory"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkDomain validates struct tags and reports the first failing field.
func checkDomain(params any) error {
	err := validate.Struct(params)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Reason: err.Error()}
	}
	fe := verrs[0]
	return &ValidationError{Field: fe.Field(), Reason: describe(fe)}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return fmt.Sprintf("must be a number >= %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be a number <= %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}

// decodeParams converts a raw parameter map into a typed parameter struct.
func decodeParams(raw map[string]any, out any) error {
	if raw == nil {
		raw = map[string]any{}
	}
	if err := factory.DecodeStrict(raw, out); err != nil {
		var ue *factory.UnusedKeysError
		if errors.As(err, &ue) {
			return &ValidationError{Field: ue.Keys[0], Reason: "is not a parameter of this model"}
		}
		return &ValidationError{Reason: err.Error()}
	}
	return nil
}

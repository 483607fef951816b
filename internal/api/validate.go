package api

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// validateStruct returns field errors keyed by JSON path, or nil.
func validateStruct(s any) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"body": err.Error()}
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		switch fe.Tag() {
		case "required":
			out[field] = "This field is required"
		case "min", "gte":
			out[field] = "Value must be at least " + fe.Param()
		case "max", "lte":
			out[field] = "Value must be at most " + fe.Param()
		case "oneof":
			out[field] = "Must be one of: " + fe.Param()
		case "datetime":
			out[field] = "Expected format " + fe.Param()
		default:
			out[field] = "Invalid value"
		}
	}
	return out
}

// Package validation checks input structs with go-playground/validator and
// reports failures as a field -> message map, independent of HTTP.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/angelmondragon/pos-inventory-backend/pkg/errors"
	"github.com/angelmondragon/pos-inventory-backend/pkg/types"
)

// FieldErrors maps a JSON field name to a readable message.
type FieldErrors map[string]string

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	// Money validates as its numeric value so min/max apply.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if m, ok := field.Interface().(types.Money); ok {
			return m.InexactFloat64()
		}
		return nil
	}, types.Money{})
	return v
}

// Check validates dest and returns the field errors, or nil when valid.
func Check(dest any) (FieldErrors, error) {
	err := validate.Struct(dest)
	if err == nil {
		return nil, nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return nil, err
	}
	out := FieldErrors{}
	for _, fe := range errs {
		if _, seen := out[fe.Field()]; !seen {
			out[fe.Field()] = Message(fe)
		}
	}
	return out, nil
}

// Fields is Check with non-field failures folded under "body".
func Fields(dest any) FieldErrors {
	fields, err := Check(dest)
	if err != nil {
		return FieldErrors{"body": err.Error()}
	}
	return fields
}

// Struct validates dest and returns a VALIDATION_ERROR carrying the field
// errors as details.
func Struct(dest any) error {
	fields, err := Check(dest)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	if len(fields) == 0 {
		return nil
	}
	return Error(fields)
}

// Error converts field errors to the typed validation error.
func Error(fields FieldErrors) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string(fields))
}

func Message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "email":
		return "must be a valid email"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	}
	return "is invalid"
}

// internal/form/validate.go
//
// Struct validation for submitted payloads.
//
// Context
//   Handlers decode a POST body into a tagged struct and call Validate.  Any
//   failure comes back as []ErrorField so the JSON response (or a template)
//   can point at the exact field.  Tags are go-playground/validator rules;
//   field names are taken from the `json` tag so messages match what the
//   client sent.
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorField describes a single validation failure.
type ErrorField struct {
	Name    string `json:"field"`
	Message string `json:"message"`
}

// ValidationError wraps []ErrorField.
type ValidationError struct{ Fields []ErrorField }

func (ve *ValidationError) Error() string { return "form validation failed" }

// IsValidationError reports whether err is a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return val
}

// Validator returns the shared instance so callers can register struct
// level rules.
func Validator() *validator.Validate { return v }

// Validate checks s and returns a *ValidationError on rule failures.
func Validate(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make([]ErrorField, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, ErrorField{Name: fieldPath(fe), Message: message(fe)})
	}
	return &ValidationError{Fields: out}
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must have at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must have at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "email":
		return "must be a valid e-mail address"
	case "gte":
		return fmt.Sprintf("must be ≥ %s", fe.Param())
	case "in_range":
		return "must point at one of the options"
	case "ltfield":
		return fmt.Sprintf("must be less than %s", strings.ToLower(fe.Param()))
	default:
		return fmt.Sprintf("failed %q", fe.Tag())
	}
}

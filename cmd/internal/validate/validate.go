// Package validate checks request structs before they are sent to the backend.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidInput is matched by every *InputError.
var ErrInvalidInput = errors.New("invalid input")

// InputError lists the offending fields by their JSON name.
type InputError struct {
	Fields map[string]string
}

func (e *InputError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	msgs := make([]string, 0, len(names))
	for _, name := range names {
		msgs = append(msgs, e.Fields[name])
	}
	return "invalid input: " + strings.Join(msgs, " ")
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

// Field returns a single-field InputError.
func Field(name, msg string) *InputError {
	return &InputError{Fields: map[string]string{name: msg}}
}

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return val
}

// Struct validates payload against its `validate` tags.
// It returns nil or an *InputError.
func Struct(payload any) error {
	err := v.Struct(payload)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = message(fe)
	}
	return &InputError{Fields: fields}
}

func message(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", name)
	case "email":
		return fmt.Sprintf("The %s must be a valid email address.", name)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("The %s must be at least %s characters.", name, fe.Param())
		}
		return fmt.Sprintf("The %s must be at least %s.", name, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("The %s must be at most %s characters.", name, fe.Param())
		}
		return fmt.Sprintf("The %s must be at most %s.", name, fe.Param())
	case "gt":
		return fmt.Sprintf("The %s must be greater than %s.", name, fe.Param())
	case "gte":
		return fmt.Sprintf("The %s must be at least %s.", name, fe.Param())
	case "lte":
		return fmt.Sprintf("The %s must be at most %s.", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("The %s must be one of: %s.", name, fe.Param())
	case "eqfield":
		return fmt.Sprintf("The %s field must be equal to %s field.", name, fe.Param())
	case "ltefield":
		return fmt.Sprintf("The %s must not exceed %s.", name, fe.Param())
	default:
		return fmt.Sprintf("The %s field is invalid.", name)
	}
}

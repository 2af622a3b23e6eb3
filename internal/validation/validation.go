// Package validation runs the explicit validation step that precedes every
// write to a store.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"catapi/internal/models"
)

// FieldError describes one failed constraint.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// Result is the outcome of a validation pass. A Result with no errors
// is a success.
type Result struct {
	Errors []FieldError
}

// OK reports whether validation passed.
func (r Result) OK() bool {
	return len(r.Errors) == 0
}

// Err returns nil on success, otherwise an *Error carrying the field list.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &Error{Fields: r.Errors}
}

// Error is returned by services when input fails validation.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Fail builds a single-field failure.
func Fail(field, tag, message string) error {
	return &Error{Fields: []FieldError{{Field: field, Tag: tag, Message: message}}}
}

// Validator wraps go-playground/validator with the domain rules.
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator with the custom tags registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return strings.ToLower(fld.Name)
		}
		return name
	})

	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("notfuture", notFuture)
	v.RegisterStructValidation(pointValidation, models.Point{})

	return &Validator{validate: v}
}

// Validate checks s against its struct tags.
func (v *Validator) Validate(s any) Result {
	err := v.validate.Struct(s)
	if err == nil {
		return Result{}
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Result{Errors: []FieldError{{Field: "", Tag: "invalid", Message: err.Error()}}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, e := range verrs {
		out = append(out, FieldError{
			Field:   e.Field(),
			Tag:     e.Tag(),
			Message: message(e),
		})
	}
	return Result{Errors: out}
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", e.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", e.Field())
	case "notfuture":
		return fmt.Sprintf("%s must not be in the future", e.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", e.Field(), e.Param())
	case "geopoint":
		return fmt.Sprintf("%s must be a GeoJSON Point with [longitude, latitude] on the globe", e.Field())
	case "min", "max", "gt", "gte", "lt", "lte":
		return fmt.Sprintf("%s failed on the '%s=%s' rule", e.Field(), e.Tag(), e.Param())
	default:
		return fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
}

func notFuture(fl validator.FieldLevel) bool {
	t, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return false
	}
	return !t.After(time.Now())
}

func pointValidation(sl validator.StructLevel) {
	p, ok := sl.Current().Interface().(models.Point)
	if !ok {
		return
	}
	// Zero points are reported by "required" on the parent field.
	if p.Type == "" && p.Coordinates == nil {
		return
	}
	if !p.Valid() {
		sl.ReportError(p.Coordinates, "coordinates", "Coordinates", "geopoint", "")
	}
}

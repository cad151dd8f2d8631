package httpx

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NewValidator returns a validator that reports JSON field names and knows
// the dashboard specific rules.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("nodoubledot", func(fl validator.FieldLevel) bool {
		return !strings.Contains(fl.Field().String(), "..")
	})
	return v
}

// Validate runs struct validation and converts failures into a validation
// Error with one FieldError per failing field.
func Validate(v *validator.Validate, target any) error {
	err := v.Struct(target)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return &Error{Kind: ErrValidation, Message: "Invalid input data", Fields: fields}
}

// InvalidInput wraps a body decoding failure.
func InvalidInput(err error) error {
	return &Error{Kind: ErrValidation, Message: "Invalid input data", Fields: []FieldError{{Field: "body", Message: bodyMessage(err)}}}
}

func bodyMessage(err error) string {
	switch {
	case errors.Is(err, ErrEmptyBody):
		return "Request body is required"
	case errors.Is(err, ErrBodyTooLarge):
		return "Request body is too large"
	}
	return "Request body must be valid JSON"
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Invalid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be less than %s characters", fe.Field(), fe.Param())
	case "oneof":
		return "Invalid role specified"
	case "eqfield":
		return "Passwords do not match"
	case "nodoubledot":
		return fmt.Sprintf("%s cannot contain consecutive dots", fe.Field())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

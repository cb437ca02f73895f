// Package validate envuelve go-playground/validator: los campos se nombran
// por su tag json y cualquier fallo sale como apperr.ErrValidation.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"client-docs-portal/internal/platform/apperr"

	"github.com/go-playground/validator/v10"
)

var std = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})
	return v
}

// Struct valida los tags `validate` de s. Si s no es un struct (mapas,
// slices) no hay nada que validar.
func Struct(s any) error {
	err := std.Struct(s)
	if err == nil {
		return nil
	}
	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return nil
	}
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		return apperr.Validation(message(fields[0]))
	}
	return apperr.Validation(err.Error())
}

// Email normaliza (trim + minúsculas) y valida el formato.
func Email(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", apperr.Validation("email required")
	}
	if err := std.Var(email, "email"); err != nil {
		return "", apperr.Validation("invalid email")
	}
	return email, nil
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " required"
	case "email":
		return "invalid email"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must have at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must have at least %s items", field, fe.Param())
	case "uuid":
		return "invalid " + field
	}
	return fmt.Sprintf("invalid %s (%s)", field, fe.Tag())
}

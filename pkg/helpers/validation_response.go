package helpers

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// FormatValidationError formats a validator.FieldError into a message
func FormatValidationError(fe validator.FieldError) string {
	field := fe.Field()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required", field)
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address", field)
	case "min":
		return fmt.Sprintf("The %s field must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("The %s field must not exceed %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("The %s field must be one of: %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("The %s field must be greater than %s", field, fe.Param())
	case "strong_password":
		return "Password must be at least 8 characters and contain uppercase, lowercase and a number"
	case "currency_code":
		return fmt.Sprintf("The %s field must be a currency code", field)
	case "crypto_address":
		return fmt.Sprintf("The %s field must be a valid wallet address", field)
	default:
		return fmt.Sprintf("The %s field is invalid", field)
	}
}

// ValidationFields flattens validator errors into field -> message. The
// second result is false when err is not a validator error.
func ValidationFields(err error) (map[string]string, bool) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil, false
	}
	fields := make(map[string]string, len(validationErrors))
	for _, fe := range validationErrors {
		fields[fe.Field()] = FormatValidationError(fe)
	}
	return fields, true
}

// FirstMessage returns the message of the first failing field, in struct order.
func FirstMessage(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		return FormatValidationError(validationErrors[0])
	}
	return "The given data was invalid"
}

package helpers

import (
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	currencyCodeRegex  = regexp.MustCompile(`^[A-Z]{3,5}$`)
	cryptoAddressRegex = regexp.MustCompile(`^[A-Za-z0-9:]{26,100}$`)
)

// CustomValidator wraps go-playground validator with the platform's rules
type CustomValidator struct {
	validate *validator.Validate
}

// NewCustomValidator creates a validator that reports fields by their json name.
func NewCustomValidator() *CustomValidator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	v.RegisterValidation("strong_password", validateStrongPassword)
	v.RegisterValidation("currency_code", validateCurrencyCode)
	v.RegisterValidation("crypto_address", validateCryptoAddress)

	return &CustomValidator{validate: v}
}

// Validate validates a struct
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validate.Struct(i)
}

// validateStrongPassword requires 8+ characters with an upper case letter,
// a lower case letter and a digit.
func validateStrongPassword(fl validator.FieldLevel) bool {
	password := fl.Field().String()
	if len(password) < 8 {
		return false
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

// validateCurrencyCode accepts ticker symbols such as USDT or TRX,
// case-insensitively.
func validateCurrencyCode(fl validator.FieldLevel) bool {
	return currencyCodeRegex.MatchString(strings.ToUpper(strings.TrimSpace(fl.Field().String())))
}

// validateCryptoAddress checks the shape of a payout address only; the
// admin verifies it on-chain before approving.
func validateCryptoAddress(fl validator.FieldLevel) bool {
	return cryptoAddressRegex.MatchString(strings.TrimSpace(fl.Field().String()))
}

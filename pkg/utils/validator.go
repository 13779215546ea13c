package utils

import (
	"regexp"
	"strings"

	"device-fleet-manager/pkg/lasrra"

	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate

	phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
	emailPattern = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)
	macPattern   = regexp.MustCompile(`^[0-9A-Fa-f]{2}([:-]?[0-9A-Fa-f]{2})*$`)
)

func init() {
	validate = validator.New()

	_ = validate.RegisterValidation("phone", validatePhone)
	_ = validate.RegisterValidation("lasrra", validateLasrra)
	_ = validate.RegisterValidation("mac", validateMAC)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// validatePhone accepts local and international numbers; spaces are ignored.
func validatePhone(fl validator.FieldLevel) bool {
	phone := strings.ReplaceAll(fl.Field().String(), " ", "")
	return phonePattern.MatchString(phone)
}

func validateLasrra(fl validator.FieldLevel) bool {
	return lasrra.IsValid(fl.Field().String())
}

func validateMAC(fl validator.FieldLevel) bool {
	return macPattern.MatchString(fl.Field().String())
}

func IsValidEmail(email string) bool {
	email = strings.TrimSpace(strings.ToLower(email))
	return emailPattern.MatchString(email)
}

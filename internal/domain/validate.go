package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// phonePattern accepts E.164-like numbers: a leading + and 2-15 digits.
var phonePattern = regexp.MustCompile(`^\+\d{2,15}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("phone", validatePhone)
	return v
}

func validatePhone(fl validator.FieldLevel) bool {
	return phonePattern.MatchString(fl.Field().String())
}

// ValidPhoneNumber reports whether s is an acceptable contact number.
func ValidPhoneNumber(s string) bool {
	return phonePattern.MatchString(s)
}

// Validate checks struct tags on v and returns a *ValidationError naming the
// first offending field.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return NewValidationError("", err.Error())
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Namespace())
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	return NewValidationError(field, describeTag(fe))
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "phone":
		return fmt.Sprintf("%q is not a valid phone number (expected + followed by 2-15 digits)", fe.Value())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// Validator adapts Validate to echo's Validator interface.
type Validator struct{}

// Validate implements echo.Validator.
func (Validator) Validate(i interface{}) error {
	return Validate(i)
}

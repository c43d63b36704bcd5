package domain

import (
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// validatorInstance is a package-level validator instance.
// Using a single instance is more efficient as it caches struct information.
var validatorInstance = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return v
}

// Validator returns the shared validator with the domain's custom tags registered.
func Validator() *validator.Validate {
	return validatorInstance
}

// Validate checks struct tags on s.
func Validate(s any) error {
	return validatorInstance.Struct(s)
}

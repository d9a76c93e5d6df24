// internal/utils/validator.go
package utils

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

// Label sizes are inches, e.g. 4x6 or 4.25x7.83.
var labelSizePattern = regexp.MustCompile(`^\d{1,2}(\.\d{1,3})?x\d{1,2}(\.\d{1,3})?$`)

func init() {
	validate = validator.New()
	validate.RegisterValidation("label_size", validateLabelSize)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// ValidateVar validates a single value against a tag, e.g. "required,max=64".
func ValidateVar(v interface{}, tag string) error {
	return validate.Var(v, tag)
}

func IsLabelSize(size string) bool {
	return labelSizePattern.MatchString(size)
}

func validateLabelSize(fl validator.FieldLevel) bool {
	return IsLabelSize(fl.Field().String())
}

// Validation tags for common fields
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   strings.ToLower(e.Field()),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "printascii":
		return e.Field() + " must be printable ASCII"
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param() + " characters"
	case "label_size":
		return e.Field() + " must look like 4x6 or 4.25x7.83"
	default:
		return e.Field() + " is invalid"
	}
}

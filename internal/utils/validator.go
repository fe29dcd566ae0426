// internal/utils/validator.go
package utils

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/javajoker/trademark-backend/internal/workflow"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("nice_class", validateNiceClass)
	validate.RegisterValidation("workflow_status", validateWorkflowStatus)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// Nice classification has 45 classes of goods and services.
func validateNiceClass(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Field().String())
	return err == nil && n >= 1 && n <= 45
}

func validateWorkflowStatus(fl validator.FieldLevel) bool {
	_, err := workflow.ParseStatus(fl.Field().String())
	return err == nil
}

type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
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
	case "max":
		return e.Field() + " must be at most " + e.Param() + " characters"
	case "oneof":
		return e.Field() + " must be one of: " + e.Param()
	case "nice_class":
		return "Nice class must be a number between 1 and 45"
	case "workflow_status":
		return e.Field() + " is not a known application status"
	default:
		return e.Field() + " is invalid"
	}
}

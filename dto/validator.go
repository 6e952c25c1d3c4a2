package dto

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lac-hong-legacy/lingo_api/model"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	validate.RegisterValidation("placement_level", validatePlacementLevel)
}

func GetValidator() *validator.Validate {
	return validate
}

func validatePlacementLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case model.PlacementBeginner, model.PlacementIntermediate, model.PlacementAdvanced:
		return true
	}
	return false
}

type ValidationError struct {
	Field   string `json:"field" example:"xp"`
	Message string `json:"message" example:"xp must be at least 0"`
}

type ValidationErrorResponse struct {
	Code    int               `json:"code" example:"400"`
	Message string            `json:"message" example:"Validation failed"`
	Errors  []ValidationError `json:"errors"`
}

func FormatValidationErrors(err error) []ValidationError {
	var errors []ValidationError

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fieldError := range validationErrors {
			var message string

			switch fieldError.Tag() {
			case "required":
				message = fieldError.Field() + " is required"
			case "min", "gte":
				message = fieldError.Field() + " must be at least " + fieldError.Param()
			case "max", "lte":
				message = fieldError.Field() + " must be at most " + fieldError.Param()
			case "placement_level":
				message = fieldError.Field() + " must be one of: beginner intermediate advanced"
			default:
				message = fieldError.Field() + " is invalid"
			}

			errors = append(errors, ValidationError{
				Field:   fieldError.Field(),
				Message: message,
			})
		}
	}

	return errors
}

type Validator interface {
	Validate() error
}

func CreateValidationErrorResponse(err error) ValidationErrorResponse {
	return ValidationErrorResponse{
		Code:    400,
		Message: "Validation failed",
		Errors:  FormatValidationErrors(err),
	}
}

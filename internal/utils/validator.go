// internal/utils/validator.go
package utils

import (
	"math"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/municipal/procurement-backend/internal/engine"
)

var (
	validate *validator.Validate
	// moneyScale is the number of decimals accepted by the money rule.
	moneyScale = 2
)

func init() {
	validate = validator.New()
	validate.RegisterValidation("contract_code", validateContractCode)
	validate.RegisterValidation("phase_code", validatePhaseCode)
	validate.RegisterValidation("money", validateMoney)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func validateContractCode(fl validator.FieldLevel) bool {
	return engine.IsValidTypeCode(fl.Field().String())
}

func validatePhaseCode(fl validator.FieldLevel) bool {
	return engine.IsValidPhaseCode(fl.Field().String())
}

// SetCurrencyScale sets the decimals accepted by the money rule. Call it at
// startup, before requests are validated.
func SetCurrencyScale(scale int) {
	moneyScale = scale
}

// validateMoney accepts non-negative amounts with at most moneyScale decimals.
func validateMoney(fl validator.FieldLevel) bool {
	amount := fl.Field().Float()
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return false
	}
	units := amount * math.Pow10(moneyScale)
	return math.Abs(units-math.Round(units)) < 1e-6
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
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param()
	case "oneof":
		return e.Field() + " must be one of " + e.Param()
	case "contract_code":
		return e.Field() + " must be 2-20 uppercase letters, digits or underscores"
	case "phase_code":
		return e.Field() + " must be 2-30 uppercase letters, digits or underscores"
	case "money":
		return e.Field() + " must be a non-negative amount with at most two decimals"
	default:
		return e.Field() + " is invalid"
	}
}

package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Error   string            `json:"error"`             // Error message
	Details map[string]string `json:"details,omitempty"` // Validation details, keyed by JSON field name
}

// ValidationHelper provides shared validation for request bodies and CLI input
type ValidationHelper struct {
	validator *validator.Validate
}

// NewValidationHelper creates a validator that reports fields by their JSON
// name, falling back to the Go field name for untagged structs.
func NewValidationHelper() *ValidationHelper {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &ValidationHelper{validator: v}
}

// ValidateStruct validates a struct and returns validation errors
func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// SendErrorResponse sends a JSON error response. Field details are included
// when validationErr carries validator errors.
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResp := ErrorResponse{Error: message}

	var fieldErrs validator.ValidationErrors
	if errors.As(validationErr, &fieldErrs) {
		errorResp.Details = make(map[string]string, len(fieldErrs))
		for _, err := range fieldErrs {
			detail := fmt.Sprintf("failed on '%s' tag", err.Tag())
			if err.Param() != "" {
				detail = fmt.Sprintf("failed on '%s=%s' tag", err.Tag(), err.Param())
			}
			errorResp.Details[err.Field()] = detail
		}
	}

	json.NewEncoder(w).Encode(errorResp)
}

package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/garmentflow/backend/internal/domain/fulfillment"
	"github.com/garmentflow/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var setupOnce sync.Once

// SetupValidator installs RegisterValidations on gin's validator engine once per process
func SetupValidator() {
	setupOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			RegisterValidations(v)
		}
	})
}

// RegisterValidations reports fields by their json (or form) name and adds the "mobile" tag
func RegisterValidations(v *validator.Validate) {
	v.RegisterTagNameFunc(fieldName)
	_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		return fulfillment.IsValidMobileNumber(fl.Field().String())
	})
}

func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

// fixed messages; parametrised tags are handled in fieldMessage
var tagMessages = map[string]string{
	"required": "This field is required",
	"email":    "Invalid email format",
	"mobile":   "Invalid mobile number",
	"uuid":     "Invalid UUID format",
	"url":      "Invalid URL format",
	"dive":     "Invalid list entry",
}

var boundMessages = map[string]string{
	"gt":    "Must be greater than %s",
	"gte":   "Must be greater than or equal to %s",
	"lt":    "Must be less than %s",
	"lte":   "Must be less than or equal to %s",
	"oneof": "Must be one of: %s",
	"len":   "Must be exactly %s characters",
}

func fieldMessage(e validator.FieldError) string {
	if msg, ok := tagMessages[e.Tag()]; ok {
		return msg
	}
	if format, ok := boundMessages[e.Tag()]; ok {
		return fmt.Sprintf(format, e.Param())
	}
	if e.Tag() == "min" || e.Tag() == "max" {
		bound := map[string]string{"min": "at least", "max": "at most"}[e.Tag()]
		if e.Kind() == reflect.String {
			return fmt.Sprintf("Must be %s %s characters", bound, e.Param())
		}
		return fmt.Sprintf("Must be %s %s", bound, e.Param())
	}
	return "Invalid value"
}

// FormatValidationErrors turns a bind error into the VALIDATION_ERROR envelope.
// Non-validator errors (bad JSON, wrong types) carry no field details.
func FormatValidationErrors(err error, requestID string) dto.Response {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return dto.NewValidationErrorResponse("Malformed request body", requestID, nil)
	}
	details := make([]dto.ValidationDetail, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, dto.ValidationDetail{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// HandleValidationError writes a 400 for a failed bind
func HandleValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, GetRequestID(c)))
}

package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	apperrors "bankops/pkg/errors"
	"bankops/pkg/logger"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	return fmt.Sprintf("validation failed: %d error(s)", len(v))
}

type RequestValidator struct {
	validate *validator.Validate
	log      *logger.Logger
}

func NewRequestValidator(log *logger.Logger) *RequestValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &RequestValidator{
		validate: v,
		log:      log,
	}
}

// Validate checks req against its struct tags and returns a VALIDATION_ERROR
// AppError listing every failing field.
func (v *RequestValidator) Validate(req any) error {
	err := v.validate.Struct(req)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		v.log.Error("Unexpected validation failure", "error", err)
		return apperrors.InvalidInput("invalid request")
	}

	fields := translate(validationErrs)
	details := make(map[string]any, len(fields))
	for _, f := range fields {
		details[f.Field] = f.Message
	}
	return apperrors.Validation(fields.Error(), details)
}

func translate(errs validator.ValidationErrors) ValidationErrors {
	out := make(ValidationErrors, 0, len(errs))
	for _, err := range errs {
		out = append(out, ValidationError{
			Field:   err.Field(),
			Message: message(err),
		})
	}
	return out
}

func message(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", err.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", err.Param())
	case "numeric":
		return "must contain digits only"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", err.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", err.Param())
	case "nefield":
		return "must differ from the source account"
	default:
		return fmt.Sprintf("failed %s validation", err.Tag())
	}
}

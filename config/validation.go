package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const tagExpiryStatus = "expirystatus"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report fields by their config path rather than Go names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation(tagExpiryStatus, func(fl validator.FieldLevel) bool {
		status := fl.Field().Int()
		return status >= 400 && status <= 599
	}); err != nil {
		panic(err)
	}
	return v
}

// Validate checks every section and joins all findings into one error.
// Each finding is a *ConfigError naming the dotted field path.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New(errMsgConfigNotInitialized)
	}

	var errs []error
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs = append(errs, fieldError(fe))
		}
	}

	if err := cfg.Observability.Validate(); err != nil {
		errs = append(errs, NewValidationError("observability", err.Error()))
	}

	return errors.Join(errs...)
}

func fieldError(fe validator.FieldError) *ConfigError {
	// Namespace is "Config.client.base_url"; drop the root type name
	_, field, _ := strings.Cut(fe.Namespace(), ".")

	switch fe.Tag() {
	case "required", "required_with":
		return NewMissingFieldError(field)
	case "oneof":
		return NewInvalidFieldError(field, fmt.Sprintf("invalid value %q", fmt.Sprint(fe.Value())), strings.Fields(fe.Param()))
	case tagExpiryStatus:
		return NewInvalidFieldError(field, fmt.Sprintf("%v is not an HTTP error status (400-599)", fe.Value()), nil)
	case "url":
		return NewInvalidFieldError(field, "must be an absolute URL", nil)
	default:
		if fe.Param() != "" {
			return NewValidationError(field, fmt.Sprintf("failed %s=%s", fe.Tag(), fe.Param()))
		}
		return NewValidationError(field, "failed "+fe.Tag())
	}
}

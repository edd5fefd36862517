package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// containerNamePattern matches the names Docker accepts for containers.
var containerNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

var definitionValidator = newDefinitionValidator()

func newDefinitionValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("containername", func(fl validator.FieldLevel) bool {
		return containerNamePattern.MatchString(fl.Field().String())
	})
	return v
}

// ValidateDefinition checks a single definition's required fields and formats.
func ValidateDefinition(def ContainerDefinition) error {
	err := definitionValidator.Struct(def)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: container '%s': %v", ErrInvalidConfig, def.Name, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return fmt.Errorf("%w: container '%s': %s", ErrInvalidConfig, def.Name, strings.Join(msgs, "; "))
}

// ValidateDefinitions validates every definition and joins the failures.
func ValidateDefinitions(defs []ContainerDefinition) error {
	var errs []error
	for _, d := range defs {
		if err := ValidateDefinition(d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func describeFieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "ContainerDefinition.")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", strings.ToLower(field))
	case "containername":
		return fmt.Sprintf("%s %q is not a valid container name", strings.ToLower(field), fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", strings.ToLower(field), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", strings.ToLower(field), fe.Tag())
	}
}

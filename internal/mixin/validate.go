package mixin

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/mark3labs/swagger2mixin/internal/spec"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func descriptorValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = validate.RegisterValidation("httpverb", func(fl validator.FieldLevel) bool {
			_, ok := spec.ParseHttpMethod(fl.Field().String())
			return ok
		})
	})
	return validate
}

// ValidateDescriptor checks the structural requirements of a descriptor.
func ValidateDescriptor(m spec.MethodDescriptor) error {
	err := descriptorValidator().Struct(m)
	if err == nil {
		return nil
	}
	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	messages := make([]string, 0, len(valErrs))
	for _, ve := range valErrs {
		messages = append(messages, fieldPath(ve)+": "+formatValidationError(ve))
	}
	return fmt.Errorf("%w: %s", ErrInvalidDescriptor, strings.Join(messages, "; "))
}

// fieldPath drops the struct name prefix, e.g. "params[0].name".
func fieldPath(ve validator.FieldError) string {
	ns := ve.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func formatValidationError(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "required"
	case "startswith":
		return fmt.Sprintf("must start with %q", ve.Param())
	case "httpverb":
		verbs := make([]string, 0, len(spec.AllMethods))
		for _, m := range spec.AllMethods {
			verbs = append(verbs, string(m))
		}
		return fmt.Sprintf("must be one of: %s (got %q)", strings.Join(verbs, " "), ve.Value())
	default:
		if ve.Param() != "" {
			return fmt.Sprintf("failed %s=%s validation", ve.Tag(), ve.Param())
		}
		return fmt.Sprintf("failed %s validation", ve.Tag())
	}
}

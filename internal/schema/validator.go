// Package schema validates outbound events before they are published.
package schema

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator checks events against their struct tag constraints.
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator.
func New() *Validator {
	return &Validator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate returns an error listing every violated constraint of event.
func (v *Validator) Validate(event any) error {
	err := v.validate.Struct(event)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	return fmt.Errorf("invalid %T: %s", event, strings.Join(FormatValidationErrors(verrs), "; "))
}

// FormatValidationErrors renders validator errors one per field.
func FormatValidationErrors(errs validator.ValidationErrors) []string {
	out := make([]string, 0, len(errs))
	for _, fe := range errs {
		msg := fmt.Sprintf("field '%s' failed on the '%s' tag", fe.Field(), fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("%s (param: %s)", msg, fe.Param())
		}
		out = append(out, msg)
	}
	return out
}

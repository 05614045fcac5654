package model

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// TagRule builds a Rule that checks the field with a validator tag expression such as
// "required" or "required,max=255". messages maps a failing tag name to the message
// recorded for the field; tags without a message fall back to the validator's own text.
func TagRule(m *Model, field, tag string, messages map[string]string) Rule {
	return func() string {
		value, _ := m.Field(field)
		err := validate.Var(value, tag)
		if err == nil {
			return ""
		}

		var validationErrs validator.ValidationErrors
		if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
			return err.Error()
		}

		failed := validationErrs[0].Tag()
		if msg, ok := messages[failed]; ok {
			return msg
		}
		return field + " failed on the '" + failed + "' rule"
	}
}

// Combine returns a Rule that runs rules in order and reports the first message.
func Combine(rules ...Rule) Rule {
	return func() string {
		for _, rule := range rules {
			if rule == nil {
				continue
			}
			if msg := rule(); msg != "" {
				return msg
			}
		}
		return ""
	}
}

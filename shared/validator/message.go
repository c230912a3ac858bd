package validator

import (
	"errors"
	"strings"

	val "github.com/go-playground/validator/v10"
)

var messages = map[string]string{
	"required":    "{field} is required",
	"oneof":       "{field} must be one of {param}",
	"max":         "{field} must be at most {param}",
	"min":         "{field} must be at least {param}",
	"gt":          "{field} must be greater than {param}",
	"uuid":        "{field} must be a valid UUID",
	"datetime":    "{field} must be a date in {param} format",
	"mimetypes":   "{field} must be one of {param}",
	"maxfilesize": "{field} must not exceed {param} MB",
}

// message reports the first failing field in plain words.
func message(err error) string {
	var valErrors val.ValidationErrors
	if !errors.As(err, &valErrors) {
		return err.Error()
	}

	for _, valErr := range valErrors {
		template, ok := messages[valErr.Tag()]
		if !ok {
			continue
		}

		param := valErr.Param()
		if valErr.Tag() == "datetime" {
			param = "YYYY-MM-DD"
		}

		return strings.NewReplacer("{field}", valErr.Field(), "{param}", param).Replace(template)
	}

	return valErrors.Error()
}

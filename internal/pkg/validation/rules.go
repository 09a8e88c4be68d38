package validation

import (
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Validation rule patterns
var (
	// Login: lowercase letters, digits, dot, underscore and dash
	LoginPattern = `^[a-z0-9._-]+$`

	LoginMinLength = 3
	LoginMaxLength = 50

	// Password min length
	PasswordMinLength = 6

	// Dates are plain calendar days
	DateLayout = "2006-01-02"
)

// CompiledPatterns caches compiled regex patterns for better performance
var CompiledPatterns = struct {
	Login *regexp.Regexp
}{
	Login: regexp.MustCompile(LoginPattern),
}

// String validation
type StringValidation struct {
	Value    string
	MinLen   int
	MaxLen   int
	Required bool
	Pattern  *regexp.Regexp
}

// NewStringValidation creates a new string validation
func NewStringValidation(value string) *StringValidation {
	return &StringValidation{
		Value:    value,
		Required: true,
	}
}

// WithMinLength sets minimum length
func (v *StringValidation) WithMinLength(min int) *StringValidation {
	v.MinLen = min
	return v
}

// WithMaxLength sets maximum length
func (v *StringValidation) WithMaxLength(max int) *StringValidation {
	v.MaxLen = max
	return v
}

// WithPattern sets regex pattern
func (v *StringValidation) WithPattern(pattern *regexp.Regexp) *StringValidation {
	v.Pattern = pattern
	return v
}

// WithRequired sets if field is required
func (v *StringValidation) WithRequired(required bool) *StringValidation {
	v.Required = required
	return v
}

// Validate performs validation
func (v *StringValidation) Validate() bool {
	if v.Required && v.Value == "" {
		return false
	}
	if !v.Required && v.Value == "" {
		return true
	}
	if v.MinLen > 0 && len(v.Value) < v.MinLen {
		return false
	}
	if v.MaxLen > 0 && len(v.Value) > v.MaxLen {
		return false
	}
	if v.Pattern != nil && !v.Pattern.MatchString(v.Value) {
		return false
	}
	return true
}

// IsValidLogin checks a student login
func IsValidLogin(login string) bool {
	return NewStringValidation(login).
		WithMinLength(LoginMinLength).
		WithMaxLength(LoginMaxLength).
		WithPattern(CompiledPatterns.Login).
		Validate()
}

// IsValidDate checks an optional YYYY-MM-DD date
func IsValidDate(value string) bool {
	if value == "" {
		return true
	}
	_, err := time.Parse(DateLayout, value)
	return err == nil
}

// RegisterRules adds the custom tags used by request DTOs:
// login, videoid and isodate. Field errors carry the json name.
func RegisterRules(v *validator.Validate) error {
	v.RegisterTagNameFunc(jsonFieldName)

	if err := v.RegisterValidation("login", func(fl validator.FieldLevel) bool {
		return IsValidLogin(fl.Field().String())
	}); err != nil {
		return err
	}

	if err := v.RegisterValidation("videoid", func(fl validator.FieldLevel) bool {
		return fl.Field().Int() > 0
	}); err != nil {
		return err
	}

	return v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		return IsValidDate(fl.Field().String())
	})
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

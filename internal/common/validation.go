package common

import (
	"fmt"
	"net/mail"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/joseph-ayodele/docindex/constants"
)

// ValidationError represents validation failures
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Validator provides validation utilities
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		errors: make([]ValidationError, 0),
	}
}

// Field validates a field and collects errors
func (v *Validator) Field(fieldName string, value interface{}, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, *err)
			// first failing rule per field is enough
			break
		}
	}
	return v
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// ErrorMessage returns a combined error message as string
func (v *Validator) ErrorMessage() string {
	if !v.HasErrors() {
		return ""
	}

	var messages []string
	for _, err := range v.errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// Err returns an AppError carrying ErrValidation, or nil.
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	return NewAppError(CodeValidation, v.ErrorMessage(), ErrValidation)
}

// ValidationRule represents a single validation rule
type ValidationRule func(fieldName string, value interface{}) *ValidationError

func asString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case *string:
		if v == nil {
			return "", false
		}
		return *v, true
	}
	return "", false
}

// Required - Common validation rules
func Required(fieldName string, value interface{}) *ValidationError {
	if value == nil {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}
	if s, ok := asString(value); ok && strings.TrimSpace(s) == "" {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}
	return nil
}

func MinLength(min int) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		str, ok := asString(value)
		if !ok {
			return nil
		}
		if utf8.RuneCountInString(str) < min {
			return &ValidationError{
				Field:   fieldName,
				Value:   value,
				Message: fmt.Sprintf("must be at least %d characters", min),
			}
		}
		return nil
	}
}

func MaxLength(max int) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		str, ok := asString(value)
		if !ok {
			return nil
		}
		if utf8.RuneCountInString(str) > max {
			return &ValidationError{
				Field:   fieldName,
				Value:   value,
				Message: fmt.Sprintf("must be at most %d characters", max),
			}
		}
		return nil
	}
}

func Email(fieldName string, value interface{}) *ValidationError {
	str, ok := asString(value)
	if !ok {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be a string"}
	}
	addr, err := mail.ParseAddress(str)
	if err != nil || addr.Address != str {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be a valid email address"}
	}
	return nil
}

var unsafeFilenameParts = []string{"..", "/", "\\", "<", ">", ":", "\"", "|", "?", "*"}

// SafeFilename rejects path traversal, separators, shell metacharacters and control characters.
func SafeFilename(fieldName string, value interface{}) *ValidationError {
	str, ok := asString(value)
	if !ok {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be a string"}
	}
	for _, part := range unsafeFilenameParts {
		if strings.Contains(str, part) {
			return &ValidationError{Field: fieldName, Value: value, Message: "contains characters that are not allowed"}
		}
	}
	for _, r := range str {
		if unicode.IsControl(r) {
			return &ValidationError{Field: fieldName, Value: value, Message: "contains control characters"}
		}
	}
	return nil
}

// AllowedExtension checks the filename's extension against the upload allow-list.
func AllowedExtension(fieldName string, value interface{}) *ValidationError {
	str, ok := asString(value)
	if !ok {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be a string"}
	}
	if !constants.IsAllowedExt(filepath.Ext(str)) {
		return &ValidationError{
			Field:   fieldName,
			Value:   value,
			Message: "has an unsupported file type; allowed: " + strings.Join(constants.AllowedExtList(), ", "),
		}
	}
	return nil
}

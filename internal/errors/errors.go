// Package errors provides a lightweight structured error type (PackError)
// for category-based classification of pipeline failures in the engine and CLI.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCategory represents the category of a packhooks error for classification
type ErrorCategory string

const (
	// Raised before any stage runs.
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// Raised while the pipeline runs.
	CategoryHandler    ErrorCategory = "handler"
	CategoryHost       ErrorCategory = "host"
	CategoryFileSystem ErrorCategory = "filesystem"

	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
)

// PackError is a structured error with category, severity and context.
// Nothing in the engine retries: every PackError is terminal for the
// build invocation that produced it.
type PackError struct {
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for PackError
type ContextFields map[string]any

// Error implements the error interface
func (e *PackError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *PackError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *PackError) WithContext(key string, value any) *PackError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new PackError
func New(category ErrorCategory, severity ErrorSeverity, message string) *PackError {
	return &PackError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new PackError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *PackError {
	return &PackError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// As returns the outermost PackError in err's chain, if any.
func As(err error) (*PackError, bool) {
	var pe *PackError
	if stderrors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsCategory checks if an error (or anything it wraps) belongs to a specific category.
// A joined error matches when any of its members does.
func IsCategory(err error, category ErrorCategory) bool {
	if err == nil {
		return false
	}
	if pe, ok := err.(*PackError); ok && pe.Category == category {
		return true
	}
	switch x := err.(type) {
	case interface{ Unwrap() []error }:
		for _, e := range x.Unwrap() {
			if IsCategory(e, category) {
				return true
			}
		}
		return false
	case interface{ Unwrap() error }:
		return IsCategory(x.Unwrap(), category)
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not a PackError
func GetCategory(err error) ErrorCategory {
	if pe, ok := As(err); ok {
		return pe.Category
	}
	return CategoryInternal
}

// Classified reports whether err already carries a PackError.
func Classified(err error) bool {
	_, ok := As(err)
	return ok
}

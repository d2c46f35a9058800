// Package errors provides centralized, categorized error handling for dacsync.
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"time"
)

// ErrorCategory represents the type of error for better categorization
type ErrorCategory string

const (
	CategoryDeviceEnumeration ErrorCategory = "device-enumeration"
	CategoryDeviceRead        ErrorCategory = "device-read"
	CategoryDeviceWrite       ErrorCategory = "device-write"
	CategoryRateUnsettable    ErrorCategory = "rate-unsettable"
	CategoryRateUnsupported   ErrorCategory = "rate-unsupported"
	CategoryAutomation        ErrorCategory = "automation-command"
	CategoryLookup            ErrorCategory = "catalog-lookup"
	CategoryAuthorization     ErrorCategory = "authorization"
	CategoryLogStream         ErrorCategory = "log-stream"
	CategoryConfiguration     ErrorCategory = "configuration"
	CategoryValidation        ErrorCategory = "validation"
	CategoryTimeout           ErrorCategory = "timeout"
	CategoryGeneric           ErrorCategory = "generic"
)

// EnhancedError wraps an error with category, component and context metadata.
type EnhancedError struct {
	Err       error          // Original error
	Component string         // Component where the error occurred
	Category  ErrorCategory  // Error category for grouping
	Context   map[string]any // Additional context data
	Timestamp time.Time      // When the error occurred
}

// Error implements the error interface
func (ee *EnhancedError) Error() string {
	return ee.Err.Error()
}

// Unwrap implements the error unwrapping interface
func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

// Is implements error matching: two enhanced errors match on category,
// otherwise matching falls through to the wrapped error.
func (ee *EnhancedError) Is(target error) bool {
	if ee2, ok := target.(*EnhancedError); ok {
		return ee.Category == ee2.Category
	}
	return stderrors.Is(ee.Err, target)
}

// ErrorBuilder provides a fluent interface for constructing enhanced errors
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

// New creates a new ErrorBuilder from an existing error
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{
		err:      err,
		category: CategoryGeneric,
	}
}

// Newf creates a new ErrorBuilder from a formatted message.
// The format string supports %w for error wrapping.
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Category sets the error category
func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Component sets the component name
func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

// Context adds a key-value pair to the error context
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// Build creates the final EnhancedError
func (eb *ErrorBuilder) Build() error {
	if eb.err == nil {
		return nil
	}

	var context map[string]any
	if eb.context != nil {
		context = make(map[string]any, len(eb.context))
		maps.Copy(context, eb.context)
	}

	return &EnhancedError{
		Err:       eb.err,
		Component: eb.component,
		Category:  eb.category,
		Context:   context,
		Timestamp: time.Now(),
	}
}

// CategoryOf returns the category of err if it is an EnhancedError,
// CategoryGeneric otherwise.
func CategoryOf(err error) ErrorCategory {
	var ee *EnhancedError
	if stderrors.As(err, &ee) {
		return ee.Category
	}
	return CategoryGeneric
}

// Standard library passthroughs so callers only import this package.

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// NewStd creates a plain standard library error without enhancement.
func NewStd(text string) error {
	return stderrors.New(text)
}

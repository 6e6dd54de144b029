package config

import (
	"fmt"
	"strings"
)

// ValidationError collects every problem found in a configuration.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "config validation failed"
	case 1:
		return "config validation failed: " + e.Errors[0]
	default:
		return fmt.Sprintf("config validation failed with %d errors:\n  - %s",
			len(e.Errors), strings.Join(e.Errors, "\n  - "))
	}
}

// Add appends msg.
func (e *ValidationError) Add(msg string) {
	e.Errors = append(e.Errors, msg)
}

// Addf appends a formatted message.
func (e *ValidationError) Addf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

// HasErrors reports whether anything was added.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ToError returns e when it holds errors, otherwise nil.
func (e *ValidationError) ToError() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

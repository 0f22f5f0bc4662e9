// Package errs defines the error taxonomy shared by the analysis pipeline.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrInputValidation is the class of caller configuration mistakes
	ErrInputValidation = errors.New("input validation failed")
	// ErrInsufficientData is the class of too-short or all-undefined inputs
	ErrInsufficientData = errors.New("insufficient data")
	// ErrAnalysisFailed is the opaque condition reported for provider-level failures
	ErrAnalysisFailed = errors.New("analysis could not be completed")
)

// ValidationError reports a single invalid configuration field
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is lets errors.Is match ErrInputValidation
func (e *ValidationError) Is(target error) bool {
	return target == ErrInputValidation
}

// Invalid builds a ValidationError with a formatted reason
func Invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// InsufficientDataError reports that a stage received fewer usable
// observations than it needs
type InsufficientDataError struct {
	Stage string
	Need  int
	Have  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: need at least %d observations, have %d", e.Stage, e.Need, e.Have)
}

// Is lets errors.Is match ErrInsufficientData
func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

// Insufficient builds an InsufficientDataError
func Insufficient(stage string, need, have int) error {
	return &InsufficientDataError{Stage: stage, Need: need, Have: have}
}

// Failed wraps a provider or transport error into the opaque analysis failure
func Failed(cause error) error {
	if cause == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrAnalysisFailed, cause)
}

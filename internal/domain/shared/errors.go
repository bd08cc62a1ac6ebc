// Package shared contains common domain errors used across all domain packages.
// This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrInvalidInput  = errors.New("invalid input")
	ErrEmptyValue    = errors.New("value cannot be empty")
	ErrNegativeValue = errors.New("value cannot be negative")
	ErrConfiguration = errors.New("configuration error")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "achievement", "learner"
	Op      string // Operation that failed, e.g., "Create", "Evaluate"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Learner domain errors
var (
	ErrLearnerNotFound = NewDomainError("learner", "Find", ErrNotFound, "learner not found")
	ErrNotALearner     = NewDomainError("learner", "CheckRole", ErrNotFound, "user is not a learner")
	ErrInvalidLearner  = NewDomainError("learner", "Validate", ErrInvalidInput, "invalid learner id")
)

// Achievement domain errors
var (
	ErrAchievementNotFound      = NewDomainError("achievement", "Find", ErrNotFound, "achievement not found")
	ErrAchievementAlreadyExists = NewDomainError("achievement", "Create", ErrAlreadyExists, "achievement id already in catalog")
	ErrAchievementInactive      = NewDomainError("achievement", "Grant", ErrInvalidInput, "achievement is not active")
	ErrInvalidAchievementID     = NewDomainError("achievement", "Validate", ErrEmptyValue, "achievement id is required")
	ErrInvalidCategory          = NewDomainError("achievement", "Validate", ErrInvalidInput, "unknown achievement category")
	ErrInvalidRarity            = NewDomainError("achievement", "Validate", ErrInvalidInput, "unknown achievement rarity")
	ErrNegativePoints           = NewDomainError("achievement", "Validate", ErrNegativeValue, "points cannot be negative")
	ErrIncompleteCriteria       = NewDomainError("achievement", "Validate", ErrConfiguration, "criteria incomplete for category")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsConfiguration checks if the error reports a structurally broken definition.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrConfiguration)
}

package models

import (
	"errors"
	"fmt"
)

// ValidationError is bad input caught before any network call
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// GatewayError means a payment session could not be created
type GatewayError struct {
	BookingReference string
	Message          string
	Err              error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment initiation failed for %s: %s", e.BookingReference, e.Message)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// VerificationError is a failed payment status lookup
type VerificationError struct {
	BookingReference string
	Class            string
	Retryable        bool
	Message          string
	Err              error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("payment verification failed for %s (%s): %s", e.BookingReference, e.Class, e.Message)
}

func (e *VerificationError) Unwrap() error { return e.Err }

// NotFoundError means the booking reference is unknown to the backend
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsVerification(err error) bool {
	var target *VerificationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

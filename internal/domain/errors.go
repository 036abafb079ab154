package domain

import (
	"errors"
	"fmt"
)

type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

// ValidationError reports malformed input for a single field.
type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error { return e.Err }

type ConflictError struct {
	Resource string
	Msg      string
	Err      error
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "" && e.Resource != "":
		return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s conflict", e.Resource)
	default:
		return "conflict"
	}
}

func (e ConflictError) Unwrap() error { return e.Err }

type InternalError struct {
	Msg string
	Err error
}

func (e InternalError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "internal error"
}

func (e InternalError) Unwrap() error { return e.Err }

// AuthenticationError means the caller presented no identity or an invalid one.
type AuthenticationError struct {
	Msg string
	Err error
}

func (e AuthenticationError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "unauthenticated"
}

func (e AuthenticationError) Unwrap() error { return e.Err }

// AuthorizationError means the caller is known but lacks the required role.
type AuthorizationError struct {
	Msg string
}

func (e AuthorizationError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "admin access required"
}

// CapacityExceededError is returned when a booking asks for more seats than remain.
type CapacityExceededError struct {
	Requested int
	Available int
}

func (e CapacityExceededError) Error() string {
	return fmt.Sprintf("not enough available slots: requested %d, available %d", e.Requested, e.Available)
}

// WindowClosedError is returned when a cancellation falls inside the blackout period.
type WindowClosedError struct {
	DaysLeft int
	MinDays  int
}

func (e WindowClosedError) Error() string {
	return fmt.Sprintf("cancellation not allowed less than %d days before start (%d days left)", e.MinDays, e.DaysLeft)
}

// ConcurrencyConflictError wraps a lock or serialization failure on the booking critical section.
type ConcurrencyConflictError struct {
	Err error
}

func (e ConcurrencyConflictError) Error() string {
	return "booking is busy, please try again"
}

func (e ConcurrencyConflictError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

func IsInternal(err error) bool {
	var target InternalError
	return errors.As(err, &target)
}

func IsAuthentication(err error) bool {
	var target AuthenticationError
	return errors.As(err, &target)
}

func IsAuthorization(err error) bool {
	var target AuthorizationError
	return errors.As(err, &target)
}

func IsCapacityExceeded(err error) bool {
	var target CapacityExceededError
	return errors.As(err, &target)
}

func IsWindowClosed(err error) bool {
	var target WindowClosedError
	return errors.As(err, &target)
}

func IsConcurrencyConflict(err error) bool {
	var target ConcurrencyConflictError
	return errors.As(err, &target)
}

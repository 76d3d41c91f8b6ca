package appointment

import (
	"errors"
	"fmt"
)

var (
	ErrAppointmentNotFound     = errors.New("appointment not found")
	ErrStaleAppointment        = errors.New("appointment modified concurrently")
	ErrInvalidTransition       = errors.New("invalid status transition")
	ErrValidation              = errors.New("validation failed")
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
)

// TransitionError reports an operation attempted from a status outside its
// allowed set. It unwraps to ErrInvalidTransition so handlers can keep a
// plain errors.Is switch.
type TransitionError struct {
	Op   Operation
	From Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s appointment in status %q", e.Op, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// NewTransitionError builds the rejected-operation error for op attempted
// from the given status.
func NewTransitionError(op Operation, from Status) error {
	return &TransitionError{Op: op, From: from}
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

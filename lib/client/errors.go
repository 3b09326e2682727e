package client

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingPointer is returned when the executing script carries no
	// component instance id.
	ErrMissingPointer = errors.New("client: component data pointer missing")

	// ErrDuplicateComponent is returned when an instance id is registered
	// twice.
	ErrDuplicateComponent = errors.New("client: component already registered")

	// ErrInvalidPayload is returned when the embedded payload cannot be
	// decoded.
	ErrInvalidPayload = errors.New("client: invalid component payload")

	// ErrNilBehavior is returned when a behavior factory produces nothing.
	ErrNilBehavior = errors.New("client: behavior factory returned nil")

	// ErrBehaviorPanic wraps a panic raised while instantiating or mounting
	// a behavior.
	ErrBehaviorPanic = errors.New("client: behavior panicked")
)

// RegistrationError describes a skipped code-behind registration.
type RegistrationError struct {
	ID  string
	Err error
}

func (e *RegistrationError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("client: register component: %v", e.Err)
	}
	return fmt.Sprintf("client: register component %q: %v", e.ID, e.Err)
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// IsMissingPointer reports whether err is a missing pointer failure.
func IsMissingPointer(err error) bool {
	return errors.Is(err, ErrMissingPointer)
}

package blueprint

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for composition operations.
var (
	ErrNotFound         = errors.New("blueprint: component or view not found")
	ErrDepthExceeded    = errors.New("blueprint: maximum nest level exceeded")
	ErrEmptyTemplate    = errors.New("blueprint: template is empty")
	ErrRenderFailed     = errors.New("blueprint: render failed")
	ErrFactoryFailed    = errors.New("blueprint: factory failed")
	ErrValidation       = errors.New("blueprint: parameter validation failed")
	ErrDecryptFailed    = errors.New("blueprint: parameter decryption failed")
	ErrSignatureInvalid = errors.New("blueprint: signature verification failed")
	ErrInvalidFormat    = errors.New("blueprint: invalid parameter format")
)

// FieldError describes one offending parameter.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every parameter that failed schema validation.
// It matches ErrValidation via errors.Is.
type ValidationError struct {
	Component string       `json:"component"`
	View      string       `json:"view"`
	Fields    []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("blueprint: invalid params for %s/%s: %s", e.Component, e.View, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// HasField reports whether the named field is among the failures.
func (e *ValidationError) HasField(name string) bool {
	for _, f := range e.Fields {
		if f.Field == name {
			return true
		}
	}
	return false
}

// RenderError is a renderer-internal failure. It never escapes the render
// boundary; the resolver logs it and substitutes an inline error fragment.
type RenderError struct {
	Component string
	View      string
	Err       error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("blueprint: render %s/%s: %v", e.Component, e.View, e.Err)
}

func (e *RenderError) Unwrap() []error {
	return []error{ErrRenderFailed, e.Err}
}

// FactoryError records a single factory failure. Factory errors are always
// absorbed by the factory stage.
type FactoryError struct {
	Component string
	View      string
	Factory   string
	Scope     Scope
	Err       error
}

func (e *FactoryError) Error() string {
	return fmt.Sprintf("blueprint: factory %q (%s scope) of %s/%s: %v", e.Factory, e.Scope, e.Component, e.View, e.Err)
}

func (e *FactoryError) Unwrap() []error {
	return []error{ErrFactoryFailed, e.Err}
}

// ResolveError ties a resolution failure to the address that produced it.
type ResolveError struct {
	Address Address
	Err     error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve %s: %v", e.Address, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// IsNotFound checks if err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if err is a parameter validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsDepthExceeded checks if err was caused by the nesting limit.
func IsDepthExceeded(err error) bool {
	return errors.Is(err, ErrDepthExceeded)
}

// IsDecryptionError checks if err is a decryption or signature error.
func IsDecryptionError(err error) bool {
	return errors.Is(err, ErrDecryptFailed) || errors.Is(err, ErrSignatureInvalid)
}

// AsValidation extracts the ValidationError from err, if any.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

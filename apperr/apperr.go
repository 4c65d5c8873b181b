// Package apperr defines the error taxonomy shared by flows, services and handlers.
package apperr

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a failure by who can recover from it.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindUpstreamUnavailable
	KindUpstreamContractViolation
	KindConfigurationMissing
	KindTimeout
)

var (
	ErrInvalidInput              = errors.New("invalid input")
	ErrUpstreamUnavailable       = errors.New("upstream unavailable")
	ErrUpstreamContractViolation = errors.New("upstream contract violation")
	ErrConfigurationMissing      = errors.New("configuration missing")
	ErrTimeout                   = errors.New("timeout")
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "INVALID_INPUT"
	case KindUpstreamUnavailable:
		return "UPSTREAM_UNAVAILABLE"
	case KindUpstreamContractViolation:
		return "UPSTREAM_CONTRACT_VIOLATION"
	case KindConfigurationMissing:
		return "CONFIGURATION_MISSING"
	case KindTimeout:
		return "TIMEOUT"
	default:
		return "INTERNAL_ERROR"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidInput:
		return ErrInvalidInput
	case KindUpstreamUnavailable:
		return ErrUpstreamUnavailable
	case KindUpstreamContractViolation:
		return ErrUpstreamContractViolation
	case KindConfigurationMissing:
		return ErrConfigurationMissing
	case KindTimeout:
		return ErrTimeout
	default:
		return nil
	}
}

// Error carries the kind, the operation that failed and the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if s := e.Kind.sentinel(); s != nil {
		msg = s.Error()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match the kind's sentinel as well as the wrapped cause.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// New builds an *Error of the given kind.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func InvalidInput(op, format string, args ...any) *Error {
	return New(KindInvalidInput, op, fmt.Errorf(format, args...))
}

func ContractViolation(op, format string, args ...any) *Error {
	return New(KindUpstreamContractViolation, op, fmt.Errorf(format, args...))
}

func ConfigurationMissing(op, setting string) *Error {
	return New(KindConfigurationMissing, op, fmt.Errorf("%s is not set", setting))
}

// Upstream classifies a failed outbound call. Deadline expiry becomes
// KindTimeout, anything else KindUpstreamUnavailable. Errors that already
// carry a kind pass through unchanged.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return New(KindTimeout, op, err)
	}
	return New(KindUpstreamUnavailable, op, err)
}

// KindOf reports the kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

package engine

import (
	"errors"
	"fmt"
)

// Kind classifies request failures for reporting and metrics.
type Kind int

const (
	KindExecution  Kind = iota // hook, action, or panic
	KindResolution             // destination not found
	KindValidation             // malformed identifier
)

func (k Kind) String() string {
	switch k {
	case KindResolution:
		return "resolution"
	case KindValidation:
		return "validation"
	default:
		return "execution"
	}
}

// Sentinels matched with errors.Is.
var (
	ErrControllerNotFound = errors.New("controller not found")
	ErrActionNotValid     = errors.New("action not valid")
	ErrActionNotFound     = errors.New("action not found")
)

// Error is a classified engine failure.
type Error struct {
	Kind Kind
	Msg  string
	Err  error // sentinel
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Err }

func controllerNotFound(name string) error {
	return &Error{KindResolution, fmt.Sprintf("controller `%s` not found", name), ErrControllerNotFound}
}

func actionNotValid(name string) error {
	return &Error{KindValidation, fmt.Sprintf("action `%s` is not valid", name), ErrActionNotValid}
}

func actionNotFound(method string) error {
	return &Error{KindResolution, fmt.Sprintf("action `%s` not found", method), ErrActionNotFound}
}

// KindOf returns the Kind of err, KindExecution for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindExecution
}

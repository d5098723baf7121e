package domain

import (
	"errors"
	"fmt"
)

// Kind is the machine readable failure class of a draw operation.
type Kind string

const (
	KindInvalidRequest        Kind = "invalid_request"
	KindActivityNotFound      Kind = "activity_not_found"
	KindActivityNotAvailable  Kind = "activity_not_available"
	KindUserNotFound          Kind = "user_not_found"
	KindSystemBusy            Kind = "system_busy"
	KindInsufficientAllowance Kind = "insufficient_allowance"
	KindPrizeInconsistent     Kind = "prize_inconsistent"
	KindTransient             Kind = "transient"
	KindInternal              Kind = "internal"
)

// Error carries a Kind. Requested and Remaining are set for insufficient_allowance.
type Error struct {
	Kind      Kind
	Message   string
	Requested int
	Remaining int
	Err       error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrSystemBusy) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Retryable reports failures the caller may retry later.
func (e *Error) Retryable() bool {
	return e.Kind == KindSystemBusy || e.Kind == KindTransient
}

var (
	ErrInvalidRequest        = &Error{Kind: KindInvalidRequest}
	ErrActivityNotFound      = &Error{Kind: KindActivityNotFound}
	ErrActivityNotAvailable  = &Error{Kind: KindActivityNotAvailable}
	ErrUserNotFound          = &Error{Kind: KindUserNotFound}
	ErrSystemBusy            = &Error{Kind: KindSystemBusy}
	ErrInsufficientAllowance = &Error{Kind: KindInsufficientAllowance}
	ErrPrizeInconsistent     = &Error{Kind: KindPrizeInconsistent}
	ErrTransient             = &Error{Kind: KindTransient}
	ErrInternal              = &Error{Kind: KindInternal}
)

func NewError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func InsufficientAllowance(requested, remaining int) *Error {
	return &Error{
		Kind:      KindInsufficientAllowance,
		Message:   fmt.Sprintf("requested %d draws, %d remaining", requested, remaining),
		Requested: requested,
		Remaining: remaining,
	}
}

// KindOf returns the kind of err, or internal for errors without one.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

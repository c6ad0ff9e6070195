// Package apperr is the error taxonomy shared by the repository client, the
// realtime adapter and the reconciliation engine.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	// KindUnauthorized forces a logout; never retried.
	KindUnauthorized
	// KindConflict means another actor already claimed the order.
	KindConflict
	// KindTransient covers network failures, timeouts and 5xx; retry later.
	KindTransient
	// KindProtocol means the server sent a body we cannot interpret.
	KindProtocol
	// KindValidation is a client-side or server-rejected input problem.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindConflict:
		return "conflict"
	case KindTransient:
		return "transient"
	case KindProtocol:
		return "protocol"
	case KindValidation:
		return "validation"
	}
	return "unknown"
}

type Error struct {
	Kind    Kind
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op == "" {
		return msg
	}
	return e.Op + ": " + msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, op, message string) error {
	return &Error{Kind: kind, Op: op, Message: message}
}

func Wrap(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Unauthorized(op, message string) error { return New(KindUnauthorized, op, message) }
func Conflict(op, message string) error     { return New(KindConflict, op, message) }
func Validation(op, message string) error   { return New(KindValidation, op, message) }

func Transient(op string, err error) error { return Wrap(KindTransient, op, err) }
func Protocol(op string, err error) error  { return Wrap(KindProtocol, op, err) }

func Protocolf(op, format string, args ...any) error {
	return Wrap(KindProtocol, op, fmt.Errorf(format, args...))
}

func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// KindOf returns the taxonomy kind of err, or KindUnknown.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable reports whether a caller may retry the same call later.
func Retryable(err error) bool {
	return Is(err, KindTransient)
}

// ActionFailed prefixes a user-facing failure with the action name while
// keeping the original kind.
func ActionFailed(action string, err error) error {
	if err == nil {
		return nil
	}
	kind := KindOf(err)
	if kind == KindUnknown {
		kind = KindTransient
	}
	return &Error{Kind: kind, Op: action + " failed", Err: err}
}

// MessageOf returns the innermost non-empty server or validation message
// carried by err, or "".
func MessageOf(err error) string {
	msg := ""
	for err != nil {
		if e, ok := err.(*Error); ok && e.Message != "" {
			msg = e.Message
		}
		err = errors.Unwrap(err)
	}
	return msg
}

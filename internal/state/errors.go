package state

import (
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strings"
)

// Error kinds. Every failure returned by Apply wraps exactly one of these, so
// callers can branch with errors.Is.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrValidationFailed   = errors.New("validation failed")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrBelowMinimum       = errors.New("below minimum")
	ErrAboveMaximum       = errors.New("above maximum")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrEmptyCart          = errors.New("empty cart")
	ErrNotFound           = errors.New("not found")
	ErrUnavailable        = errors.New("unavailable")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrBusy               = errors.New("busy")
)

var kindCodes = map[error]string{
	ErrInvalidCredentials: "invalid_credentials",
	ErrValidationFailed:   "validation_failed",
	ErrInsufficientFunds:  "insufficient_funds",
	ErrBelowMinimum:       "below_minimum",
	ErrAboveMaximum:       "above_maximum",
	ErrNotAuthenticated:   "not_authenticated",
	ErrEmptyCart:          "empty_cart",
	ErrNotFound:           "not_found",
	ErrUnavailable:        "unavailable",
	ErrInvalidTransition:  "invalid_transition",
	ErrBusy:               "busy",
}

// Error is a rejected intent: a kind plus the structured context needed to
// explain it. Fields lists offending input fields for ErrValidationFailed.
type Error struct {
	Kind    error
	Fields  []string
	Context map[string]any
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if len(e.Fields) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Fields, ", "))
	}
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Context[k])
		}
		b.WriteString(")")
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Kind }

// Code returns the stable machine-readable code of the error's kind.
func (e *Error) Code() string { return kindCodes[e.Kind] }

// Code returns the machine-readable kind code of err, or "" if err does not
// wrap a known kind.
func Code(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Code()
	}
	for kind, code := range kindCodes {
		if errors.Is(err, kind) {
			return code
		}
	}
	return ""
}

// Reject builds an Error of kind for callers outside the transition layer,
// such as the session store refusing a re-entrant intent.
func Reject(kind error, ctx map[string]any) *Error {
	return fail(kind, ctx)
}

func fail(kind error, ctx map[string]any) *Error {
	return &Error{Kind: kind, Context: ctx}
}

func invalid(fields ...string) *Error {
	return &Error{Kind: ErrValidationFailed, Fields: fields}
}

// fieldErrors collects missing or malformed fields in input order.
type fieldErrors []string

func (f *fieldErrors) require(field, value string) {
	if strings.TrimSpace(value) == "" {
		*f = append(*f, field)
	}
}

func (f *fieldErrors) email(field, value string) {
	if strings.TrimSpace(value) == "" {
		*f = append(*f, field)
		return
	}
	// Display-name forms such as "Bob <bob@x.com>" parse but are not a bare
	// address.
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != strings.TrimSpace(value) {
		*f = append(*f, field)
	}
}

func (f *fieldErrors) check(field string, ok bool) {
	if !ok {
		*f = append(*f, field)
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return invalid(f...)
}
